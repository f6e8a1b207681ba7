package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Notification types
const (
	NotificationTypeFine     = "FINE"
	NotificationTypeIncident = "INCIDENT"
	NotificationTypeSystem   = "SYSTEM"
)

// Notification holds the structure for the notification collection in mongo.
// Notifications are append-only; the only mutation is the one-way read flag.
type Notification struct {
	ID      primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Details NotificationDetails `json:"notification" bson:"notification"`
}

// NotificationDetails holds the structure for the inner notification
// structure as defined in the notification collection in mongo
type NotificationDetails struct {
	User        primitive.ObjectID `json:"user" bson:"user"`
	Type        string             `json:"type" bson:"type"`
	Message     string             `json:"message" bson:"message"`
	ReferenceID primitive.ObjectID `json:"referenceId,omitempty" bson:"referenceId,omitempty"`
	IsRead      bool               `json:"isRead" bson:"isRead"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
