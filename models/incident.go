package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Incident types reportable from the client
const (
	IncidentTypeAccident          = "Accident"
	IncidentTypeCrime             = "Crime"
	IncidentTypeSpeeding          = "Speeding"
	IncidentTypeRedLightViolation = "RedLightViolation"
	IncidentTypeCongestion        = "Congestion"
	IncidentTypeOther             = "Other"
)

// Incident review statuses. New reports start Pending; admin or traffic
// police move them between the remaining states explicitly.
const (
	IncidentStatusPending  = "Pending"
	IncidentStatusVerified = "Verified"
	IncidentStatusRejected = "Rejected"
	IncidentStatusResolved = "Resolved"
)

// Incident holds the structure for the incident collection in mongo
type Incident struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Details IncidentDetails    `json:"incident" bson:"incident"`
}

// IncidentDetails holds the structure for the inner incident structure as
// defined in the incident collection in mongo
type IncidentDetails struct {
	Type          string             `json:"type" bson:"type"`
	Location      Location           `json:"location" bson:"location"`
	Description   string             `json:"description" bson:"description"`
	VehicleNumber string             `json:"vehicleNumber,omitempty" bson:"vehicleNumber,omitempty"`
	MediaURL      string             `json:"mediaUrl,omitempty" bson:"mediaUrl,omitempty"`
	Status        string             `json:"status" bson:"status"`
	ReportedBy    primitive.ObjectID `json:"reportedBy,omitempty" bson:"reportedBy"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt     primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// IncidentTypeCount is one bucket of the group-by-type stats aggregation
type IncidentTypeCount struct {
	Type  string `json:"type" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}
