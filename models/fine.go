package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Fine statuses. The transition is one-way: Unpaid -> Paid.
const (
	FineStatusUnpaid = "Unpaid"
	FineStatusPaid   = "Paid"
)

// Fine holds the structure for the fine collection in mongo
type Fine struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Details FineDetails        `json:"fine" bson:"fine"`
}

// FineDetails holds the structure for the inner fine structure as defined
// in the fine collection in mongo
type FineDetails struct {
	User      primitive.ObjectID `json:"user" bson:"user"`
	Amount    float64            `json:"amount" bson:"amount"`
	Reason    string             `json:"reason" bson:"reason"`
	Status    string             `json:"status" bson:"status"`
	IssuedBy  primitive.ObjectID `json:"issuedBy" bson:"issuedBy"`
	PaymentID string             `json:"paymentId,omitempty" bson:"paymentId,omitempty"`
	Date      primitive.DateTime `json:"date" bson:"date"`
}

// FineStatsResponse reports the sum of paid fines and the open fine count
type FineStatsResponse struct {
	TotalCollected float64 `json:"totalCollected"`
	PendingCount   int64   `json:"pendingCount"`
}

// FineTotal is the single bucket produced by the paid-fines sum aggregation
type FineTotal struct {
	TotalCollected float64 `bson:"totalCollected"`
}
