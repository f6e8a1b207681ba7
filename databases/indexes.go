package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ashish-0314/Traffic-Management/models"
)

// EnsureIndexes creates the uniqueness and query indexes the application
// relies on. The partial index on role closes the register-admin race, and
// the sparse index gives vehicleNumber uniqueness among present values only.
func EnsureIndexes(ctx context.Context, db DatabaseHelper) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user.email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user.vehicleNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "user.role", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"user.role": models.RoleAdmin}),
		},
	}
	if _, err := db.Collection(userName).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return err
	}

	incidentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "incident.createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "incident.status", Value: 1}}},
	}
	if _, err := db.Collection(incidentName).Indexes().CreateMany(ctx, incidentIndexes); err != nil {
		return err
	}

	fineIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "fine.user", Value: 1}}},
		{Keys: bson.D{{Key: "fine.status", Value: 1}}},
	}
	if _, err := db.Collection(fineName).Indexes().CreateMany(ctx, fineIndexes); err != nil {
		return err
	}

	notificationIndexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "notification.user", Value: 1},
			{Key: "notification.createdAt", Value: -1},
		}},
	}
	_, err := db.Collection(notificationName).Indexes().CreateMany(ctx, notificationIndexes)
	return err
}
