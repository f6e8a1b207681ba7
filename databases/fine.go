package databases

// go generate: mockery --name FineDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ashish-0314/Traffic-Management/models"
)

const fineName = "fines"

// FineDatabase contains the methods to use with the fine database
type FineDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Fine, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Fine, error)
	InsertOne(ctx context.Context, fine models.Fine) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	SumPaidAmounts(ctx context.Context) (float64, error)
}

type fineDatabase struct {
	db DatabaseHelper
}

// NewFineDatabase initializes a new instance of fine database with the
// provided db connection
func NewFineDatabase(db DatabaseHelper) FineDatabase {
	return &fineDatabase{
		db: db,
	}
}

func (f *fineDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Fine, error) {
	fine := &models.Fine{}
	err := f.db.Collection(fineName).FindOne(ctx, filter).Decode(&fine)
	if err != nil {
		return nil, err
	}
	return fine, nil
}

func (f *fineDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Fine, error) {
	var fines []models.Fine
	cursor, err := f.db.Collection(fineName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cursor.Decode(&fines)
	if err != nil {
		return nil, err
	}
	return fines, nil
}

func (f *fineDatabase) InsertOne(ctx context.Context, fine models.Fine) (interface{}, error) {
	return f.db.Collection(fineName).InsertOne(ctx, fine)
}

func (f *fineDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return f.db.Collection(fineName).UpdateOne(ctx, filter, update, opts...)
}

func (f *fineDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return f.db.Collection(fineName).CountDocuments(ctx, filter, opts...)
}

// SumPaidAmounts returns the total amount collected over all paid fines
func (f *fineDatabase) SumPaidAmounts(ctx context.Context) (float64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"fine.status": models.FineStatusPaid}},
		{"$group": bson.M{
			"_id":            nil,
			"totalCollected": bson.M{"$sum": "$fine.amount"},
		}},
	}
	cursor, err := f.db.Collection(fineName).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var totals []models.FineTotal
	err = cursor.Decode(&totals)
	if err != nil {
		return 0, err
	}
	if len(totals) == 0 {
		return 0, nil
	}
	return totals[0].TotalCollected, nil
}
