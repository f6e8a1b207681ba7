package databases

// go generate: mockery --name IncidentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ashish-0314/Traffic-Management/models"
)

const incidentName = "incidents"

// IncidentDatabase contains the methods to use with the incident database
type IncidentDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Incident, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Incident, error)
	InsertOne(ctx context.Context, incident models.Incident) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountByType(ctx context.Context) ([]models.IncidentTypeCount, error)
}

type incidentDatabase struct {
	db DatabaseHelper
}

// NewIncidentDatabase initializes a new instance of incident database with
// the provided db connection
func NewIncidentDatabase(db DatabaseHelper) IncidentDatabase {
	return &incidentDatabase{
		db: db,
	}
}

func (i *incidentDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Incident, error) {
	incident := &models.Incident{}
	err := i.db.Collection(incidentName).FindOne(ctx, filter).Decode(&incident)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

func (i *incidentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Incident, error) {
	var incidents []models.Incident
	cursor, err := i.db.Collection(incidentName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cursor.Decode(&incidents)
	if err != nil {
		return nil, err
	}
	return incidents, nil
}

func (i *incidentDatabase) InsertOne(ctx context.Context, incident models.Incident) (interface{}, error) {
	return i.db.Collection(incidentName).InsertOne(ctx, incident)
}

func (i *incidentDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return i.db.Collection(incidentName).UpdateOne(ctx, filter, update, opts...)
}

// CountByType groups all incidents by type and returns one bucket per type
func (i *incidentDatabase) CountByType(ctx context.Context) ([]models.IncidentTypeCount, error) {
	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":   "$incident.type",
			"count": bson.M{"$sum": 1},
		}},
	}
	cursor, err := i.db.Collection(incidentName).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var counts []models.IncidentTypeCount
	err = cursor.Decode(&counts)
	if err != nil {
		return nil, err
	}
	return counts, nil
}
