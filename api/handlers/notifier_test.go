package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ashish-0314/Traffic-Management/databases/mocks"
	"github.com/ashish-0314/Traffic-Management/models"
)

func TestDistanceKmZeroForSamePoint(t *testing.T) {
	assert.InDelta(t, 0, DistanceKm(12.97, 77.59, 12.97, 77.59), 1e-9)
}

func TestDistanceKmSymmetry(t *testing.T) {
	a := DistanceKm(12.97, 77.59, 13.08, 80.27)
	b := DistanceKm(13.08, 80.27, 12.97, 77.59)
	assert.InDelta(t, a, b, 1e-9)
}

func TestDistanceKmKnownValue(t *testing.T) {
	// one degree of longitude along the equator
	assert.InDelta(t, 111.19, DistanceKm(0, 0, 0, 1), 0.05)
}

func nearbyUser(lat, lng float64) models.User {
	return models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			Role:     models.RoleUser,
			Location: &models.Location{Lat: lat, Lng: lng},
		},
	}
}

func accidentAt(lat, lng float64, reporter primitive.ObjectID) models.Incident {
	return models.Incident{
		ID: primitive.NewObjectID(),
		Details: models.IncidentDetails{
			Type:       models.IncidentTypeAccident,
			Location:   models.Location{Lat: lat, Lng: lng, Address: "MG Road"},
			Status:     models.IncidentStatusPending,
			ReportedBy: reporter,
		},
	}
}

func TestAccidentFanoutNotifiesOnlyUsersWithinRadius(t *testing.T) {
	reporter := primitive.NewObjectID()
	incident := accidentAt(12.97, 77.59, reporter)

	// roughly 5 km, 19 km and 25 km north, plus one user without a location
	within5 := nearbyUser(12.97+0.045, 77.59)
	within19 := nearbyUser(12.97+0.1708, 77.59)
	beyond25 := nearbyUser(12.97+0.2248, 77.59)
	noLocation := models.User{ID: primitive.NewObjectID(), Details: models.UserDetails{Role: models.RoleUser}}

	userDB := mocks.NewUserDatabase(t)
	notificationDB := mocks.NewNotificationDatabase(t)

	userDB.On("Find", mock.Anything, mock.Anything).
		Return([]models.User{within5, within19, beyond25, noLocation}, nil)
	notificationDB.On("InsertMany", mock.Anything, mock.MatchedBy(func(ns []models.Notification) bool {
		if len(ns) != 2 {
			return false
		}
		return ns[0].Details.User == within5.ID && ns[1].Details.User == within19.ID
	})).Return([]interface{}{primitive.NewObjectID(), primitive.NewObjectID()}, nil)

	n := Notifier{UDB: userDB, NDB: notificationDB, RadiusKm: 20}
	notified, err := n.AccidentFanout(context.Background(), incident)

	assert.NoError(t, err)
	assert.Equal(t, 2, notified)
}

func TestAccidentFanoutBoundaryIsInclusive(t *testing.T) {
	reporter := primitive.NewObjectID()
	incident := accidentAt(12.97, 77.59, reporter)
	edge := nearbyUser(12.97+0.1, 77.59)

	userDB := mocks.NewUserDatabase(t)
	notificationDB := mocks.NewNotificationDatabase(t)

	userDB.On("Find", mock.Anything, mock.Anything).Return([]models.User{edge}, nil)
	notificationDB.On("InsertMany", mock.Anything, mock.Anything).
		Return([]interface{}{primitive.NewObjectID()}, nil)

	// radius set to the user's exact distance
	radius := DistanceKm(12.97, 77.59, edge.Details.Location.Lat, edge.Details.Location.Lng)
	n := Notifier{UDB: userDB, NDB: notificationDB, RadiusKm: radius}
	notified, err := n.AccidentFanout(context.Background(), incident)

	assert.NoError(t, err)
	assert.Equal(t, 1, notified)
}

func TestAccidentFanoutBroadcastIgnoresDistance(t *testing.T) {
	reporter := primitive.NewObjectID()
	incident := accidentAt(12.97, 77.59, reporter)
	far := nearbyUser(28.61, 77.21)

	userDB := mocks.NewUserDatabase(t)
	notificationDB := mocks.NewNotificationDatabase(t)

	userDB.On("Find", mock.Anything, mock.Anything).Return([]models.User{far}, nil)
	notificationDB.On("InsertMany", mock.Anything, mock.MatchedBy(func(ns []models.Notification) bool {
		return len(ns) == 1 && ns[0].Details.User == far.ID
	})).Return([]interface{}{primitive.NewObjectID()}, nil)

	n := Notifier{UDB: userDB, NDB: notificationDB, RadiusKm: 20, Broadcast: true}
	notified, err := n.AccidentFanout(context.Background(), incident)

	assert.NoError(t, err)
	assert.Equal(t, 1, notified)
}

func TestAccidentFanoutNoCandidatesSkipsInsert(t *testing.T) {
	reporter := primitive.NewObjectID()
	incident := accidentAt(12.97, 77.59, reporter)
	beyond := nearbyUser(12.97+0.3, 77.59)

	userDB := mocks.NewUserDatabase(t)
	notificationDB := mocks.NewNotificationDatabase(t)

	userDB.On("Find", mock.Anything, mock.Anything).Return([]models.User{beyond}, nil)

	n := Notifier{UDB: userDB, NDB: notificationDB, RadiusKm: 20}
	notified, err := n.AccidentFanout(context.Background(), incident)

	assert.NoError(t, err)
	assert.Equal(t, 0, notified)
	notificationDB.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything)
}

func TestAccidentFanoutUsesAddressInMessage(t *testing.T) {
	incident := accidentAt(12.97, 77.59, primitive.NewObjectID())
	assert.Equal(t, "Accident reported near MG Road. Please drive carefully.", accidentMessage(incident))

	incident.Details.Location.Address = ""
	assert.Equal(t, "An accident was reported in your area. Please drive carefully.", accidentMessage(incident))
}
