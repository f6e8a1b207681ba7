package handlers

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/models"
)

const earthRadiusKm = 6371.0

// DistanceKm computes the great-circle distance between two points using
// the haversine formula
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLng := deg2rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Notifier fans an accident report out to users near the scene. Users who
// never shared a location are excluded: coverage depends on the last-known
// position the profile update stored.
type Notifier struct {
	UDB       databases.UserDatabase
	NDB       databases.NotificationDatabase
	RadiusKm  float64
	Broadcast bool
}

// AccidentFanout creates one notification per user within the radius of the
// incident, excluding the reporter. The incident is already persisted when
// this runs; an error here muffles alerts but never loses the report. The
// boundary is inclusive: a user exactly at the radius is notified.
func (n Notifier) AccidentFanout(ctx context.Context, incident models.Incident) (int, error) {
	users, err := n.UDB.Find(ctx, bson.M{"_id": bson.M{"$ne": incident.Details.ReportedBy}})
	if err != nil {
		return 0, fmt.Errorf("failed to load notification candidates: %w", err)
	}

	message := accidentMessage(incident)
	now := primitive.NewDateTimeFromTime(time.Now())

	var notifications []models.Notification
	for _, user := range users {
		loc := user.Details.Location
		if loc == nil {
			continue
		}
		if !n.Broadcast {
			d := DistanceKm(incident.Details.Location.Lat, incident.Details.Location.Lng, loc.Lat, loc.Lng)
			if d > n.RadiusKm {
				continue
			}
		}
		notifications = append(notifications, models.Notification{
			ID: primitive.NewObjectID(),
			Details: models.NotificationDetails{
				User:        user.ID,
				Type:        models.NotificationTypeIncident,
				Message:     message,
				ReferenceID: incident.ID,
				CreatedAt:   now,
			},
		})
	}

	if len(notifications) == 0 {
		return 0, nil
	}

	if _, err := n.NDB.InsertMany(ctx, notifications); err != nil {
		return 0, fmt.Errorf("failed to insert %d accident notifications: %w", len(notifications), err)
	}
	return len(notifications), nil
}

func accidentMessage(incident models.Incident) string {
	if addr := incident.Details.Location.Address; addr != "" {
		return fmt.Sprintf("Accident reported near %s. Please drive carefully.", addr)
	}
	return "An accident was reported in your area. Please drive carefully."
}
