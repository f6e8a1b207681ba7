package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ashish-0314/Traffic-Management/api"
	"github.com/ashish-0314/Traffic-Management/config"
	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/models"
)

const notificationPageSize = 20

// Notification exported for testing purposes
type Notification struct {
	DB databases.NotificationDatabase
}

// ListNotificationsHandler returns the caller's most recent notifications,
// newest first, capped at a single page
func (n Notification) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().
		SetSort(bson.M{"notification.createdAt": -1}).
		SetLimit(notificationPageSize)

	notifications, err := n.DB.Find(ctx, bson.M{"notification.user": caller.ID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get notifications", http.StatusInternalServerError, w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	b, err := json.Marshal(notifications)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MarkReadHandler marks one of the caller's notifications read. The filter
// is owner-scoped, so another user's notification id reads as not found.
// Re-marking an already read notification is a no-op success.
func (n Notification) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	notificationID := mux.Vars(r)["notification_id"]
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		config.ErrorStatus("invalid notification id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	update := bson.M{"$set": bson.M{"notification.isRead": true}}
	res, err := n.DB.UpdateOne(ctx, bson.M{"_id": oid, "notification.user": caller.ID}, update)
	if err != nil {
		config.ErrorStatus("failed to update notification", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("notification not found", http.StatusNotFound, w,
			fmt.Errorf("no notification %s for caller", notificationID))
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Notification marked as read."})
}

// MarkAllReadHandler marks every unread notification of the caller read
func (n Notification) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"notification.user": caller.ID, "notification.isRead": false}
	update := bson.M{"$set": bson.M{"notification.isRead": true}}
	res, err := n.DB.UpdateMany(ctx, filter, update)
	if err != nil {
		config.ErrorStatus("failed to update notifications", http.StatusInternalServerError, w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "All notifications marked as read.",
		"updated": res.ModifiedCount,
	})
}
