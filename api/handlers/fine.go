package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ashish-0314/Traffic-Management/api"
	"github.com/ashish-0314/Traffic-Management/config"
	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/models"
)

// Fine exported for testing purposes
type Fine struct {
	DB          databases.FineDatabase
	UDB         databases.UserDatabase
	NDB         databases.NotificationDatabase
	PaymentMode string
}

// IssueFineHandler issues a fine to a user looked up by email or vehicle
// number, email taking precedence. Privileged accounts cannot be fined. The
// recipient gets an inbox notification, but the fine is already committed by
// then, so a notification failure is only logged.
func (f Fine) IssueFineHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	var req models.FineIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("invalid fine payload", http.StatusBadRequest, w, err)
		return
	}
	if req.Email == "" && req.VehicleNumber == "" {
		config.ErrorStatus("email or vehicle number is required", http.StatusBadRequest, w, fmt.Errorf("no recipient identifier"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	target, err := f.resolveRecipient(ctx, req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to look up user", http.StatusInternalServerError, w, err)
		return
	}
	if models.IsPrivileged(target.Details.Role) {
		config.ErrorStatus("fines cannot be issued to privileged accounts", http.StatusBadRequest, w,
			fmt.Errorf("target role is %s", target.Details.Role))
		return
	}

	fine := models.Fine{
		ID: primitive.NewObjectID(),
		Details: models.FineDetails{
			User:     target.ID,
			Amount:   req.Amount,
			Reason:   req.Reason,
			Status:   models.FineStatusUnpaid,
			IssuedBy: caller.ID,
			Date:     primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	if _, err := f.DB.InsertOne(ctx, fine); err != nil {
		config.ErrorStatus("failed to create fine", http.StatusInternalServerError, w, err)
		return
	}

	notification := models.Notification{
		ID: primitive.NewObjectID(),
		Details: models.NotificationDetails{
			User:        target.ID,
			Type:        models.NotificationTypeFine,
			Message:     fmt.Sprintf("You have received a new traffic fine of ₹%.2f for %s.", req.Amount, req.Reason),
			ReferenceID: fine.ID,
			CreatedAt:   primitive.NewDateTimeFromTime(time.Now()),
		},
	}
	if _, err := f.NDB.InsertOne(ctx, notification); err != nil {
		zap.S().Errorw("failed to notify fined user",
			"fineId", fine.ID.Hex(),
			"userId", target.ID.Hex(),
			"error", err,
		)
	}

	zap.S().Infow("fine issued",
		"fineId", fine.ID.Hex(),
		"userId", target.ID.Hex(),
		"amount", req.Amount,
	)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(fine)
}

// resolveRecipient looks up the user to fine. A supplied email is
// authoritative: when it matches nobody the lookup fails rather than falling
// through to the vehicle number, which could fine a different user. The
// vehicle number is only consulted when no email was given.
func (f Fine) resolveRecipient(ctx context.Context, req models.FineIssueRequest) (*models.User, error) {
	if req.Email != "" {
		return f.UDB.FindOne(ctx, bson.M{"user.email": req.Email})
	}
	return f.UDB.FindOne(ctx, bson.M{"user.vehicleNumber": req.VehicleNumber})
}

// MyFinesHandler lists the caller's fines, newest first
func (f Fine) MyFinesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	fines, err := f.DB.Find(ctx, bson.M{"fine.user": caller.ID},
		options.Find().SetSort(bson.M{"fine.date": -1}))
	if err != nil {
		config.ErrorStatus("failed to get fines", http.StatusInternalServerError, w, err)
		return
	}
	if fines == nil {
		fines = []models.Fine{}
	}

	b, err := json.Marshal(fines)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ListFinesHandler lists every fine for privileged callers, newest first.
// Supports an optional status filter.
func (f Fine) ListFinesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["fine.status"] = status
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	fines, err := f.DB.Find(ctx, filter, options.Find().SetSort(bson.M{"fine.date": -1}))
	if err != nil {
		config.ErrorStatus("failed to get fines", http.StatusInternalServerError, w, err)
		return
	}
	if fines == nil {
		fines = []models.Fine{}
	}

	b, err := json.Marshal(fines)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// PayFineHandler is the direct payment path: the owning user marks their own
// fine paid without a gateway. Only live when PAYMENT_MODE=direct. The status
// flip is a conditional update on Unpaid, so paying twice conflicts instead
// of double-charging.
func (f Fine) PayFineHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	if f.PaymentMode != config.PaymentModeDirect {
		config.ErrorStatus("direct payment is disabled", http.StatusBadRequest, w,
			fmt.Errorf("payment mode is %s", f.PaymentMode))
		return
	}

	fineID := mux.Vars(r)["fine_id"]
	oid, err := primitive.ObjectIDFromHex(fineID)
	if err != nil {
		config.ErrorStatus("invalid fine id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	fine, err := f.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("fine not found", http.StatusNotFound, w, err)
		return
	}
	if fine.Details.User != caller.ID {
		config.ErrorStatus("fine belongs to another user", http.StatusForbidden, w,
			fmt.Errorf("fine %s is not owned by caller", fineID))
		return
	}

	update := bson.M{"$set": bson.M{"fine.status": models.FineStatusPaid}}
	res, err := f.DB.UpdateOne(ctx, bson.M{"_id": oid, "fine.status": models.FineStatusUnpaid}, update)
	if err != nil {
		config.ErrorStatus("failed to update fine", http.StatusInternalServerError, w, err)
		return
	}
	if res.ModifiedCount == 0 {
		config.ErrorStatus("fine is already paid", http.StatusConflict, w,
			fmt.Errorf("fine %s is not unpaid", fineID))
		return
	}

	zap.S().Infow("fine paid", "fineId", fineID, "userId", caller.ID.Hex())
	json.NewEncoder(w).Encode(map[string]string{"message": "Fine paid successfully."})
}

// FineStatsHandler reports the revenue collected and the open fine count
func (f Fine) FineStatsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	total, err := f.DB.SumPaidAmounts(ctx)
	if err != nil {
		config.ErrorStatus("failed to aggregate fines", http.StatusInternalServerError, w, err)
		return
	}
	pending, err := f.DB.CountDocuments(ctx, bson.M{"fine.status": models.FineStatusUnpaid})
	if err != nil {
		config.ErrorStatus("failed to count fines", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.FineStatsResponse{
		TotalCollected: total,
		PendingCount:   pending,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
