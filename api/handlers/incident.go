package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ashish-0314/Traffic-Management/api"
	"github.com/ashish-0314/Traffic-Management/config"
	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/models"
)

// Incident exported for testing purposes
type Incident struct {
	DB       databases.IncidentDatabase
	Uploader Uploader
	Notifier Notifier
}

// CreateIncidentHandler records a new incident report. Accepts JSON or
// multipart form data with an optional media part; the upload runs before
// the insert so a failed upload never leaves a half-written report. Accident
// reports additionally fan out notifications to nearby users, but the report
// itself is already committed by then, so fan-out failures are only logged.
func (i Incident) CreateIncidentHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	req, mediaURL, err := i.decodeIncidentCreate(r)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("invalid incident payload", http.StatusBadRequest, w, err)
		return
	}
	if mediaURL == "" {
		mediaURL = req.MediaURL
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	incident := models.Incident{
		ID: primitive.NewObjectID(),
		Details: models.IncidentDetails{
			Type:        req.Type,
			Description: req.Description,
			Location: models.Location{
				Lat:     req.Lat,
				Lng:     req.Lng,
				Address: req.Address,
			},
			VehicleNumber: req.VehicleNumber,
			MediaURL:      mediaURL,
			Status:        models.IncidentStatusPending,
			ReportedBy:    caller.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := i.DB.InsertOne(ctx, incident); err != nil {
		config.ErrorStatus("failed to create incident", http.StatusInternalServerError, w, err)
		return
	}

	if incident.Details.Type == models.IncidentTypeAccident {
		notified, err := i.Notifier.AccidentFanout(ctx, incident)
		if err != nil {
			zap.S().Errorw("accident fan-out failed",
				"incidentId", incident.ID.Hex(),
				"error", err,
			)
		} else if notified > 0 {
			zap.S().Infow("accident fan-out complete",
				"incidentId", incident.ID.Hex(),
				"notified", notified,
			)
		}
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(incident)
}

func (i Incident) decodeIncidentCreate(r *http.Request) (models.IncidentCreateRequest, string, error) {
	var req models.IncidentCreateRequest

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, "", err
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return req, "", err
	}

	req.Type = r.FormValue("type")
	req.Description = r.FormValue("description")
	req.Address = r.FormValue("address")
	req.VehicleNumber = r.FormValue("vehicleNumber")
	if v := r.FormValue("lat"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, "", fmt.Errorf("invalid lat %q", v)
		}
		req.Lat = lat
	}
	if v := r.FormValue("lng"); v != "" {
		lng, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, "", fmt.Errorf("invalid lng %q", v)
		}
		req.Lng = lng
	}

	file, header, err := r.FormFile("media")
	if err == http.ErrMissingFile {
		return req, "", nil
	}
	if err != nil {
		return req, "", err
	}
	defer file.Close()

	if i.Uploader == nil {
		return req, "", fmt.Errorf("media uploads are not configured")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return req, "", err
	}
	url, err := i.Uploader.Upload(r.Context(), data, header.Filename)
	if err != nil {
		return req, "", fmt.Errorf("failed to upload media: %w", err)
	}
	return req, url, nil
}

// ListIncidentsHandler returns incidents newest first. Supports status,
// limit and timeLimit (hours) filters. Reporter identity is redacted for
// unprivileged callers.
func (i Incident) ListIncidentsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["incident.status"] = status
	}
	if hours := queryInt(r, "timeLimit", 0); hours > 0 {
		cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
		filter["incident.createdAt"] = bson.M{"$gte": primitive.NewDateTimeFromTime(cutoff)}
	}

	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.M{"incident.createdAt": -1}).
		SetLimit(int64(limit))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	incidents, err := i.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get incidents", http.StatusInternalServerError, w, err)
		return
	}
	if incidents == nil {
		incidents = []models.Incident{}
	}

	if !models.IsPrivileged(caller.Role) {
		for idx := range incidents {
			incidents[idx].Details.ReportedBy = primitive.NilObjectID
		}
	}

	b, err := json.Marshal(incidents)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UpdateIncidentStatusHandler moves an incident through its review states
func (i Incident) UpdateIncidentStatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	incidentID := mux.Vars(r)["incident_id"]

	oid, err := primitive.ObjectIDFromHex(incidentID)
	if err != nil {
		config.ErrorStatus("invalid incident id", http.StatusBadRequest, w, err)
		return
	}

	var req models.IncidentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("invalid status payload", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	update := bson.M{"$set": bson.M{
		"incident.status":    req.Status,
		"incident.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}}
	res, err := i.DB.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		config.ErrorStatus("failed to update incident", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("incident not found", http.StatusNotFound, w, fmt.Errorf("no incident with id %s", incidentID))
		return
	}

	incident, err := i.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("failed to get incident", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("incident status updated",
		"incidentId", incidentID,
		"status", req.Status,
	)
	json.NewEncoder(w).Encode(incident)
}

// IncidentStatsHandler reports how many incidents exist per type
func (i Incident) IncidentStatsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	counts, err := i.DB.CountByType(ctx)
	if err != nil {
		config.ErrorStatus("failed to aggregate incidents", http.StatusInternalServerError, w, err)
		return
	}

	stats := make(map[string]int64, len(counts))
	for _, c := range counts {
		stats[c.Type] = c.Count
	}

	b, err := json.Marshal(stats)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
