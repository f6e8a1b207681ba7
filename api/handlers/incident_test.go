package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ashish-0314/Traffic-Management/api"
	"github.com/ashish-0314/Traffic-Management/databases/mocks"
	"github.com/ashish-0314/Traffic-Management/models"
)

type stubUploader struct {
	url string
	err error
}

func (s stubUploader) Upload(ctx context.Context, file []byte, filename string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func emptyNotifier(t *testing.T) Notifier {
	t.Helper()
	userDB := mocks.NewUserDatabase(t)
	userDB.On("Find", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	return Notifier{UDB: userDB, NDB: mocks.NewNotificationDatabase(t), RadiusKm: 20}
}

func incidentBody(t *testing.T, req models.IncidentCreateRequest) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(req)
	assert.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestCreateIncidentPersistsPendingReport(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleUser}

	incidentDB := mocks.NewIncidentDatabase(t)
	incidentDB.On("InsertOne", mock.Anything, mock.MatchedBy(func(incident models.Incident) bool {
		return incident.Details.Type == models.IncidentTypeCongestion &&
			incident.Details.Status == models.IncidentStatusPending &&
			incident.Details.ReportedBy == caller.ID
	})).Return(primitive.NewObjectID(), nil)

	i := Incident{DB: incidentDB, Notifier: emptyNotifier(t)}

	body := incidentBody(t, models.IncidentCreateRequest{
		Type:        models.IncidentTypeCongestion,
		Description: "Bumper to bumper on the flyover",
		Lat:         12.97,
		Lng:         77.59,
	})
	w := httptest.NewRecorder()
	i.CreateIncidentHandler(w, authedRequest(http.MethodPost, "/api/v1/incidents", body, caller))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateIncidentInvalidTypeRejected(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleUser}

	incidentDB := mocks.NewIncidentDatabase(t)
	i := Incident{DB: incidentDB, Notifier: emptyNotifier(t)}

	body := incidentBody(t, models.IncidentCreateRequest{
		Type:        "Earthquake",
		Description: "not a road issue",
		Lat:         12.97,
		Lng:         77.59,
	})
	w := httptest.NewRecorder()
	i.CreateIncidentHandler(w, authedRequest(http.MethodPost, "/api/v1/incidents", body, caller))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	incidentDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestCreateIncidentOutOfRangeCoordinatesRejected(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleUser}

	incidentDB := mocks.NewIncidentDatabase(t)
	i := Incident{DB: incidentDB, Notifier: emptyNotifier(t)}

	body := incidentBody(t, models.IncidentCreateRequest{
		Type:        models.IncidentTypeAccident,
		Description: "impossible location",
		Lat:         95.0,
		Lng:         77.59,
	})
	w := httptest.NewRecorder()
	i.CreateIncidentHandler(w, authedRequest(http.MethodPost, "/api/v1/incidents", body, caller))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	incidentDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestCreateAccidentTriggersFanout(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleUser}
	nearby := nearbyUser(12.97+0.045, 77.59)

	incidentDB := mocks.NewIncidentDatabase(t)
	incidentDB.On("InsertOne", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil)

	userDB := mocks.NewUserDatabase(t)
	userDB.On("Find", mock.Anything, mock.Anything).Return([]models.User{nearby}, nil)
	notificationDB := mocks.NewNotificationDatabase(t)
	notificationDB.On("InsertMany", mock.Anything, mock.MatchedBy(func(ns []models.Notification) bool {
		return len(ns) == 1 && ns[0].Details.User == nearby.ID
	})).Return([]interface{}{primitive.NewObjectID()}, nil)

	i := Incident{DB: incidentDB, Notifier: Notifier{UDB: userDB, NDB: notificationDB, RadiusKm: 20}}

	body := incidentBody(t, models.IncidentCreateRequest{
		Type:        models.IncidentTypeAccident,
		Description: "Two vehicle collision",
		Lat:         12.97,
		Lng:         77.59,
		Address:     "MG Road",
	})
	w := httptest.NewRecorder()
	i.CreateIncidentHandler(w, authedRequest(http.MethodPost, "/api/v1/incidents", body, caller))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateIncidentFanoutFailureStillCreated(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleUser}

	incidentDB := mocks.NewIncidentDatabase(t)
	incidentDB.On("InsertOne", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil)

	userDB := mocks.NewUserDatabase(t)
	userDB.On("Find", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("connection reset"))

	i := Incident{DB: incidentDB, Notifier: Notifier{UDB: userDB, NDB: mocks.NewNotificationDatabase(t), RadiusKm: 20}}

	body := incidentBody(t, models.IncidentCreateRequest{
		Type:        models.IncidentTypeAccident,
		Description: "Collision near the junction",
		Lat:         12.97,
		Lng:         77.59,
	})
	w := httptest.NewRecorder()
	i.CreateIncidentHandler(w, authedRequest(http.MethodPost, "/api/v1/incidents", body, caller))

	// report survives even when the notification fan-out does not
	assert.Equal(t, http.StatusCreated, w.Code)
}

func multipartIncident(t *testing.T, fields map[string]string, mediaName string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		assert.NoError(t, mw.WriteField(k, v))
	}
	if mediaName != "" {
		fw, err := mw.CreateFormFile("media", mediaName)
		assert.NoError(t, err)
		_, err = fw.Write([]byte("fake-image-bytes"))
		assert.NoError(t, err)
	}
	assert.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateIncidentUploadFailureAborts(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleUser}

	incidentDB := mocks.NewIncidentDatabase(t)
	i := Incident{
		DB:       incidentDB,
		Uploader: stubUploader{err: fmt.Errorf("upstream rejected the file")},
		Notifier: emptyNotifier(t),
	}

	body, contentType := multipartIncident(t, map[string]string{
		"type":        models.IncidentTypeAccident,
		"description": "Collision with media proof",
		"lat":         "12.97",
		"lng":         "77.59",
	}, "crash.jpg")

	r := authedRequest(http.MethodPost, "/api/v1/incidents", body, caller)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	i.CreateIncidentHandler(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	incidentDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestCreateIncidentMultipartWithMedia(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleUser}

	incidentDB := mocks.NewIncidentDatabase(t)
	incidentDB.On("InsertOne", mock.Anything, mock.MatchedBy(func(incident models.Incident) bool {
		return incident.Details.MediaURL == "https://cdn.example.com/crash.jpg"
	})).Return(primitive.NewObjectID(), nil)

	i := Incident{
		DB:       incidentDB,
		Uploader: stubUploader{url: "https://cdn.example.com/crash.jpg"},
		Notifier: emptyNotifier(t),
	}

	body, contentType := multipartIncident(t, map[string]string{
		"type":        models.IncidentTypeCrime,
		"description": "Hit and run caught on camera",
		"lat":         "12.97",
		"lng":         "77.59",
	}, "crash.jpg")

	r := authedRequest(http.MethodPost, "/api/v1/incidents", body, caller)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	i.CreateIncidentHandler(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestListIncidentsRedactsReporterForUsers(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleUser}
	reporter := primitive.NewObjectID()

	incidentDB := mocks.NewIncidentDatabase(t)
	incidentDB.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.Incident{accidentAt(12.97, 77.59, reporter)}, nil)

	i := Incident{DB: incidentDB}

	w := httptest.NewRecorder()
	i.ListIncidentsHandler(w, authedRequest(http.MethodGet, "/api/v1/incidents", nil, caller))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), reporter.Hex())
}

func TestListIncidentsKeepsReporterForPolice(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleTrafficPolice}
	reporter := primitive.NewObjectID()

	incidentDB := mocks.NewIncidentDatabase(t)
	incidentDB.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.Incident{accidentAt(12.97, 77.59, reporter)}, nil)

	i := Incident{DB: incidentDB}

	w := httptest.NewRecorder()
	i.ListIncidentsHandler(w, authedRequest(http.MethodGet, "/api/v1/incidents", nil, caller))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), reporter.Hex())
}

func TestUpdateIncidentStatusNotFound(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleTrafficPolice}
	incidentID := primitive.NewObjectID()

	incidentDB := mocks.NewIncidentDatabase(t)
	incidentDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0, ModifiedCount: 0}, nil)

	i := Incident{DB: incidentDB}

	body, _ := json.Marshal(models.IncidentStatusRequest{Status: models.IncidentStatusVerified})
	r := authedRequest(http.MethodPatch, "/api/v1/incidents/"+incidentID.Hex()+"/status", bytes.NewBuffer(body), caller)
	r = muxVars(r, map[string]string{"incident_id": incidentID.Hex()})
	w := httptest.NewRecorder()
	i.UpdateIncidentStatusHandler(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateIncidentStatusInvalidValueRejected(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleTrafficPolice}
	incidentID := primitive.NewObjectID()

	incidentDB := mocks.NewIncidentDatabase(t)
	i := Incident{DB: incidentDB}

	body, _ := json.Marshal(models.IncidentStatusRequest{Status: "Archived"})
	r := authedRequest(http.MethodPatch, "/api/v1/incidents/"+incidentID.Hex()+"/status", bytes.NewBuffer(body), caller)
	r = muxVars(r, map[string]string{"incident_id": incidentID.Hex()})
	w := httptest.NewRecorder()
	i.UpdateIncidentStatusHandler(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	incidentDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateIncidentStatusReturnsUpdated(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	incident := accidentAt(12.97, 77.59, primitive.NewObjectID())
	incident.Details.Status = models.IncidentStatusVerified

	incidentDB := mocks.NewIncidentDatabase(t)
	incidentDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	incidentDB.On("FindOne", mock.Anything, mock.Anything).Return(&incident, nil)

	i := Incident{DB: incidentDB}

	body, _ := json.Marshal(models.IncidentStatusRequest{Status: models.IncidentStatusVerified})
	r := authedRequest(http.MethodPatch, "/api/v1/incidents/"+incident.ID.Hex()+"/status", bytes.NewBuffer(body), caller)
	r = muxVars(r, map[string]string{"incident_id": incident.ID.Hex()})
	w := httptest.NewRecorder()
	i.UpdateIncidentStatusHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Incident
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.IncidentStatusVerified, got.Details.Status)
}

func TestIncidentStatsMapsTypeBuckets(t *testing.T) {
	caller := api.UserContext{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	incidentDB := mocks.NewIncidentDatabase(t)
	incidentDB.On("CountByType", mock.Anything).Return([]models.IncidentTypeCount{
		{Type: models.IncidentTypeAccident, Count: 4},
		{Type: models.IncidentTypeSpeeding, Count: 2},
	}, nil)

	i := Incident{DB: incidentDB}

	w := httptest.NewRecorder()
	i.IncidentStatsHandler(w, authedRequest(http.MethodGet, "/api/v1/incidents/stats", nil, caller))

	assert.Equal(t, http.StatusOK, w.Code)

	var stats map[string]int64
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(4), stats[models.IncidentTypeAccident])
	assert.Equal(t, int64(2), stats[models.IncidentTypeSpeeding])
}
