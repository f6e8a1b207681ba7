package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashish-0314/Traffic-Management/api"
	"github.com/ashish-0314/Traffic-Management/databases/mocks"
	"github.com/ashish-0314/Traffic-Management/models"
)

var testAuth = api.Auth{Secret: []byte("test-secret")}

func registerBody(t *testing.T, req models.RegisterRequest) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(req)
	assert.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestRegisterCreatesUserWithToken(t *testing.T) {
	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, bson.M{"user.email": "jane@example.com"}).
		Return(nil, mongo.ErrNoDocuments)
	userDB.On("InsertOne", mock.Anything, mock.MatchedBy(func(user models.User) bool {
		return user.Details.Email == "jane@example.com" &&
			user.Details.Role == models.RoleUser &&
			user.Details.IsApproved &&
			user.Details.Password != "secret123"
	})).Return(primitive.NewObjectID(), nil)

	a := Auth{DB: userDB, Auth: testAuth}

	body := registerBody(t, models.RegisterRequest{Name: "Jane", Email: "jane@example.com", Password: "secret123"})
	w := httptest.NewRecorder()
	a.RegisterHandler(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleUser, resp.Role)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	existing := &models.User{ID: primitive.NewObjectID(), Details: models.UserDetails{Email: "jane@example.com"}}

	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, mock.Anything).Return(existing, nil)

	a := Auth{DB: userDB, Auth: testAuth}

	body := registerBody(t, models.RegisterRequest{Name: "Jane", Email: "jane@example.com", Password: "secret123"})
	w := httptest.NewRecorder()
	a.RegisterHandler(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body))

	assert.Equal(t, http.StatusConflict, w.Code)
	userDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestRegisterSecondAdminConflicts(t *testing.T) {
	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	userDB.On("CountDocuments", mock.Anything, bson.M{"user.role": models.RoleAdmin}).
		Return(int64(1), nil)

	a := Auth{DB: userDB, Auth: testAuth}

	body := registerBody(t, models.RegisterRequest{
		Name: "Second Admin", Email: "admin2@example.com", Password: "secret123", Role: models.RoleAdmin,
	})
	w := httptest.NewRecorder()
	a.RegisterHandler(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body))

	assert.Equal(t, http.StatusConflict, w.Code)
	userDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestRegisterTrafficPolicePendingApproval(t *testing.T) {
	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	userDB.On("InsertOne", mock.Anything, mock.MatchedBy(func(user models.User) bool {
		return user.Details.Role == models.RoleTrafficPolice && !user.Details.IsApproved
	})).Return(primitive.NewObjectID(), nil)

	a := Auth{DB: userDB, Auth: testAuth}

	body := registerBody(t, models.RegisterRequest{
		Name: "Officer", Email: "officer@example.com", Password: "secret123", Role: models.RoleTrafficPolice,
	})
	w := httptest.NewRecorder()
	a.RegisterHandler(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Token)
	assert.Contains(t, resp.Message, "pending admin approval")
}

func TestRegisterInvalidPayload(t *testing.T) {
	a := Auth{DB: mocks.NewUserDatabase(t), Auth: testAuth}

	body := registerBody(t, models.RegisterRequest{Name: "Jane", Email: "not-an-email", Password: "secret123"})
	w := httptest.NewRecorder()
	a.RegisterHandler(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func approvedUser(t *testing.T, email, password, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return &models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			Name:       "Jane",
			Email:      email,
			Password:   string(hash),
			Role:       role,
			IsApproved: true,
		},
	}
}

func TestLoginReturnsToken(t *testing.T) {
	user := approvedUser(t, "jane@example.com", "secret123", models.RoleUser)

	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, bson.M{"user.email": "jane@example.com"}).Return(user, nil)

	a := Auth{DB: userDB, Auth: testAuth}

	body, _ := json.Marshal(models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	w := httptest.NewRecorder()
	a.LoginHandler(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBuffer(body)))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID.Hex(), resp.ID)
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	user := approvedUser(t, "jane@example.com", "secret123", models.RoleUser)

	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)

	a := Auth{DB: userDB, Auth: testAuth}

	body, _ := json.Marshal(models.LoginRequest{Email: "jane@example.com", Password: "wrong-password"})
	w := httptest.NewRecorder()
	a.LoginHandler(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBuffer(body)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnknownEmailUnauthorized(t *testing.T) {
	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	a := Auth{DB: userDB, Auth: testAuth}

	body, _ := json.Marshal(models.LoginRequest{Email: "ghost@example.com", Password: "secret123"})
	w := httptest.NewRecorder()
	a.LoginHandler(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBuffer(body)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnapprovedPoliceForbidden(t *testing.T) {
	user := approvedUser(t, "officer@example.com", "secret123", models.RoleTrafficPolice)
	user.Details.IsApproved = false

	userDB := mocks.NewUserDatabase(t)
	userDB.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)

	a := Auth{DB: userDB, Auth: testAuth}

	body, _ := json.Marshal(models.LoginRequest{Email: "officer@example.com", Password: "secret123"})
	w := httptest.NewRecorder()
	a.LoginHandler(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBuffer(body)))

	assert.Equal(t, http.StatusForbidden, w.Code)
}
