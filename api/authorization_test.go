package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ashish-0314/Traffic-Management/models"
)

func TestCapabilityMatrix(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		role    string
		allowed bool
	}{
		{"user can report incidents", OpIncidentCreate, models.RoleUser, true},
		{"user cannot update incident status", OpIncidentUpdateStatus, models.RoleUser, false},
		{"police can update incident status", OpIncidentUpdateStatus, models.RoleTrafficPolice, true},
		{"admin can update incident status", OpIncidentUpdateStatus, models.RoleAdmin, true},
		{"user cannot see incident stats", OpIncidentStats, models.RoleUser, false},

		{"user cannot issue fines", OpFineIssue, models.RoleUser, false},
		{"police can issue fines", OpFineIssue, models.RoleTrafficPolice, true},
		{"user can pay own fines", OpFinePay, models.RoleUser, true},
		{"user cannot list all fines", OpFineListAll, models.RoleUser, false},
		{"user can list own fines", OpFineListMine, models.RoleUser, true},
		{"police can see fine stats", OpFineStats, models.RoleTrafficPolice, true},

		{"user cannot list users", OpUserList, models.RoleUser, false},
		{"police can list users", OpUserList, models.RoleTrafficPolice, true},
		{"police cannot approve users", OpUserApprove, models.RoleTrafficPolice, false},
		{"admin can approve users", OpUserApprove, models.RoleAdmin, true},
		{"police cannot reject users", OpUserReject, models.RoleTrafficPolice, false},
		{"admin can reject users", OpUserReject, models.RoleAdmin, true},

		{"user can read notifications", OpNotificationList, models.RoleUser, true},
		{"user can update own profile", OpProfileUpdate, models.RoleUser, true},

		{"unknown role denied", OpIncidentCreate, "superuser", false},
		{"empty role denied", OpIncidentList, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, Allowed(tc.op, tc.role))
		})
	}
}

func TestAuthorizeForbidsDisallowedRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := Authorize(OpFineIssue, next)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/fines", nil)
	r = r.WithContext(SetUserContext(r.Context(), UserContext{ID: primitive.NewObjectID(), Role: models.RoleUser}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizePassesAllowedRole(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	h := Authorize(OpFineIssue, next)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/fines", nil)
	r = r.WithContext(SetUserContext(r.Context(), UserContext{ID: primitive.NewObjectID(), Role: models.RoleTrafficPolice}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeRequiresAuthenticatedUser(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without an authenticated user")
	})

	h := Authorize(OpIncidentList, next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/incidents", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
