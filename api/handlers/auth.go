package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashish-0314/Traffic-Management/api"
	"github.com/ashish-0314/Traffic-Management/config"
	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/models"
)

// Auth exported for testing purposes
type Auth struct {
	DB   databases.UserDatabase
	Auth api.Auth
}

// RegisterHandler creates an account. Requesting the admin role conflicts
// when an admin already exists; traffic police accounts are created
// unapproved and receive no token.
func (a Auth) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("invalid registration payload", http.StatusBadRequest, w, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := a.DB.FindOne(ctx, bson.M{"user.email": req.Email}); err == nil {
		config.ErrorStatus("email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email"))
		return
	}

	if req.Role == models.RoleAdmin {
		count, err := a.DB.CountDocuments(ctx, bson.M{"user.role": models.RoleAdmin})
		if err != nil {
			config.ErrorStatus("failed to check for existing admin", http.StatusInternalServerError, w, err)
			return
		}
		if count > 0 {
			config.ErrorStatus("admin already exists, only one admin allowed", http.StatusConflict, w, fmt.Errorf("duplicate admin"))
			return
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	user := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			Name:          req.Name,
			Email:         req.Email,
			Password:      string(hashedPassword),
			Role:          req.Role,
			LicenseNumber: req.LicenseNumber,
			VehicleNumber: req.VehicleNumber,
			Gender:        req.Gender,
			Age:           req.Age,
			Address:       req.Address,
			IsApproved:    req.Role != models.RoleTrafficPolice,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}

	if _, err := a.DB.InsertOne(ctx, user); err != nil {
		// the partial admin index and the sparse vehicle index close the
		// races the pre-checks leave open
		config.ErrorStatus("failed to create user", http.StatusConflict, w, err)
		return
	}

	resp := models.AuthResponse{
		ID:    user.ID.Hex(),
		Name:  user.Details.Name,
		Email: user.Details.Email,
		Role:  user.Details.Role,
	}

	if user.Details.Role == models.RoleTrafficPolice {
		resp.Message = "Registration successful. Account pending admin approval."
	} else {
		token, err := a.Auth.GenerateToken(user.ID.Hex(), user.Details.Role)
		if err != nil {
			config.ErrorStatus("failed to generate token", http.StatusInternalServerError, w, err)
			return
		}
		resp.Token = token
	}

	zap.S().Infow("user registered",
		"userId", user.ID.Hex(),
		"role", user.Details.Role,
	)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// LoginHandler verifies credentials and returns a bearer token. Unapproved
// traffic police accounts cannot authenticate.
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("invalid login payload", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.DB.FindOne(ctx, bson.M{"user.email": req.Email})
	if err != nil {
		config.ErrorStatus("invalid email or password", http.StatusUnauthorized, w, fmt.Errorf("no matching email found"))
		return
	}

	if !user.Details.IsApproved {
		config.ErrorStatus("account pending admin approval", http.StatusForbidden, w, fmt.Errorf("account not approved"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Details.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("invalid email or password", http.StatusUnauthorized, w, fmt.Errorf("failed to compare password"))
		return
	}

	token, err := a.Auth.GenerateToken(user.ID.Hex(), user.Details.Role)
	if err != nil {
		config.ErrorStatus("failed to generate token", http.StatusInternalServerError, w, err)
		return
	}

	json.NewEncoder(w).Encode(models.AuthResponse{
		ID:    user.ID.Hex(),
		Name:  user.Details.Name,
		Email: user.Details.Email,
		Role:  user.Details.Role,
		Token: token,
	})
}
