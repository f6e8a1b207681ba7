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
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashish-0314/Traffic-Management/api"
	"github.com/ashish-0314/Traffic-Management/config"
	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/models"
)

const maxUploadBytes = 10 << 20

// User exported for testing purposes
type User struct {
	DB       databases.UserDatabase
	Uploader Uploader
}

// ProfileHandler returns the caller's own profile
func (u User) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": caller.ID})
	if err != nil {
		config.ErrorStatus("failed to get user", http.StatusNotFound, w, err)
		return
	}
	user.Details.Password = ""

	b, err := json.Marshal(user)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UpdateProfileHandler updates the caller's profile. Accepts JSON or
// multipart form data; a multipart profilePicture part is uploaded before
// anything is written, so an upload failure leaves the profile untouched.
// Clearing vehicleNumber unsets the field to keep the sparse unique index
// from colliding on empty strings.
func (u User) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	req, pictureURL, err := u.decodeProfileUpdate(r)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("invalid profile payload", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{"user.updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	unset := bson.M{}
	if req.Name != "" {
		set["user.name"] = req.Name
	}
	if req.Gender != "" {
		set["user.gender"] = req.Gender
	}
	if req.Age != 0 {
		set["user.age"] = req.Age
	}
	if req.Address != "" {
		set["user.address"] = req.Address
	}
	if req.LicenseNumber != "" {
		set["user.licenseNumber"] = req.LicenseNumber
	}
	if req.Location != nil {
		set["user.location"] = req.Location
	}
	if pictureURL != "" {
		set["user.profilePicture"] = pictureURL
	}
	if req.VehicleNumber != nil {
		if *req.VehicleNumber == "" {
			unset["user.vehicleNumber"] = ""
		} else {
			set["user.vehicleNumber"] = *req.VehicleNumber
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := u.DB.UpdateOne(ctx, bson.M{"_id": caller.ID}, update); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			config.ErrorStatus("vehicle number already registered", http.StatusConflict, w, err)
			return
		}
		config.ErrorStatus("failed to update profile", http.StatusInternalServerError, w, err)
		return
	}

	user, err := u.DB.FindOne(ctx, bson.M{"_id": caller.ID})
	if err != nil {
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}
	user.Details.Password = ""

	b, err := json.Marshal(user)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (u User) decodeProfileUpdate(r *http.Request) (models.ProfileUpdateRequest, string, error) {
	var req models.ProfileUpdateRequest

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, "", err
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return req, "", err
	}

	req.Name = r.FormValue("name")
	req.Gender = r.FormValue("gender")
	req.Address = r.FormValue("address")
	req.LicenseNumber = r.FormValue("licenseNumber")
	if v := r.FormValue("age"); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil {
			return req, "", fmt.Errorf("invalid age %q", v)
		}
		req.Age = age
	}
	if _, ok := r.MultipartForm.Value["vehicleNumber"]; ok {
		v := r.FormValue("vehicleNumber")
		req.VehicleNumber = &v
	}
	if lat, lng := r.FormValue("lat"), r.FormValue("lng"); lat != "" && lng != "" {
		latF, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return req, "", fmt.Errorf("invalid lat %q", lat)
		}
		lngF, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return req, "", fmt.Errorf("invalid lng %q", lng)
		}
		req.Location = &models.Location{Lat: latF, Lng: lngF, Address: r.FormValue("locationAddress")}
	}

	file, header, err := r.FormFile("profilePicture")
	if err == http.ErrMissingFile {
		return req, "", nil
	}
	if err != nil {
		return req, "", err
	}
	defer file.Close()

	if u.Uploader == nil {
		return req, "", fmt.Errorf("media uploads are not configured")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return req, "", err
	}
	url, err := u.Uploader.Upload(r.Context(), data, header.Filename)
	if err != nil {
		return req, "", fmt.Errorf("failed to upload profile picture: %w", err)
	}
	return req, url, nil
}

// ChangePasswordHandler rotates the caller's password after verifying the
// current one
func (u User) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	var req models.PasswordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("invalid password payload", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": caller.ID})
	if err != nil {
		config.ErrorStatus("failed to get user", http.StatusNotFound, w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Details.Password), []byte(req.CurrentPassword)); err != nil {
		config.ErrorStatus("current password is incorrect", http.StatusUnauthorized, w, fmt.Errorf("failed to compare password"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	update := bson.M{"$set": bson.M{
		"user.password":  string(hashed),
		"user.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}}
	if _, err := u.DB.UpdateOne(ctx, bson.M{"_id": caller.ID}, update); err != nil {
		config.ErrorStatus("failed to update password", http.StatusInternalServerError, w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Password updated successfully."})
}

// ListUsersHandler returns a paginated user directory for privileged
// callers. Supports a free-text search across name, email and vehicle
// number, plus a role filter.
func (u User) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	filter := bson.M{}
	if search := r.URL.Query().Get("search"); search != "" {
		regex := bson.M{"$regex": search, "$options": "i"}
		filter["$or"] = []bson.M{
			{"user.name": regex},
			{"user.email": regex},
			{"user.vehicleNumber": regex},
		}
	}
	if role := r.URL.Query().Get("role"); role != "" {
		filter["user.role"] = role
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	total, err := u.DB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count users", http.StatusInternalServerError, w, err)
		return
	}

	users, err := u.DB.Find(ctx, filter, databases.PaginatedOpts(limit, page))
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusInternalServerError, w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	for i := range users {
		users[i].Details.Password = ""
	}

	b, err := json.Marshal(models.UserListResponse{
		Users: users,
		Page:  page,
		Pages: databases.TotalPages(total, limit),
		Total: total,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ApproveUserHandler flips a pending traffic police account to approved.
// The update is conditional on isApproved=false so re-approving an already
// approved account conflicts instead of silently succeeding.
func (u User) ApproveUserHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	userID := mux.Vars(r)["user_id"]

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("invalid user id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	update := bson.M{"$set": bson.M{
		"user.isApproved": true,
		"user.updatedAt":  primitive.NewDateTimeFromTime(time.Now()),
	}}
	res, err := u.DB.UpdateOne(ctx, bson.M{"_id": oid, "user.isApproved": false}, update)
	if err != nil {
		config.ErrorStatus("failed to approve user", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		// distinguish a missing account from one already approved
		if _, err := u.DB.FindOne(ctx, bson.M{"_id": oid}); err != nil {
			config.ErrorStatus("user not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("user is already approved", http.StatusConflict, w, fmt.Errorf("no pending approval for user %s", userID))
		return
	}

	zap.S().Infow("user approved", "userId", userID)
	json.NewEncoder(w).Encode(map[string]string{"message": "User approved successfully."})
}

// RejectUserHandler removes a pending account entirely
func (u User) RejectUserHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	userID := mux.Vars(r)["user_id"]

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("invalid user id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := u.DB.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("failed to reject user", http.StatusInternalServerError, w, err)
		return
	}
	if res.DeletedCount == 0 {
		config.ErrorStatus("user not found", http.StatusNotFound, w, fmt.Errorf("no user with id %s", userID))
		return
	}

	zap.S().Infow("user rejected", "userId", userID)
	json.NewEncoder(w).Encode(map[string]string{"message": "User rejected and removed."})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
