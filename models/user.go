package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Roles assignable to an account. Exactly one admin account may exist
// system-wide; traffic police accounts require admin approval before
// they can authenticate.
const (
	RoleUser          = "user"
	RoleAdmin         = "admin"
	RoleTrafficPolice = "traffic_police"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Details UserDetails        `json:"user" bson:"user"`
}

// UserDetails holds the structure for the inner user structure as defined
// in the user collection in mongo
type UserDetails struct {
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	Password       string             `json:"password,omitempty" bson:"password"`
	Role           string             `json:"role" bson:"role"`
	LicenseNumber  string             `json:"licenseNumber,omitempty" bson:"licenseNumber,omitempty"`
	VehicleNumber  string             `json:"vehicleNumber,omitempty" bson:"vehicleNumber,omitempty"`
	Gender         string             `json:"gender,omitempty" bson:"gender,omitempty"`
	Age            int                `json:"age,omitempty" bson:"age,omitempty"`
	Address        string             `json:"address,omitempty" bson:"address,omitempty"`
	Location       *Location          `json:"location,omitempty" bson:"location,omitempty"`
	ProfilePicture string             `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
	IsApproved     bool               `json:"isApproved" bson:"isApproved"`
	CreatedAt      primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt      primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// Location is a last-known geo position shared by the client. Users without
// one are never targeted by the proximity notifier.
type Location struct {
	Lat     float64 `json:"lat" bson:"lat"`
	Lng     float64 `json:"lng" bson:"lng"`
	Address string  `json:"address,omitempty" bson:"address,omitempty"`
}

// IsPrivileged reports whether the role may review incidents and issue fines
func IsPrivileged(role string) bool {
	return role == RoleAdmin || role == RoleTrafficPolice
}

// UserListResponse is the paginated payload for the user listing endpoint
type UserListResponse struct {
	Users []User `json:"users"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
	Total int64  `json:"total"`
}
