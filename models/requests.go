package models

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	Role          string `json:"role" validate:"omitempty,oneof=user admin traffic_police"`
	LicenseNumber string `json:"licenseNumber" validate:"omitempty"`
	VehicleNumber string `json:"vehicleNumber" validate:"omitempty"`
	Gender        string `json:"gender" validate:"omitempty,oneof=Male Female Other 'Prefer not to say'"`
	Age           int    `json:"age" validate:"omitempty,gte=0,lte=120"`
	Address       string `json:"address" validate:"omitempty"`
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned from register and login
type AuthResponse struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// IncidentCreateRequest is the report-incident payload. Lat/lng are
// range-checked by the custom lat/lng validators.
type IncidentCreateRequest struct {
	Type          string  `json:"type" validate:"required,oneof=Accident Crime Speeding RedLightViolation Congestion Other"`
	Description   string  `json:"description" validate:"required"`
	Lat           float64 `json:"lat" validate:"lat"`
	Lng           float64 `json:"lng" validate:"lng"`
	Address       string  `json:"address" validate:"omitempty"`
	VehicleNumber string  `json:"vehicleNumber" validate:"omitempty"`
	MediaURL      string  `json:"mediaUrl" validate:"omitempty,url"`
}

// IncidentStatusRequest carries the reviewer's status decision
type IncidentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Verified Rejected Resolved"`
}

// FineIssueRequest is the issue-fine payload; at least one of email or
// vehicleNumber must be supplied, resolution precedence is email first.
type FineIssueRequest struct {
	Email         string  `json:"email" validate:"omitempty,email"`
	VehicleNumber string  `json:"vehicleNumber" validate:"omitempty"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Reason        string  `json:"reason" validate:"required"`
}

// PaymentOrderRequest creates a gateway order for the given amount
type PaymentOrderRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// PaymentVerifyRequest is the gateway completion callback relayed by the client
type PaymentVerifyRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
	FineID    string `json:"fineId" validate:"required"`
}

// PasswordChangeRequest updates the caller's password
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// ProfileUpdateRequest is the JSON form of the profile update payload
type ProfileUpdateRequest struct {
	Name          string    `json:"name" validate:"omitempty"`
	Gender        string    `json:"gender" validate:"omitempty,oneof=Male Female Other 'Prefer not to say'"`
	Age           int       `json:"age" validate:"omitempty,gte=0,lte=120"`
	Address       string    `json:"address" validate:"omitempty"`
	LicenseNumber string    `json:"licenseNumber" validate:"omitempty"`
	VehicleNumber *string   `json:"vehicleNumber" validate:"omitempty"`
	Location      *Location `json:"location" validate:"omitempty"`
}
