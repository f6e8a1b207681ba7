package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIncidentCreateRequest(t *testing.T) {
	valid := IncidentCreateRequest{
		Type:        IncidentTypeAccident,
		Description: "Two vehicle collision",
		Lat:         12.97,
		Lng:         77.59,
	}
	assert.NoError(t, Validate(valid))

	badType := valid
	badType.Type = "Tornado"
	assert.Error(t, Validate(badType))

	badLat := valid
	badLat.Lat = 91
	assert.Error(t, Validate(badLat))

	badLng := valid
	badLng.Lng = -181
	assert.Error(t, Validate(badLng))

	noDescription := valid
	noDescription.Description = ""
	assert.Error(t, Validate(noDescription))
}

func TestValidateRegisterRequest(t *testing.T) {
	valid := RegisterRequest{Name: "Jane", Email: "jane@example.com", Password: "secret123"}
	assert.NoError(t, Validate(valid))

	badEmail := valid
	badEmail.Email = "not-an-email"
	assert.Error(t, Validate(badEmail))

	shortPassword := valid
	shortPassword.Password = "abc"
	assert.Error(t, Validate(shortPassword))

	badRole := valid
	badRole.Role = "superuser"
	assert.Error(t, Validate(badRole))

	policeRole := valid
	policeRole.Role = RoleTrafficPolice
	assert.NoError(t, Validate(policeRole))
}

func TestValidateFineIssueRequest(t *testing.T) {
	valid := FineIssueRequest{Email: "driver@example.com", Amount: 500, Reason: "Overspeeding"}
	assert.NoError(t, Validate(valid))

	zeroAmount := valid
	zeroAmount.Amount = 0
	assert.Error(t, Validate(zeroAmount))

	negativeAmount := valid
	negativeAmount.Amount = -10
	assert.Error(t, Validate(negativeAmount))

	// recipient presence is checked by the handler, not the validator
	noRecipient := FineIssueRequest{Amount: 100, Reason: "No parking"}
	assert.NoError(t, Validate(noRecipient))
}

func TestValidateIncidentStatusRequest(t *testing.T) {
	assert.NoError(t, Validate(IncidentStatusRequest{Status: IncidentStatusVerified}))
	assert.Error(t, Validate(IncidentStatusRequest{Status: "Archived"}))
	assert.Error(t, Validate(IncidentStatusRequest{}))
}

func TestIsPrivileged(t *testing.T) {
	assert.True(t, IsPrivileged(RoleAdmin))
	assert.True(t, IsPrivileged(RoleTrafficPolice))
	assert.False(t, IsPrivileged(RoleUser))
	assert.False(t, IsPrivileged(""))
}
