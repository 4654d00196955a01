package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a principal. The
// username field carries an admission number, staff id or plain username.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and the matched account.
type LoginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// NeedsActivationResponse is returned instead of a token when a
// pre-provisioned student/staff account has not chosen a password yet.
type NeedsActivationResponse struct {
	NeedsActivation bool   `json:"needsActivation"`
	Username        string `json:"username"`
	UserType        string `json:"userType"`
}

// ActivateRequest sets the first real password on a provisioned account.
type ActivateRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// ChangePasswordRequest payload for updating a password.
type ChangePasswordRequest struct {
	UserID      string `json:"userId" validate:"required"`
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// SetupRequest is the first-run installation payload.
type SetupRequest struct {
	SchoolName    string `json:"schoolName" validate:"required"`
	AdminUsername string `json:"adminUsername" validate:"required"`
	AdminPassword string `json:"adminPassword" validate:"required,min=6"`
	ProductKey    string `json:"productKey" validate:"required"`
}

// ActivateLicenseRequest renews or activates the license.
type ActivateLicenseRequest struct {
	ProductKey     string `json:"productKey" validate:"required"`
	DurationInDays int    `json:"durationInDays" validate:"required,gt=0"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}
