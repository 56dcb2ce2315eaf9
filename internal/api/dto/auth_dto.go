package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccountResponse is the public identity of an account.
type AccountResponse struct {
	ID        string `json:"id"`
	DisplayID string `json:"displayId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// LoginResponse wraps a login result.
type LoginResponse struct {
	Account AccountResponse `json:"account"`
	Auth    AuthResponse    `json:"auth"`
}

// CreateAccountRequest payload for account provisioning.
type CreateAccountRequest struct {
	DisplayID string `json:"displayId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}
