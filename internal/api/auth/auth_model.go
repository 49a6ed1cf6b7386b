package auth

import "github.com/diszexuf/streamlive/internal/types"

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the issued bearer token.
type AuthResponse struct {
	Token string             `json:"token"`
	User  *types.UserProfile `json:"user,omitempty"`
}
