package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidCredentials    = errors.New("Invalid email or password")
	ErrPendingApproval       = errors.New("Account is awaiting approval")
	ErrAccountDisabled       = errors.New("Account is disabled")
	ErrNotAuthenticated      = errors.New("Not authenticated")
)
