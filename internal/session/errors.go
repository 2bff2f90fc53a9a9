package session

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrProfileUnavailable = errors.New("user profile could not be loaded")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrMissingToken       = errors.New("backend did not issue a token")
)
