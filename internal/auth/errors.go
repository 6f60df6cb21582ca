package auth

import "errors"

var (
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword is returned when a password fails the minimum policy.
	ErrWeakPassword = errors.New("password too weak")
	// ErrUnauthorized represents missing or invalid authentication tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound is returned by UserStore implementations when no
	// account exists under the requested username.
	ErrUserNotFound = errors.New("user not found")
)
