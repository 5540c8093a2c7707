// Package common defines shared sentinel errors used across the layers
// of authkeeper. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrAuthenticationFailed deliberately covers both an unknown
	// identifier and a wrong password, so login responses cannot be used
	// to enumerate accounts.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Refresh-token lifecycle errors.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrAccountNotFound     = errors.New("account not found")
	ErrDeviceMismatch      = errors.New("refresh token bound to another device")

	// Access-token verification errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Account management errors.
	ErrEmailTaken = errors.New("email already registered")
	ErrForbidden  = errors.New("forbidden")
)
