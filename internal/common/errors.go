// Package common holds the sentinel errors shared by the store, the services
// and the HTTP boundary. Callers match them with errors.Is.
package common

import "errors"

var (
	// ErrConflict is returned when a username is already taken.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned when a referenced user or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAuthentication covers bad credentials and missing or invalid tokens.
	ErrAuthentication = errors.New("authentication failed")
	// ErrForbidden is returned when an authenticated principal may not touch a resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned for requests that can never succeed as sent.
	ErrInvalidInput = errors.New("invalid input")
)
