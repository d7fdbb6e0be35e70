package domain

import "errors"

var (
	// ErrInvalidInput signals a malformed client request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingCoordinates signals a location query without lat/lon.
	ErrMissingCoordinates = errors.New("lat and lon are required")
	// ErrInvalidFilter signals an undecodable filter expression.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrNotFound signals a missing (or soft-deleted) track.
	ErrNotFound = errors.New("track not found")
	// ErrAlreadyExists signals a trackId collision on create.
	ErrAlreadyExists = errors.New("track already exists")
	// ErrForbidden signals a write by someone other than the owner.
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable signals that the store is failing fast.
	ErrUnavailable = errors.New("store unavailable")
)
