package tiktok

import "errors"

var (
	// ErrInvalidMethod is returned when a request uses a verb outside GET, POST, PUT, PATCH and DELETE.
	ErrInvalidMethod = errors.New("invalid method: must be one of GET, POST, PUT, PATCH, DELETE")
	// ErrMissingEndpoint is returned when a request descriptor has no endpoint.
	ErrMissingEndpoint = errors.New("endpoint is required")
)
