package calls

import "errors"

var (
	// ErrCallNotFound indicates no call matches the given id.
	ErrCallNotFound = errors.New("call not found")
	// ErrMissingProviderID indicates an upsert without a provider call id.
	ErrMissingProviderID = errors.New("provider call id is required")
)
