package domain

import "errors"

var (
	// ErrMalformedBatch marks a record listing that is not a mapping of record lists.
	ErrMalformedBatch = errors.New("malformed record batch")
	// ErrMalformedCV marks a CV document that is not an object.
	ErrMalformedCV = errors.New("malformed cv document")
)
