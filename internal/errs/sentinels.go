// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrConfiguration indicates required provider credentials or settings are missing.
	ErrConfiguration = errors.New("configuration missing")

	// ErrAuth indicates the token exchange was rejected by the provider.
	ErrAuth = errors.New("auth failed")

	// ErrTemplateFetch indicates the remote template or its document could not be fetched.
	ErrTemplateFetch = errors.New("template fetch failed")

	// ErrMerge indicates one of the PDF inputs could not be parsed or combined.
	ErrMerge = errors.New("pdf merge failed")

	// ErrSubmission indicates the provider rejected the envelope.
	ErrSubmission = errors.New("envelope submission failed")

	// ErrValidation indicates the source record lacks required recipient data.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the target record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownEntityType indicates the record's doctype is not registered with the host system.
	ErrUnknownEntityType = errors.New("unknown entity type")
)
