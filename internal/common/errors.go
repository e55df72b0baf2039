// Package common defines shared sentinel errors and small helpers used across
// the stockkeeper server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorForbidden  = errors.New("forbidden")
	ErrorValidation = errors.New("validation error")
	ErrorConflict   = errors.New("conflict")

	// Enrolment is switched off in configuration.
	ErrorEnrollDisabled = errors.New("enroll disabled")
)
