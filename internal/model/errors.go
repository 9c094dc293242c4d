package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the notebook client, the sync service and the
// schema validator. Match with errors.Is.
var (
	ErrAuthentication  = errors.New("authentication failed")
	ErrExternalService = errors.New("external service error")
	ErrUnavailable     = fmt.Errorf("%w: service unavailable", ErrExternalService)
	ErrNotFound        = errors.New("not found")
	ErrMalformedEntity = errors.New("malformed entity")
	ErrInvalidSchema   = errors.New("invalid schema")
	ErrLimitExceeded   = errors.New("resource limit exceeded")
	ErrCycleDetected   = errors.New("folder cycle detected")
	ErrNotConfigured   = errors.New("no notebook folder configured")
)
