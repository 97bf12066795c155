package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports an operation referencing an id absent from the store.
// It is returned as a typed failure, never raised as a panic.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// DeniedError reports a mutator invoked by an actor lacking the required
// role. The core enforces this independently of the UI so that stale views
// cannot bypass authorization.
type DeniedError struct {
	Op    string
	Actor string
}

func (e DeniedError) Error() string {
	if e.Actor == "" {
		return fmt.Sprintf("%s: denied for anonymous actor", e.Op)
	}
	return fmt.Sprintf("%s: denied for actor %s", e.Op, e.Actor)
}

// QuotaError reports that the serialized state exceeded the persistent
// store's capacity. Size and Limit are in bytes.
type QuotaError struct {
	Size  int
	Limit int
}

func (e QuotaError) Error() string {
	return fmt.Sprintf("storage quota exceeded: %d bytes over %d byte limit", e.Size, e.Limit)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsDenied reports whether err wraps a DeniedError.
func IsDenied(err error) bool {
	var d DeniedError
	return errors.As(err, &d)
}

// IsQuotaExceeded reports whether err wraps a QuotaError.
func IsQuotaExceeded(err error) bool {
	var q QuotaError
	return errors.As(err, &q)
}
