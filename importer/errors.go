package importer

import (
	"errors"
	"fmt"
	"time"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
)

// ErrPersistenceConflict marks a unique-constraint violation, serialization
// failure or deadlock hit while writing. The whole ingest is safe to retry.
var ErrPersistenceConflict = errors.New("persistence conflict")

// ResolutionError means no formula version could be chosen for a
// competition date.
type ResolutionError struct {
	Date time.Time
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving formula for %s: %v", e.Date.Format(canonical.DateLayout), e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// conflictCodes are the SQLSTATEs that indicate a concurrent writer.
var conflictCodes = map[string]bool{
	"23505": true, // unique_violation
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

// sqlStateError matches pgdriver.Error, which exposes the server's
// ErrorResponse fields by their one-byte code.
type sqlStateError interface {
	error
	Field(k byte) string
}

// classify tags conflict errors with ErrPersistenceConflict and leaves
// everything else untouched.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrPersistenceConflict) {
		return err
	}
	var pgErr sqlStateError
	if errors.As(err, &pgErr) && conflictCodes[pgErr.Field('C')] {
		return fmt.Errorf("%w: %w", ErrPersistenceConflict, err)
	}
	return err
}

// IsRetryable reports whether err is worth retrying the ingest for.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistenceConflict)
}
