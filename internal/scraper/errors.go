package scraper

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: timeouts, connection
// resets, 5xx and 429 responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient scrape error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure that will not succeed on retry: malformed
// payloads and non-retryable HTTP statuses.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal scrape error: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
