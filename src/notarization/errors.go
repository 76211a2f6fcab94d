package notarization

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// WriterNotSetCode is carried in the error returned by a responder that has
// no writer. It survives transports that only carry error strings.
const WriterNotSetCode = "WRITER_NOT_SET"

var (
	// ErrWriterNotSet is returned by OnNotarize when no writer was installed.
	ErrWriterNotSet = errors.New(WriterNotSetCode + ": notarization writer not set")

	// ErrClosed is returned by calls pending or started after Close.
	ErrClosed = errors.New("notarization plugin closed")

	// ErrMissingID is returned when a credential to notarize has no id.
	ErrMissingID = errors.New("credential must have an id")
)

// TimeoutError is returned when a Notarize call did not complete within the
// configured timeout. It is distinct from the RPC failures that are retried
// along the way.
type TimeoutError struct {
	Timeout time.Duration
	Pending int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("notarization timed out after %v (%d credentials pending)", e.Timeout, e.Pending)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsWriterNotSet reports whether err carries the WRITER_NOT_SET code, locally
// or after crossing the wire.
func IsWriterNotSet(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWriterNotSet) {
		return true
	}
	return strings.Contains(err.Error(), WriterNotSetCode)
}
