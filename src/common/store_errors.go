package common

import (
	"errors"
	"fmt"
)

// StoreErrType ...
type StoreErrType uint32

const (
	// KeyNotFound ...
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists ...
	KeyAlreadyExists
	// SkippedIndex is returned when a feed message would leave a gap in the
	// sequence.
	SkippedIndex
	// ReadOnly is returned when writing to a feed that was not opened for
	// writing.
	ReadOnly
	// Closed ...
	Closed
)

// StoreErr ...
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

func (t StoreErrType) String() string {
	switch t {
	case KeyNotFound:
		return "Not Found"
	case KeyAlreadyExists:
		return "Key Already Exists"
	case SkippedIndex:
		return "Skipped Index"
	case ReadOnly:
		return "Read Only"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("StoreErrType(%d)", uint32(t))
	}
}

// Error ...
func (e StoreErr) Error() string {
	if e.key == "" {
		return fmt.Sprintf("%s, %s", e.dataType, e.errType)
	}
	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, e.errType)
}

// IsStore reports whether err, or an error it wraps, is a StoreErr of type t.
func IsStore(err error, t StoreErrType) bool {
	var storeErr StoreErr
	return errors.As(err, &storeErr) && storeErr.errType == t
}
