package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownField is returned when a field name is not a product detail
	ErrUnknownField = errors.New("unknown product field")

	// ErrSessionBusy is returned when an action needs an idle session
	ErrSessionBusy = errors.New("a scan session is already active")

	// ErrNoActiveRecord is returned when an action needs a record under review
	ErrNoActiveRecord = errors.New("no record is being reviewed")

	// ErrItemBusy is returned when a queued item is claimed by a sync pass or session
	ErrItemBusy = errors.New("queued item is being processed")

	// ErrNothingToProcess is returned when a batch would start empty
	ErrNothingToProcess = errors.New("nothing to process")
)

// StorageError represents a failed durable store operation
type StorageError struct {
	Op  string // Operation that caused the error
	Err error  // Original error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return "storage error: " + e.Op
	}
	return "storage error: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a queued id or confirmed timestamp is absent
type NotFoundError struct {
	Collection string
	Key        int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Collection, e.Key)
}

// ExtractionError represents a failed or malformed extraction call
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction error: " + e.Op
	}
	return "extraction error: " + e.Op + ": " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// FileReadError is returned when an uploaded file cannot be decoded as an image
type FileReadError struct {
	Name string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("cannot read %q: %v", e.Name, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}

// ValidationError lists per-field problems
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsNotFound reports whether err is a *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
