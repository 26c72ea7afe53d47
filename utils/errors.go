package utils

import "errors"

var ErrPersonNotFound = errors.New("person not found")

// ConflictError is returned when a write collides with an existing row.
// ConflictUUID identifies the row that already holds the value.
type ConflictError struct {
	Message      string
	ConflictUUID string
}

func (e *ConflictError) Error() string {
	if e.ConflictUUID == "" {
		return e.Message
	}
	return e.Message + " (" + e.ConflictUUID + ")"
}
