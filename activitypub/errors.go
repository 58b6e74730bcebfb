package activitypub

import (
	"errors"
	"fmt"
)

// Error is a user-facing pipeline failure: an HTTP status code plus a
// message. The boundary layer translates it into a response; this package
// never writes responses itself.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// AsError unwraps err into an *Error if it is one
func AsError(err error) (*Error, bool) {
	var apErr *Error
	if errors.As(err, &apErr) {
		return apErr, true
	}
	return nil, false
}

// ErrUnknownType marks an activity type no verifier exists for. This is a
// protocol-level fault and must not be mapped to a client error.
var ErrUnknownType = errors.New("no verifier for activity type")

// ErrNotFound is returned when a path matches a resource pattern but no
// record exists for it.
var ErrNotFound = errors.New("no local resource for path")

// ErrNoMatch is returned when a path doesn't match any resource pattern
// at all.
var ErrNoMatch = errors.New("path matches no resource pattern")
