package match

import "errors"

// ErrMalformedMatch is returned when a match body lacks a required field or
// has a field of the wrong type.
var ErrMalformedMatch = errors.New("malformed match record")
