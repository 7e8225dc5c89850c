package riot

import "errors"

var (
	// ErrTransport is returned when no HTTP response could be obtained.
	ErrTransport = errors.New("upstream transport failure")

	// ErrDecode is returned when an upstream body is not valid JSON or does
	// not have the expected shape.
	ErrDecode = errors.New("upstream decode failure")

	// ErrStatus is returned by GetMatch when the upstream answered with a
	// non-success status, e.g. 429 or 5xx.
	ErrStatus = errors.New("upstream non-success status")
)
