package region

import "errors"

// ErrUnknownRegion is returned when a region code has no routing entry.
var ErrUnknownRegion = errors.New("unknown region")
