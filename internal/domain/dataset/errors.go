package dataset

import "errors"

// ErrFlatten is returned when a record cannot be flattened.
var ErrFlatten = errors.New("flatten match")
