package cache

import "errors"

// ErrCacheIO is returned when a cache entry cannot be read, written or removed.
var ErrCacheIO = errors.New("cache io")
