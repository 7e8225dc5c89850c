package config

import "errors"

var (
	// ErrInvalidConfig is returned when a loaded setting is out of range or
	// a command is missing a setting it needs, such as riot.token for scrape.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig is returned when the YAML file, .env or environment
	// cannot be read or decoded.
	ErrLoadConfig = errors.New("load config failed")
)
