package tablestore

import (
	"time"

	"github.com/okian/tftscrape/pkg/logger"
)

// Option applies a configuration option to a Writer or Loader.
type Option func(*settings)

type settings struct {
	logger logger.Logger
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{logger: logger.Discard()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// LoadOption customizes a single Load call.
type LoadOption func(*loadConfig)

type loadConfig struct {
	tables     []string
	daysCutoff int
	setFilter  string
	now        func() time.Time
}

// DefaultDaysCutoff is the load window when WithDaysCutoff is not given.
const DefaultDaysCutoff = 7

// WithTables restricts loading to the named tables. Empty means all six.
func WithTables(names ...string) LoadOption {
	return func(c *loadConfig) {
		if len(names) > 0 {
			c.tables = names
		}
	}
}

// WithDaysCutoff keeps rows no older than days. Zero or negative disables
// the window.
func WithDaysCutoff(days int) LoadOption {
	return func(c *loadConfig) {
		c.daysCutoff = days
	}
}

// WithSetFilter keeps rows whose tft_set_name equals name. Empty disables it.
func WithSetFilter(name string) LoadOption {
	return func(c *loadConfig) {
		c.setFilter = name
	}
}

// WithClock replaces time.Now for the date window.
func WithClock(now func() time.Time) LoadOption {
	return func(c *loadConfig) {
		if now != nil {
			c.now = now
		}
	}
}
