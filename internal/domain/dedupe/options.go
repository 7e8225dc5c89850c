package dedupe

// Option applies a configuration option to the in-memory Deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds how many ids are remembered. When full, the oldest id
// is forgotten first. Zero or negative means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
