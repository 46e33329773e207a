package regl

// Option configures an instance during creation.
// Use functional options to customize behavior.
//
// Example:
//
//	// Plain instance over a context
//	r, err := regl.New(glctx, 800, 600)
//
//	// Profiling enabled for every command
//	r, err := regl.New(glctx, 800, 600, regl.WithProfile(true))
type Option func(*instanceOptions)

// instanceOptions holds optional configuration for instance creation.
type instanceOptions struct {
	profile    bool
	pixelRatio float64
	context    map[string]any
}

// defaultInstanceOptions returns the default instance options.
func defaultInstanceOptions() instanceOptions {
	return instanceOptions{
		profile:    false,
		pixelRatio: 1,
	}
}

// WithProfile enables profiling for every command created by the
// instance. Individual commands can still override this with their own
// Profile field. Without timer-query support only CPU time and call
// counts are collected.
func WithProfile(enabled bool) Option {
	return func(o *instanceOptions) {
		o.profile = enabled
	}
}

// WithPixelRatio sets the pixel ratio reported in the ambient context
// (Env.PixelRatio). Defaults to 1.
func WithPixelRatio(ratio float64) Option {
	return func(o *instanceOptions) {
		if ratio > 0 {
			o.pixelRatio = ratio
		}
	}
}

// WithContext seeds user entries of the ambient context. Commands read
// them through regl.Context references, and scopes may override them.
func WithContext(values map[string]any) Option {
	return func(o *instanceOptions) {
		if o.context == nil {
			o.context = make(map[string]any, len(values))
		}
		for k, v := range values {
			o.context[k] = v
		}
	}
}
