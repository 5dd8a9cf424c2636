package binder

// binderConfig collects BinderBuilderOption values before the generic binder is built.
type binderConfig struct {
	mipmaps bool
	workers int
}

// BinderBuilderOption is a function that configures a Binder during construction.
type BinderBuilderOption func(*binderConfig)

// WithMipmaps enables or disables mip chain generation at load. Enabled by default.
//
// Parameters:
//   - enabled: whether textures get a full mip chain
//
// Returns:
//   - BinderBuilderOption: a function that applies the mipmap policy
func WithMipmaps(enabled bool) BinderBuilderOption {
	return func(c *binderConfig) {
		c.mipmaps = enabled
	}
}

// WithWorkers sets the number of image decode workers. Values below 1 are ignored.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - BinderBuilderOption: a function that applies the worker count
func WithWorkers(n int) BinderBuilderOption {
	return func(c *binderConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}
