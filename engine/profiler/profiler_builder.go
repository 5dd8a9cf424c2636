package profiler

import (
	"time"

	"go.uber.org/zap"
)

// ProfilerBuilderOption is a functional option applied to a profiler during construction.
type ProfilerBuilderOption func(*profiler)

// WithInterval sets how often statistics are logged. Values of zero or less keep the 1 second
// default.
//
// Parameters:
//   - interval: the logging interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *profiler) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithStart sets the start of the first interval.
//
// Parameters:
//   - start: the interval start
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithStart(start time.Time) ProfilerBuilderOption {
	return func(p *profiler) {
		p.lastTime = start
	}
}

// WithFields appends caller-provided fields, such as renderer counters, to every summary.
//
// Parameters:
//   - fields: called once per logged interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithFields(fields func() []zap.Field) ProfilerBuilderOption {
	return func(p *profiler) {
		p.fields = fields
	}
}
