package resource

import (
	"time"

	"github.com/benchkit-project/benchkit-go/pkg/trace"
)

// Option configures a Resource at Open time.
type Option func(*options)

type options struct {
	openTimeout time.Duration
	ioTimeout   time.Duration
	queryDelay  time.Duration
	retryLimit  int
	retryDelay  time.Duration
	clear       bool
	tracer      trace.Logger
}

func defaultOptions() options {
	return options{
		openTimeout: 1 * time.Second,
		ioTimeout:   1 * time.Second,
		tracer:      trace.NoopLogger{},
	}
}

// WithOpenTimeout bounds connection establishment.
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) { o.openTimeout = d }
}

// WithIOTimeout bounds individual I/O operations.
func WithIOTimeout(d time.Duration) Option {
	return func(o *options) { o.ioTimeout = d }
}

// WithQueryDelay sets the pause between the write and read halves of a
// query.
func WithQueryDelay(d time.Duration) Option {
	return func(o *options) { o.queryDelay = d }
}

// WithRetryLimit sets how many times a transient transport fault is
// retried before the operation fails. 0 means exactly one attempt.
func WithRetryLimit(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.retryLimit = n
	}
}

// WithRetryDelay inserts a pause between retry attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// WithClear clears the device input/output buffers right after the
// session is established.
func WithClear() Option {
	return func(o *options) { o.clear = true }
}

// WithTracer forwards all traffic on the resource to the given logger.
func WithTracer(l trace.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.tracer = l
		}
	}
}
