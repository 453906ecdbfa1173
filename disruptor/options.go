package disruptor

import "go.uber.org/zap"

// config holds construction options, mirroring the functional-options
// pattern used throughout this repo's demo and adapted from the ring
// buffer Config/DefaultConfig pair this package is grounded on.
type config struct {
	multiproc     bool
	signalFactory SignalFactory
	logger        *zap.Logger
	metrics       MetricsRecorder
}

func defaultConfig() config {
	return config{
		multiproc:     false,
		signalFactory: defaultSignalFactory,
		logger:        zap.NewNop(),
		metrics:       noopMetrics{},
	}
}

// Option configures a Disruptor at construction time.
type Option func(*config)

// WithMultiproc records that subscribers may live in separate processes.
// It does not by itself change signalling behavior — pair it with
// WithSignalFactory and a process-shared factory (see package
// distbarrier) to actually share barriers across processes.
func WithMultiproc(enabled bool) Option {
	return func(c *config) { c.multiproc = enabled }
}

// WithSignalFactory overrides how the Disruptor and every Subscriber it
// registers mint their wait/broadcast primitive. The default mints
// in-process channel-based broadcasters.
func WithSignalFactory(factory SignalFactory) Option {
	return func(c *config) {
		if factory != nil {
			c.signalFactory = factory
		}
	}
}

// WithLogger attaches a zap.Logger used at subscriber registration,
// subscriber removal, and close. The publish and wait_for hot paths never
// log, and publish timeouts are not logged.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches a MetricsRecorder, notified at subscriber
// registration, subscriber removal, close, every publish timeout, and once
// after every successful publish.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}
