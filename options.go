package clinic

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options holds configuration options shared by [Clinic], [Queue], [Doctor]
// and [Arrivals]. Each component reads only the fields it needs.
type Options struct {
	Logger        zerolog.Logger
	Observer      Observer
	ServicePolicy ServicePolicy
	QueueHook     QueueHook
	NameFunc      func() string
}

// Option is a function that configures [Options].
type Option func(*Options)

func newOptions(opts []Option) *Options {
	o := &Options{
		Logger:        log.Logger,
		ServicePolicy: DefaultServicePolicy(),
		NameFunc:      randomPatientName,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used to report recovered observer failures and
// lifecycle events. It defaults to the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithObserver sets the [Observer] receiving status and log events.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		o.Observer = obs
	}
}

// WithServicePolicy sets the service time ranges used by doctors.
func WithServicePolicy(p ServicePolicy) Option {
	return func(o *Options) {
		o.ServicePolicy = p
	}
}

// WithQueueHook sets the hook notified on every enqueue and dequeue.
func WithQueueHook(hook QueueHook) Option {
	return func(o *Options) {
		o.QueueHook = hook
	}
}

// WithNameFunc sets the generator used by [Arrivals] to name patients.
func WithNameFunc(fn func() string) Option {
	return func(o *Options) {
		o.NameFunc = fn
	}
}
