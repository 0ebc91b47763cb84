package clinic

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultArrivalPeriod is the time between two generated arrivals.
	DefaultArrivalPeriod = 3 * time.Second

	// DefaultArrivalDelay is the time before the first generated arrival.
	DefaultArrivalDelay = 2 * time.Second
)

// Arrivals periodically creates patients with a random priority and enqueues
// them. A failure while handling one arrival never prevents the next.
type Arrivals struct {
	queue    *Queue
	observer Observer
	logger   zerolog.Logger
	nameFunc func() string

	period time.Duration
	delay  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewArrivals creates a generator feeding queue. A non-positive period falls
// back to [DefaultArrivalPeriod] and a negative delay to [DefaultArrivalDelay].
func NewArrivals(queue *Queue, period, delay time.Duration, opts ...Option) *Arrivals {
	o := newOptions(opts)

	if period <= 0 {
		period = DefaultArrivalPeriod
	}
	if delay < 0 {
		delay = DefaultArrivalDelay
	}

	return &Arrivals{
		queue:    queue,
		observer: guard(o.Observer, o.Logger),
		logger:   o.Logger.With().Str("component", "arrivals").Logger(),
		nameFunc: o.NameFunc,
		period:   period,
		delay:    delay,
		stopCh:   make(chan struct{}),
	}
}

// Stop ends the generator. It is safe to call more than once.
func (a *Arrivals) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
}

// Run waits for the initial delay and then generates one arrival per period
// until [Arrivals.Stop] is called or the context is done.
func (a *Arrivals) Run(ctx context.Context) error {
	delay := time.NewTimer(a.delay)
	defer delay.Stop()

	select {
	case <-delay.C:
	case <-a.stopCh:
		return nil
	case <-ctx.Done():
		return nil
	}

	ticker := time.NewTicker(a.period)
	defer ticker.Stop()

	for {
		a.tick()

		select {
		case <-ticker.C:
		case <-a.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *Arrivals) tick() {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("arrival failed")
		}
	}()

	tiers := Priorities.All()
	priority := tiers[rand.IntN(len(tiers))]

	p, err := NewPatient(a.nameFunc(), priority)
	if err != nil {
		a.logger.Warn().Err(err).Msg("discarding generated patient")
		return
	}

	a.queue.Enqueue(p)
	a.logger.Debug().Int64("patient_id", p.ID()).Stringer("priority", priority).Msg("patient arrived")
	a.observer.OnLog(fmt.Sprintf("Random arrival: %s [%s]", p.Name(), priority))
}

func randomPatientName() string {
	return fmt.Sprintf("Patient-%d", rand.IntN(1000))
}
