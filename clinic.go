package clinic

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DoctorStatus is a point in time view of a [Doctor].
type DoctorStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Clinic ties a shared [Queue], a pool of doctors and an optional arrival
// generator together, and is the entry point used by presentation layers.
type Clinic struct {
	opts     []Option
	queue    *Queue
	observer Observer
	logger   zerolog.Logger
	served   atomic.Int64

	mu       sync.Mutex
	doctors  []*Doctor
	arrivals *Arrivals
	closed   bool
	wg       sync.WaitGroup
}

// New creates a new [Clinic] with the given options. No doctor is on duty
// until [Clinic.StartDoctors] is called.
func New(opts ...Option) *Clinic {
	o := newOptions(opts)
	observer := guard(o.Observer, o.Logger)

	// Components created by the clinic share the guarded observer.
	opts = append(slices.Clip(opts), WithObserver(observer))

	return &Clinic{
		opts:     opts,
		queue:    NewQueue(opts...),
		observer: observer,
		logger:   o.Logger,
	}
}

// Queue returns the shared patient queue.
func (c *Clinic) Queue() *Queue {
	return c.queue
}

// Register creates a patient and enqueues it. A blank name is rejected with
// [ErrInvalidName] before anything is enqueued or reported.
func (c *Clinic) Register(name string, priority Priority) (*Patient, error) {
	p, err := NewPatient(name, priority)
	if err != nil {
		return nil, err
	}

	c.queue.Enqueue(p)
	c.logger.Debug().Int64("patient_id", p.ID()).Stringer("priority", priority).Msg("patient registered")
	c.observer.OnLog("Registered: " + p.String())
	return p, nil
}

// StartDoctors puts one doctor per name on duty. Each doctor runs until it is
// stopped, the clinic shuts down or the context is done. After
// [Clinic.Shutdown] no doctor is started and StartDoctors returns nil.
func (c *Clinic) StartDoctors(ctx context.Context, names ...string) []*Doctor {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	started := make([]*Doctor, 0, len(names))
	for _, name := range names {
		d := NewDoctor(name, c.queue, &c.served, c.opts...)
		c.doctors = append(c.doctors, d)
		started = append(started, d)

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := d.Run(ctx); err != nil {
				c.logger.Error().Err(err).Str("doctor", d.Name()).Msg("doctor exited")
			}
		}()
	}
	return started
}

// StopDoctor stops every doctor with the given name that is still on duty.
// It reports whether such a doctor was found.
func (c *Clinic) StopDoctor(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := false
	for _, d := range c.doctors {
		if d.Name() == name && d.State() != DoctorStopped {
			d.Stop()
			found = true
		}
	}
	return found
}

// Doctors returns the status of every doctor started by the clinic, in start
// order.
func (c *Clinic) Doctors() []DoctorStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]DoctorStatus, 0, len(c.doctors))
	for _, d := range c.doctors {
		out = append(out, DoctorStatus{Name: d.Name(), State: d.State().String()})
	}
	return out
}

// StartArrivals starts the random arrival generator. Calling it while a
// generator is already running replaces that generator. It does nothing after
// [Clinic.Shutdown].
func (c *Clinic) StartArrivals(ctx context.Context, period, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if c.arrivals != nil {
		c.arrivals.Stop()
	}

	a := NewArrivals(c.queue, period, delay, c.opts...)
	c.arrivals = a

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = a.Run(ctx)
	}()
}

// StopArrivals stops the arrival generator, if any.
func (c *Clinic) StopArrivals() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.arrivals != nil {
		c.arrivals.Stop()
		c.arrivals = nil
	}
}

// Served returns the number of patients doctors have started serving.
func (c *Clinic) Served() int64 {
	return c.served.Load()
}

// Waiting returns the number of patients in the queue.
func (c *Clinic) Waiting() int {
	return c.queue.Len()
}

// Shutdown stops the arrival generator and every doctor, and closes the
// clinic to new doctors and generators. Doctors finish the patient they are
// serving; use [Clinic.Wait] to wait for them.
func (c *Clinic) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.arrivals != nil {
		c.arrivals.Stop()
		c.arrivals = nil
	}
	for _, d := range c.doctors {
		d.Stop()
	}
}

// Wait blocks until every doctor and generator started by the clinic has
// returned.
func (c *Clinic) Wait() {
	c.wg.Wait()
}
