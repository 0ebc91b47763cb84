package clinic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DoctorState is the position of a [Doctor] in its service loop.
type DoctorState int32

// Doctor states. A doctor starts idle, alternates between idle and serving,
// and ends stopped.
const (
	DoctorIdle DoctorState = iota
	DoctorServing
	DoctorStopped
)

func (s DoctorState) String() string {
	switch s {
	case DoctorIdle:
		return "idle"
	case DoctorServing:
		return "serving"
	case DoctorStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Doctor is a worker that repeatedly takes the next patient from a shared
// [Queue] and serves it for a duration chosen by its [ServicePolicy].
//
// Stopping a doctor interrupts only the wait for the next patient. A patient
// that has already been dequeued is always served to completion before the
// doctor exits.
type Doctor struct {
	name     string
	queue    *Queue
	served   *atomic.Int64
	observer Observer
	policy   ServicePolicy
	logger   zerolog.Logger

	running  atomic.Bool
	state    atomic.Int32
	stopOnce sync.Once

	mu     sync.Mutex
	cancel context.CancelCauseFunc
}

// NewDoctor creates a doctor consuming from queue. Every patient the doctor
// starts serving increments served, which may be shared between doctors.
func NewDoctor(name string, queue *Queue, served *atomic.Int64, opts ...Option) *Doctor {
	o := newOptions(opts)

	if served == nil {
		served = new(atomic.Int64)
	}

	d := &Doctor{
		name:     name,
		queue:    queue,
		served:   served,
		observer: guard(o.Observer, o.Logger),
		policy:   o.ServicePolicy,
		logger:   o.Logger.With().Str("doctor", name).Logger(),
	}
	d.running.Store(true)
	return d
}

// Name returns the doctor's name.
func (d *Doctor) Name() string { return d.name }

// State returns the doctor's current state.
func (d *Doctor) State() DoctorState {
	return DoctorState(d.state.Load())
}

// Stop asks the doctor to leave. It is safe to call more than once and from
// any goroutine. A doctor waiting for a patient exits promptly; a doctor
// serving a patient finishes first and takes no further patient.
func (d *Doctor) Stop() {
	d.stopOnce.Do(func() {
		d.running.Store(false)

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.cancel != nil {
			d.cancel(errDoctorStopped)
		}
	})
}

// Run serves patients until [Doctor.Stop] is called or the context is done.
// Cancellation is the normal way for Run to end and is reported as a nil
// error.
func (d *Doctor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// Stop cancels ctx synchronously, so once it returns the next Dequeue
	// cannot hand out another patient.
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	defer d.setState(DoctorStopped)

	d.setState(DoctorIdle)
	d.logger.Debug().Msg("doctor on duty")

	for d.running.Load() {
		p, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				break
			}
			return fmt.Errorf("doctor %s: %w", d.name, err)
		}

		d.serve(p)
	}

	d.logger.Debug().Msg("doctor off duty")
	return nil
}

var errDoctorStopped = errors.New("doctor stopped")

func (d *Doctor) serve(p *Patient) {
	wait := time.Since(p.EnqueuedAt())
	d.served.Add(1)
	d.setStatus(DoctorServing, "serving "+p.String())

	service := d.policy.Duration(p.Priority())
	d.logger.Debug().
		Int64("patient_id", p.ID()).
		Stringer("priority", p.Priority()).
		Dur("wait", wait).
		Dur("service", service).
		Msg("serving patient")

	time.Sleep(service)

	d.setState(DoctorIdle)
	d.observer.OnLog(fmt.Sprintf("Doctor %s served %s (%s) waited: %.3fs service time: %.3fs",
		d.name, p.Name(), p.Priority(), wait.Seconds(), service.Seconds()))
}

// setState records the state and publishes it under its default status text.
func (d *Doctor) setState(s DoctorState) {
	d.setStatus(s, s.String())
}

func (d *Doctor) setStatus(s DoctorState, status string) {
	d.state.Store(int32(s))
	d.observer.OnStatusChange(d.name, status)
}
