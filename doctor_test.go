package clinic_test

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomasbasham/clinic"
)

func fixedPolicy(d time.Duration) clinic.ServicePolicy {
	r := clinic.ServiceRange{Min: d, Max: d}
	return clinic.ServicePolicy{Emergency: r, Urgent: r, GeneralConsultation: r}
}

// runDoctor starts d in the background and returns a channel receiving the
// result of Run.
func runDoctor(ctx context.Context, d *clinic.Doctor) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()
	return done
}

func TestDoctor_ServesInPriorityOrder(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := clinic.NewQueue()
		q.Enqueue(mustPatient(t, "A", clinic.Priorities.GeneralConsultation))
		q.Enqueue(mustPatient(t, "B", clinic.Priorities.Emergency))
		q.Enqueue(mustPatient(t, "C", clinic.Priorities.Urgent))

		rec := &recorder{}
		var served atomic.Int64
		d := clinic.NewDoctor("Dr. Joshua", q, &served,
			clinic.WithObserver(rec),
			clinic.WithServicePolicy(fixedPolicy(time.Second)),
			clinic.WithLogger(zerolog.Nop()),
		)

		done := runDoctor(context.Background(), d)

		time.Sleep(5 * time.Second)
		synctest.Wait()

		if got := d.State(); got != clinic.DoctorIdle {
			t.Errorf("expected idle doctor, got: %s", got)
		}

		d.Stop()
		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var order []string
		for _, msg := range rec.Logs() {
			for _, name := range []string{"A", "B", "C"} {
				if strings.Contains(msg, " served "+name+" ") {
					order = append(order, name)
				}
			}
		}
		if want := []string{"B", "C", "A"}; !slices.Equal(order, want) {
			t.Errorf("mismatch:\n  got:  %#v\n  want: %#v", order, want)
		}
		if got := served.Load(); got != 3 {
			t.Errorf("expected 3 served patients, got: %d", got)
		}
	})
}

func TestDoctor_StatusTransitions(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := clinic.NewQueue()
		p := mustPatient(t, "Ana", clinic.Priorities.Urgent)
		q.Enqueue(p)

		rec := &recorder{}
		d := clinic.NewDoctor("Dr. Diego", q, nil,
			clinic.WithObserver(rec),
			clinic.WithServicePolicy(fixedPolicy(2*time.Second)),
			clinic.WithLogger(zerolog.Nop()),
		)

		done := runDoctor(context.Background(), d)

		time.Sleep(time.Second)
		synctest.Wait()
		if got := d.State(); got != clinic.DoctorServing {
			t.Errorf("expected serving doctor, got: %s", got)
		}

		time.Sleep(2 * time.Second)
		synctest.Wait()

		d.Stop()
		<-done

		got := rec.Statuses("Dr. Diego")
		want := []string{"idle", "serving " + p.String(), "idle", "stopped"}
		if !slices.Equal(got, want) {
			t.Errorf("mismatch:\n  got:  %#v\n  want: %#v", got, want)
		}
		if got := d.State(); got != clinic.DoctorStopped {
			t.Errorf("expected stopped doctor, got: %s", got)
		}
	})
}

func TestDoctor_ReportsWaitAndServiceTime(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := clinic.NewQueue()
		q.Enqueue(mustPatient(t, "first", clinic.Priorities.GeneralConsultation))
		q.Enqueue(mustPatient(t, "second", clinic.Priorities.GeneralConsultation))

		rec := &recorder{}
		d := clinic.NewDoctor("Dr. Angel", q, nil,
			clinic.WithObserver(rec),
			clinic.WithServicePolicy(fixedPolicy(2*time.Second)),
			clinic.WithLogger(zerolog.Nop()),
		)

		done := runDoctor(context.Background(), d)
		time.Sleep(5 * time.Second)
		synctest.Wait()
		d.Stop()
		<-done

		want := []string{
			"Doctor Dr. Angel served first (general-consultation) waited: 0.000s service time: 2.000s",
			"Doctor Dr. Angel served second (general-consultation) waited: 2.000s service time: 2.000s",
		}
		if got := rec.Logs(); !slices.Equal(got, want) {
			t.Errorf("mismatch:\n  got:  %#v\n  want: %#v", got, want)
		}
	})
}

func TestDoctor_StopWhileWaiting(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := clinic.NewQueue()
		d := clinic.NewDoctor("Dr. Idle", q, nil, clinic.WithLogger(zerolog.Nop()))

		done := runDoctor(context.Background(), d)

		// The doctor is durably blocked waiting on the empty queue.
		synctest.Wait()

		d.Stop()
		d.Stop() // idempotent.

		if err := <-done; err != nil {
			t.Errorf("expected clean exit, got: %v", err)
		}
		if got := d.State(); got != clinic.DoctorStopped {
			t.Errorf("expected stopped doctor, got: %s", got)
		}
	})
}

func TestDoctor_StopDuringServiceFinishesPatient(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := clinic.NewQueue()
		q.Enqueue(mustPatient(t, "current", clinic.Priorities.Emergency))
		q.Enqueue(mustPatient(t, "next", clinic.Priorities.Emergency))

		rec := &recorder{}
		var served atomic.Int64
		d := clinic.NewDoctor("Dr. Busy", q, &served,
			clinic.WithObserver(rec),
			clinic.WithServicePolicy(fixedPolicy(10*time.Second)),
			clinic.WithLogger(zerolog.Nop()),
		)

		done := runDoctor(context.Background(), d)

		time.Sleep(time.Second)
		synctest.Wait()
		d.Stop()
		synctest.Wait()

		select {
		case <-done:
			t.Fatal("doctor left before finishing the current patient")
		default:
		}

		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		logs := rec.Logs()
		if len(logs) != 1 || !strings.Contains(logs[0], " served current ") {
			t.Errorf("expected only the current patient to be served, got: %#v", logs)
		}
		if got := served.Load(); got != 1 {
			t.Errorf("expected 1 served patient, got: %d", got)
		}
		if got := q.Len(); got != 1 {
			t.Errorf("expected the next patient to remain queued, got len: %d", got)
		}
	})
}

func TestDoctor_ContextCancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := clinic.NewQueue()
		d := clinic.NewDoctor("Dr. Ctx", q, nil, clinic.WithLogger(zerolog.Nop()))

		ctx, cancel := context.WithCancel(context.Background())
		done := runDoctor(ctx, d)

		synctest.Wait()
		cancel()

		if err := <-done; err != nil {
			t.Errorf("expected clean exit, got: %v", err)
		}
	})
}

func TestDoctor_ContextCancelDuringServiceFinishesPatient(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := clinic.NewQueue()
		for _, name := range []string{"current", "b", "c", "d"} {
			q.Enqueue(mustPatient(t, name, clinic.Priorities.Emergency))
		}

		var served atomic.Int64
		d := clinic.NewDoctor("Dr. Ctx", q, &served,
			clinic.WithServicePolicy(fixedPolicy(10*time.Second)),
			clinic.WithLogger(zerolog.Nop()),
		)

		ctx, cancel := context.WithCancel(context.Background())
		done := runDoctor(ctx, d)

		time.Sleep(time.Second)
		synctest.Wait()
		cancel()

		start := time.Now()
		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if elapsed := time.Since(start); elapsed != 9*time.Second {
			t.Errorf("expected the doctor to leave after the current patient, took: %s", elapsed)
		}
		if got := served.Load(); got != 1 {
			t.Errorf("expected 1 served patient, got: %d", got)
		}
		if got := q.Len(); got != 3 {
			t.Errorf("expected 3 patients to remain queued, got len: %d", got)
		}
	})
}

func TestDoctor_StopBeforeRunServesNobody(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := clinic.NewQueue()
		q.Enqueue(mustPatient(t, "a", clinic.Priorities.Urgent))

		var served atomic.Int64
		d := clinic.NewDoctor("Dr. Late", q, &served, clinic.WithLogger(zerolog.Nop()))
		d.Stop()

		if err := d.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := served.Load(); got != 0 {
			t.Errorf("expected no served patient, got: %d", got)
		}
		if got := q.Len(); got != 1 {
			t.Errorf("expected the patient to remain queued, got len: %d", got)
		}
	})
}

func TestDoctor_SurvivesObserverPanic(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := clinic.NewQueue()
		for _, name := range []string{"a", "b", "c"} {
			q.Enqueue(mustPatient(t, name, clinic.Priorities.Urgent))
		}

		var buf bytes.Buffer
		var served atomic.Int64
		d := clinic.NewDoctor("Dr. Stoic", q, &served,
			clinic.WithObserver(panicky{}),
			clinic.WithServicePolicy(fixedPolicy(time.Second)),
			clinic.WithLogger(zerolog.New(&buf)),
		)

		done := runDoctor(context.Background(), d)
		time.Sleep(5 * time.Second)
		synctest.Wait()
		d.Stop()

		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := served.Load(); got != 3 {
			t.Errorf("expected 3 served patients, got: %d", got)
		}
		if !strings.Contains(buf.String(), "observer failed") {
			t.Error("expected observer failures to be logged")
		}
	})
}

func TestDoctorState_String(t *testing.T) {
	t.Parallel()

	tests := map[clinic.DoctorState]string{
		clinic.DoctorIdle:       "idle",
		clinic.DoctorServing:    "serving",
		clinic.DoctorStopped:    "stopped",
		clinic.DoctorState(100): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("mismatch:\n  got:  %q\n  want: %q", got, want)
		}
	}
}
