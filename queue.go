package clinic

import (
	"container/heap"
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
)

// Ensure patientHeap implements [heap.Interface].
var _ heap.Interface = (*patientHeap)(nil)

// QueueHook defines hooks for monitoring enqueue and dequeue events. Hooks are
// invoked outside the queue lock and must be safe for concurrent use.
type QueueHook interface {
	OnEnqueue(p *Patient)
	OnDequeue(p *Patient)
}

// Queue is an unbounded, concurrency-safe priority queue of patients.
//
// Patients are dequeued by priority rank, most urgent first. Patients within
// the same tier are dequeued in arrival order. Every enqueued patient is
// returned by exactly one call to [Queue.Dequeue].
type Queue struct {
	mu       sync.Mutex
	hook     QueueHook
	patients patientHeap

	notifyCh chan struct{}
}

// NewQueue creates an empty [Queue]. Only the queue hook option is used.
func NewQueue(opts ...Option) *Queue {
	o := newOptions(opts)

	q := &Queue{
		patients: make(patientHeap, 0),
		notifyCh: make(chan struct{}, 1),
		hook:     o.QueueHook,
	}

	heap.Init(&q.patients)
	return q
}

// Enqueue adds the patient to the queue and wakes one waiting consumer. It
// never blocks. A nil patient is ignored.
func (q *Queue) Enqueue(p *Patient) {
	if p == nil {
		return
	}

	q.mu.Lock()
	heap.Push(&q.patients, p)
	q.mu.Unlock()

	if q.hook != nil {
		q.hook.OnEnqueue(p)
	}

	q.notify()
}

func (q *Queue) notify() {
	select {
	case q.notifyCh <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the most urgent, earliest arrived [Patient]. If
// the queue is empty, Dequeue blocks until a patient is enqueued or the
// context is done, in which case the returned error wraps [ErrCancelled]. A
// context that is already done never receives a patient, even when patients
// are waiting.
func (q *Queue) Dequeue(ctx context.Context) (*Patient, error) {
	for {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}

		q.mu.Lock()
		if q.patients.Len() > 0 {
			p := heap.Pop(&q.patients).(*Patient)
			remaining := q.patients.Len()
			q.mu.Unlock()

			// The notify channel holds a single token, so pass the wakeup on to
			// the next waiter while patients remain.
			if remaining > 0 {
				q.notify()
			}

			if q.hook != nil {
				q.hook.OnDequeue(p)
			}

			return p, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notifyCh:
		case <-ctx.Done():
			return nil, cancelled(ctx)
		}
	}
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

// PatientsIterator defines an iterator over dequeued patients.
type PatientsIterator iter.Seq[*Patient]

// Patients returns an iterator over dequeued patients. Each step blocks in
// [Queue.Dequeue] and the iteration ends once the context is done.
func (q *Queue) Patients(ctx context.Context) PatientsIterator {
	return func(yield func(*Patient) bool) {
		for {
			p, err := q.Dequeue(ctx)
			if err != nil {
				return
			}

			if !yield(p) {
				return
			}
		}
	}
}

// Peek returns the patient that would be dequeued next without removing it.
// If the queue is empty, Peek returns nil.
func (q *Queue) Peek() *Patient {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.patients.Len() == 0 {
		return nil
	}
	return q.patients[0]
}

// Len returns the number of waiting patients.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.patients.Len()
}

// Snapshot returns the waiting patients in dequeue order. The queue is left
// untouched.
func (q *Queue) Snapshot() []*Patient {
	q.mu.Lock()
	out := slices.Clone(q.patients)
	q.mu.Unlock()

	slices.SortFunc(out, (*Patient).Compare)
	return out
}

// patientHeap is a min-heap of patients under [Patient.Compare]. It is not
// safe for concurrent use; [Queue] guards it with its mutex.
type patientHeap []*Patient

func (h patientHeap) Len() int { return len(h) }

func (h patientHeap) Less(i, j int) bool {
	return h[i].Compare(h[j]) < 0
}

func (h patientHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *patientHeap) Push(x any) {
	*h = append(*h, x.(*Patient))
}

func (h *patientHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil // avoid memory leak
	*h = old[0 : n-1]
	return p
}
