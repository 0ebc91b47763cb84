package clinic

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// patientSeq hands out patient ids for the lifetime of the process. In theory
// it could overflow, but at a million arrivals per second that would take
// over 292 thousand years.
var patientSeq atomic.Int64

// Patient is a single unit of work waiting for a doctor. A Patient is
// immutable once created and safe to share between goroutines.
type Patient struct {
	id         int64
	name       string
	priority   Priority
	enqueuedAt time.Time
}

// NewPatient creates a [Patient] with the next process-wide id. The name is
// trimmed and must not be empty.
func NewPatient(name string, priority Priority) (*Patient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority.String())
	}

	return &Patient{
		id:         patientSeq.Add(1),
		name:       name,
		priority:   priority,
		enqueuedAt: time.Now(),
	}, nil
}

// ID returns the unique, monotonically assigned patient id.
func (p *Patient) ID() int64 { return p.id }

// Name returns the trimmed patient name.
func (p *Patient) Name() string { return p.name }

// Priority returns the urgency tier of the patient.
func (p *Patient) Priority() Priority { return p.priority }

// EnqueuedAt returns the time the patient was created.
func (p *Patient) EnqueuedAt() time.Time { return p.enqueuedAt }

// Compare orders patients by priority rank and then by id, so earlier
// arrivals within a tier come first. It returns 0 only when p and o are the
// same patient.
func (p *Patient) Compare(o *Patient) int {
	if c := p.priority.Compare(o.priority); c != 0 {
		return c
	}
	return cmp.Compare(p.id, o.id)
}

func (p *Patient) String() string {
	return fmt.Sprintf("[%s] %s (ID:%d)", p.priority, p.name, p.id)
}

type patientJSON struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Priority   Priority  `json:"priority"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func (p *Patient) MarshalJSON() ([]byte, error) {
	return json.Marshal(patientJSON{
		ID:         p.id,
		Name:       p.name,
		Priority:   p.priority,
		EnqueuedAt: p.enqueuedAt,
	})
}
