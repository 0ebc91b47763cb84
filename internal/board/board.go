// Package board keeps the latest view of the clinic for the HTTP layer: the
// current status line of every doctor and a bounded activity log.
package board

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of log entries kept when none is given.
const DefaultCapacity = 200

// DoctorLine is the latest status reported by a doctor.
type DoctorLine struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is a single activity log line.
type Entry struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Board implements clinic.Observer. It is safe for concurrent use and every
// callback returns after a short critical section.
type Board struct {
	mu      sync.RWMutex
	order   []string
	doctors map[string]*DoctorLine

	entries []Entry
	next    int
	full    bool
}

// New creates a board retaining at most capacity log entries.
func New(capacity int) *Board {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Board{
		doctors: make(map[string]*DoctorLine),
		entries: make([]Entry, capacity),
	}
}

func (b *Board) OnStatusChange(doctor, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	line, ok := b.doctors[doctor]
	if !ok {
		line = &DoctorLine{Name: doctor}
		b.doctors[doctor] = line
		b.order = append(b.order, doctor)
	}
	line.Status = status
	line.UpdatedAt = time.Now()
}

func (b *Board) OnLog(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = Entry{Message: message, At: time.Now()}
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Doctors returns the latest status of every doctor in order of first
// appearance.
func (b *Board) Doctors() []DoctorLine {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]DoctorLine, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, *b.doctors[name])
	}
	return out
}

// Log returns up to limit of the most recent entries, oldest first. A
// non-positive limit returns every retained entry.
func (b *Board) Log(limit int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.next
	if b.full {
		n = len(b.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Entry, 0, limit)
	for i := n - limit; i < n; i++ {
		// Oldest retained entry sits at b.next once the ring has wrapped.
		idx := i
		if b.full {
			idx = (b.next + i) % len(b.entries)
		}
		out = append(out, b.entries[idx])
	}
	return out
}
