package clinic

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// ServiceRange is a half-open range [Min, Max) of service durations.
type ServiceRange struct {
	Min time.Duration
	Max time.Duration
}

// mean returns the expected duration of a uniform draw from the range.
func (r ServiceRange) mean() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + (r.Max-r.Min)/2
}

// ServicePolicy maps each priority tier to the range its service time is
// drawn from.
type ServicePolicy struct {
	Emergency           ServiceRange
	Urgent              ServiceRange
	GeneralConsultation ServiceRange
}

// DefaultServicePolicy returns the standard clinic timings: 8-10s for
// emergencies, 5-7s for urgent cases and 1-5s for general consultations.
func DefaultServicePolicy() ServicePolicy {
	return ServicePolicy{
		Emergency:           ServiceRange{Min: 8 * time.Second, Max: 10 * time.Second},
		Urgent:              ServiceRange{Min: 5 * time.Second, Max: 7 * time.Second},
		GeneralConsultation: ServiceRange{Min: 1 * time.Second, Max: 5 * time.Second},
	}
}

// Range returns the service range for the given tier. Unknown tiers use the
// general consultation range.
func (s ServicePolicy) Range(p Priority) ServiceRange {
	switch p {
	case Priorities.Emergency:
		return s.Emergency
	case Priorities.Urgent:
		return s.Urgent
	default:
		return s.GeneralConsultation
	}
}

// Duration draws a service duration for the given tier. A range whose Max is
// not above Min always yields Min.
func (s ServicePolicy) Duration(p Priority) time.Duration {
	r := s.Range(p)
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min)
}

// Scale returns a copy of the policy with every bound multiplied by f.
func (s ServicePolicy) Scale(f float64) ServicePolicy {
	scale := func(r ServiceRange) ServiceRange {
		return ServiceRange{
			Min: time.Duration(float64(r.Min) * f),
			Max: time.Duration(float64(r.Max) * f),
		}
	}
	return ServicePolicy{
		Emergency:           scale(s.Emergency),
		Urgent:              scale(s.Urgent),
		GeneralConsultation: scale(s.GeneralConsultation),
	}
}

// Validate checks that every range is non-negative and well formed, and that
// expected durations keep emergencies at least as long as urgent cases, and
// urgent cases at least as long as general consultations.
func (s ServicePolicy) Validate() error {
	for _, p := range Priorities.All() {
		r := s.Range(p)
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%w: %s range [%s, %s)", ErrInvalidPolicy, p, r.Min, r.Max)
		}
	}
	if s.Emergency.mean() < s.Urgent.mean() {
		return fmt.Errorf("%w: emergency service shorter than urgent", ErrInvalidPolicy)
	}
	if s.Urgent.mean() < s.GeneralConsultation.mean() {
		return fmt.Errorf("%w: urgent service shorter than general consultation", ErrInvalidPolicy)
	}
	return nil
}
