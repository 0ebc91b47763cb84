package clinic

import "errors"

var (
	// ErrCancelled is returned by [Queue.Dequeue] when the caller's context is
	// done before a patient becomes available. Doctors treat it as their exit
	// signal.
	ErrCancelled = errors.New("clinic: dequeue cancelled")

	// ErrInvalidName is returned when a patient name is blank once trimmed.
	ErrInvalidName = errors.New("clinic: patient name is empty")

	// ErrInvalidPriority is returned when a patient is created with a priority
	// outside the three known tiers.
	ErrInvalidPriority = errors.New("clinic: invalid priority")

	// ErrInvalidPolicy is returned by [ServicePolicy.Validate].
	ErrInvalidPolicy = errors.New("clinic: invalid service policy")
)
