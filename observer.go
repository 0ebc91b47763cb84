package clinic

import (
	"github.com/rs/zerolog"
)

// Observer receives the events published by doctors, the arrival generator
// and patient registration. Implementations must be safe for concurrent use
// and must return promptly; marshaling onto a UI thread or network
// connection is their responsibility.
//
// Events from a single doctor arrive in order. No order is guaranteed across
// doctors.
type Observer interface {
	OnStatusChange(doctor, status string)
	OnLog(message string)
}

// ObserverFuncs adapts a pair of functions to the [Observer] interface. Nil
// fields are skipped.
type ObserverFuncs struct {
	StatusChange func(doctor, status string)
	Log          func(message string)
}

func (f ObserverFuncs) OnStatusChange(doctor, status string) {
	if f.StatusChange != nil {
		f.StatusChange(doctor, status)
	}
}

func (f ObserverFuncs) OnLog(message string) {
	if f.Log != nil {
		f.Log(message)
	}
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) OnStatusChange(string, string) {}
func (NopObserver) OnLog(string)                  {}

// MultiObserver fans each event out to every observer in order. A nil entry
// is skipped.
type MultiObserver []Observer

func (m MultiObserver) OnStatusChange(doctor, status string) {
	for _, obs := range m {
		if obs != nil {
			obs.OnStatusChange(doctor, status)
		}
	}
}

func (m MultiObserver) OnLog(message string) {
	for _, obs := range m {
		if obs != nil {
			obs.OnLog(message)
		}
	}
}

// LogObserver writes every event to a zerolog logger.
type LogObserver struct {
	Logger zerolog.Logger
}

func (l LogObserver) OnStatusChange(doctor, status string) {
	l.Logger.Debug().Str("doctor", doctor).Msg(status)
}

func (l LogObserver) OnLog(message string) {
	l.Logger.Info().Msg(message)
}

// guardedObserver isolates the core from a misbehaving observer. A panic in a
// callback is recovered and logged so it cannot take down a doctor or the
// arrival generator.
type guardedObserver struct {
	next   Observer
	logger zerolog.Logger
}

func guard(obs Observer, logger zerolog.Logger) Observer {
	if obs == nil {
		return NopObserver{}
	}
	if g, ok := obs.(*guardedObserver); ok {
		return g
	}
	return &guardedObserver{next: obs, logger: logger}
}

func (g *guardedObserver) OnStatusChange(doctor, status string) {
	defer g.recoverPanic("status")
	g.next.OnStatusChange(doctor, status)
}

func (g *guardedObserver) OnLog(message string) {
	defer g.recoverPanic("log")
	g.next.OnLog(message)
}

func (g *guardedObserver) recoverPanic(event string) {
	if r := recover(); r != nil {
		g.logger.Error().Str("event", event).Interface("panic", r).Msg("observer failed")
	}
}
