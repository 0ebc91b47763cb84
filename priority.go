package clinic

import (
	"cmp"
	"fmt"
)

// Priority represents the urgency tier of a [Patient]. The zero value is
// [Priorities].Unknown, which is never valid for a patient.
type Priority struct {
	priority
}

// ParsePriority creates a new [Priority] from the given value. Strings and
// [fmt.Stringer] values are matched against the text form of each tier,
// integers against its rank. Anything else yields [Priorities].Unknown.
func ParsePriority(p any) Priority {
	switch v := p.(type) {
	case Priority:
		return v
	case string:
		return Priority{stringToPriority(v)}
	case fmt.Stringer:
		return Priority{stringToPriority(v.String())}
	case int:
		return Priority{rankToPriority(v)}
	case int64:
		return Priority{rankToPriority(int(v))}
	case int32:
		return Priority{rankToPriority(int(v))}
	default:
		return Priority{priorityUnknown}
	}
}

// Rank returns the position of the tier in dequeue order. Lower ranks are
// more urgent and are served first.
func (p Priority) Rank() int {
	return int(p.priority)
}

// Compare returns -1 if p is more urgent than o, +1 if it is less urgent and
// 0 if both are the same tier.
func (p Priority) Compare(o Priority) int {
	return cmp.Compare(p.priority, o.priority)
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*p = ParsePriority(s)
	return nil
}

// Priorities references each [Priority] tier by name.
var Priorities = priorityContainer{
	Unknown:             Priority{priorityUnknown},
	Emergency:           Priority{priorityEmergency},
	Urgent:              Priority{priorityUrgent},
	GeneralConsultation: Priority{priorityGeneralConsultation},
}

// All returns the valid tiers, most urgent first.
func (c priorityContainer) All() []Priority {
	return []Priority{c.Emergency, c.Urgent, c.GeneralConsultation}
}

type priority int

const (
	priorityUnknown             priority = 0
	priorityEmergency           priority = 1
	priorityUrgent              priority = 2
	priorityGeneralConsultation priority = 3
)

var (
	strPriorityMap = map[priority]string{
		priorityUnknown:             "unknown",
		priorityEmergency:           "emergency",
		priorityUrgent:              "urgent",
		priorityGeneralConsultation: "general-consultation",
	}

	typePriorityMap = map[string]priority{
		"unknown":              priorityUnknown,
		"emergency":            priorityEmergency,
		"urgent":               priorityUrgent,
		"general-consultation": priorityGeneralConsultation,
	}
)

func (p priority) String() string {
	return strPriorityMap[p]
}

// IsValid reports whether p is one of the three patient tiers.
func (p priority) IsValid() bool {
	return p >= priorityEmergency && p <= priorityGeneralConsultation
}

func stringToPriority(s string) priority {
	if v, ok := typePriorityMap[s]; ok {
		return v
	}
	return priorityUnknown
}

func rankToPriority(r int) priority {
	if p := priority(r); p.IsValid() {
		return p
	}
	return priorityUnknown
}

type priorityContainer struct {
	Unknown             Priority
	Emergency           Priority
	Urgent              Priority
	GeneralConsultation Priority
}
