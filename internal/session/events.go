package session

import "time"

// Kind identifies what happened to a session.
type Kind int

const (
	KindStarted Kind = iota + 1
	KindPaused
	KindTick
	KindStopped
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindStarted:
		return "started"
	case KindPaused:
		return "paused"
	case KindTick:
		return "tick"
	case KindStopped:
		return "stopped"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Severity grades error events.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Event is published for every state change. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind      Kind
	SessionID string
	Time      time.Time

	// started
	Command    string
	OutputPath string

	// paused
	Paused bool

	// tick and paused
	Elapsed string

	// stopped
	Clean    bool
	Forced   bool
	Warning  string
	Duration time.Duration

	// error
	Message  string
	Severity Severity
}
