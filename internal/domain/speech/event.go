package speech

// EventKind enumerates the lifecycle events of a local utterance.
type EventKind int

const (
	EventStarted EventKind = iota
	EventEnded
	EventErrored
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventEnded:
		return "ended"
	case EventErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Event is reported by a local synthesizer. Err is set only for EventErrored.
type Event struct {
	Kind EventKind
	Err  error
}

func Started() Event { return Event{Kind: EventStarted} }

func Ended() Event { return Event{Kind: EventEnded} }

func Errored(err error) Event { return Event{Kind: EventErrored, Err: err} }
