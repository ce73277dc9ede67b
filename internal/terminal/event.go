package terminal

// EventKind identifies a UI event.
type EventKind int

const (
	// EventWakeup means a new snapshot has been published.
	EventWakeup EventKind = iota
	EventBell
	EventTitleChanged
	// EventCloseRequested means the child process is gone. It is the last event.
	EventCloseRequested
	// EventOpenURL asks the UI to open Event.URL.
	EventOpenURL
)

func (k EventKind) String() string {
	switch k {
	case EventWakeup:
		return "wakeup"
	case EventBell:
		return "bell"
	case EventTitleChanged:
		return "title_changed"
	case EventCloseRequested:
		return "close_requested"
	case EventOpenURL:
		return "open_url"
	default:
		return "unknown"
	}
}

// Event is delivered to the UI through Session.Events.
type Event struct {
	Kind  EventKind
	Title string
	URL   string
	// ExitCode is set on EventCloseRequested.
	ExitCode int
}
