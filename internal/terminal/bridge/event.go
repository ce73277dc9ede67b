package bridge

// Kind identifies a session event.
type Kind int

const (
	// Wakeup means the engine changed and the snapshot should be rebuilt.
	Wakeup Kind = iota
	Bell
	TitleChanged
	// CloseRequested means the child process is gone. It is always the last event.
	CloseRequested
	// RawWrite carries bytes that must be written back to the PTY.
	RawWrite
)

func (k Kind) String() string {
	switch k {
	case Wakeup:
		return "wakeup"
	case Bell:
		return "bell"
	case TitleChanged:
		return "title_changed"
	case CloseRequested:
		return "close_requested"
	case RawWrite:
		return "raw_write"
	default:
		return "unknown"
	}
}

// Event is produced by the PTY reader and consumed by the session.
type Event struct {
	Kind  Kind
	Title string
	Data  []byte
}
