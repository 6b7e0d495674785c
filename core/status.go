package core

// Status is the lifecycle state of an agent. Exactly one value is held by an
// agent at any time.
type Status int32

const (
	// StatusInitializing is the state of a freshly constructed agent.
	StatusInitializing Status = iota
	// StatusReady accepts messages.
	StatusReady
	// StatusProcessing is held while a domain hook runs.
	StatusProcessing
	// StatusError is entered when a domain hook fails. It is left only
	// through an explicit reset or shutdown.
	StatusError
	// StatusShutdown is terminal.
	StatusShutdown
)

// String returns the lowercase wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusReady:
		return "ready"
	case StatusProcessing:
		return "processing"
	case StatusError:
		return "error"
	case StatusShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name so it reads naturally in JSON logs.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
