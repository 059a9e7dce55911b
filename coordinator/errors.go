package coordinator

import "fmt"

// Kind classifies a ProtocolError, distinguishing locally-recoverable
// misbehavior from conditions that indicate a broken assumption.
type Kind int

const (
	// InvalidPoint marks a point that failed to deserialize to a valid
	// curve point.
	InvalidPoint Kind = iota
	// BadShare marks a partial signature that failed share_val.
	// Recovered locally by marking the submitter malicious.
	BadShare
	// ProtocolViolation marks a duplicate ready submission or a share
	// submitted without a preceding nonce. Recovered locally by marking
	// the submitter malicious.
	ProtocolViolation
	// InvariantBreach marks a violation of a coordinator-model
	// invariant, e.g. |malicious| exceeding n-t. Fatal: it means the
	// honest-majority assumption was violated or the implementation has
	// a bug.
	InvariantBreach
	// TransportClosed marks a peer disconnect. The coordinator treats
	// the participant as silently unresponsive; this is tolerated, not
	// an error condition for the protocol.
	TransportClosed
)

func (k Kind) String() string {
	switch k {
	case InvalidPoint:
		return "InvalidPoint"
	case BadShare:
		return "BadShare"
	case ProtocolViolation:
		return "ProtocolViolation"
	case InvariantBreach:
		return "InvariantBreach"
	case TransportClosed:
		return "TransportClosed"
	default:
		return "Unknown"
	}
}

// ProtocolError is the typed error HandleIncoming and Run return for
// protocol-level failures; setup and I/O failures (keygen, sending init)
// are returned as plain wrapped errors instead. Fatal reports whether the runtime must stop rather than
// continue serving the current run.
type ProtocolError struct {
	Kind    Kind
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Fatal reports whether this error must abort the run rather than be
// absorbed by marking a participant malicious.
func (e *ProtocolError) Fatal() bool {
	return e.Kind == InvariantBreach
}

func newError(kind Kind, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
