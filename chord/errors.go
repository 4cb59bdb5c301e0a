package chord

import "fmt"

// Kind classifies the abstract error categories of spec §7. NotFound is
// deliberately not a Kind: a missing key is a distinguished lookup
// result, not a failure.
type Kind int

const (
	InvalidInput Kind = iota
	PeerUnreachable
	Timeout
	ProtocolError
	RoutingDiverged
	StateNotReady
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case PeerUnreachable:
		return "PeerUnreachable"
	case Timeout:
		return "Timeout"
	case ProtocolError:
		return "ProtocolError"
	case RoutingDiverged:
		return "RoutingDiverged"
	case StateNotReady:
		return "StateNotReady"
	default:
		return "Unknown"
	}
}

// Error is a classified failure. Callers that need to react to a specific
// kind check it with Is (or type-assert down to *Error); every other
// caller just treats it as a plain error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a chord *Error of the given kind.
func Is(err error, k Kind) bool {
	ce, ok := err.(*Error)
	return ok && ce.Kind == k
}

// mergeErrors folds two errors into one, preferring whichever is non-nil;
// if both are set their messages are concatenated. Lifted from the
// teacher's util.go helper of the same name.
func mergeErrors(err1, err2 error) error {
	if err1 == nil {
		return err2
	} else if err2 == nil {
		return err1
	}
	return fmt.Errorf("%s\n%s", err1, err2)
}
