package relay

import "errors"

var (
	// ErrDuplicateJoin is returned when a connection that is already waiting
	// or already in a session sends another join.
	ErrDuplicateJoin = errors.New("duplicate join")
	// ErrNoActiveSession is returned for negotiation messages sent outside a session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrInvalidMessage covers unparseable envelopes, unknown types and
	// missing required fields.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrPeerUnreachable means the other member's channel is closed or full.
	// It is counted but never returned to the sender.
	ErrPeerUnreachable = errors.New("peer unreachable")
	// ErrUnknownConnection is returned when dispatching for an unregistered id.
	ErrUnknownConnection = errors.New("unknown connection")
)

// ErrorCode maps a relay error to the stable code sent to clients in error
// envelopes and used as a metrics label.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateJoin):
		return "duplicate_join"
	case errors.Is(err, ErrNoActiveSession):
		return "no_active_session"
	case errors.Is(err, ErrInvalidMessage):
		return "invalid_message"
	case errors.Is(err, ErrPeerUnreachable):
		return "peer_unreachable"
	case errors.Is(err, ErrUnknownConnection):
		return "unknown_connection"
	default:
		return "internal"
	}
}
