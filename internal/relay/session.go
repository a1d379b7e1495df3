package relay

import (
	"time"

	"github.com/google/uuid"
	"github.com/mossy-p/voxa-signaling/internal/models"
)

// State is the lifecycle stage of a Session. Transitions only move forward.
type State int

const (
	StatePairing     State = iota // match sent, waiting for the offer
	StateNegotiating              // offer relayed
	StateActive                   // answer relayed; media assumed flowing
	StateEnded
)

func (s State) String() string {
	switch s {
	case StatePairing:
		return "pairing"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// EndReason records why a session was torn down
type EndReason string

const (
	EndReasonLeave      EndReason = "leave"
	EndReasonDisconnect EndReason = "disconnect"
	EndReasonEvicted    EndReason = "evicted"
)

// Session pairs exactly two connections. Once Ended it is discarded.
type Session struct {
	ID        string
	Tag       string
	Initiator *Connection
	Responder *Connection
	CreatedAt time.Time

	state State
}

// newSession attaches both connections to a fresh session.
func newSession(initiator, responder *Connection, tag string) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		Tag:       tag,
		Initiator: initiator,
		Responder: responder,
		CreatedAt: time.Now(),
		state:     StatePairing,
	}
	for _, c := range s.Members() {
		c.session = s
		c.waiting = false
	}
	return s
}

func (s *Session) State() State { return s.state }

func (s *Session) Members() [2]*Connection {
	return [2]*Connection{s.Initiator, s.Responder}
}

// Peer returns the member that is not c, or nil if c is not a member.
func (s *Session) Peer(c *Connection) *Connection {
	switch c {
	case s.Initiator:
		return s.Responder
	case s.Responder:
		return s.Initiator
	}
	return nil
}

// advance moves the session one step forward to next. Any other move,
// including skipping a state or leaving Ended, is ignored: an answer before
// any offer leaves the session in Pairing.
func (s *Session) advance(next State) bool {
	if next != s.state+1 || next == StateEnded {
		return false
	}
	s.state = next
	return true
}

// end retires the session and detaches both members. It returns false if the
// session had already ended.
func (s *Session) end() bool {
	if s.state == StateEnded {
		return false
	}
	s.state = StateEnded
	for _, c := range s.Members() {
		if c.session == s {
			c.session = nil
		}
	}
	return true
}

func (s *Session) Info() models.SessionInfo {
	return models.SessionInfo{
		ID:        s.ID,
		Tag:       s.Tag,
		State:     s.state.String(),
		Initiator: string(s.Initiator.ID),
		Responder: string(s.Responder.ID),
		CreatedAt: s.CreatedAt,
	}
}
