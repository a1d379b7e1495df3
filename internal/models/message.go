package models

import "encoding/json"

// SignalType represents the type of WebRTC signaling message
type SignalType string

const (
	// Sent by clients
	SignalTypeJoin      SignalType = "join"
	SignalTypeLeave     SignalType = "leave"
	SignalTypeOffer     SignalType = "offer"
	SignalTypeAnswer    SignalType = "answer"
	SignalTypeCandidate SignalType = "candidate"

	// Sent by the relay
	SignalTypeMatch    SignalType = "match"
	SignalTypePeerLeft SignalType = "peer-left"
	SignalTypeError    SignalType = "error"
)

// IsNegotiation reports whether messages of this type are forwarded verbatim
// to the other member of a session.
func (t SignalType) IsNegotiation() bool {
	switch t {
	case SignalTypeOffer, SignalTypeAnswer, SignalTypeCandidate:
		return true
	}
	return false
}

// Role tells a matched client which side of the negotiation it plays.
type Role string

const (
	RoleInitiator Role = "initiator" // sends the offer
	RoleResponder Role = "responder" // waits for the offer and answers it
)

// SignalMessage is the single envelope exchanged over the WebSocket in both
// directions. Payload is never interpreted by the relay.
type SignalMessage struct {
	Type      SignalType      `json:"type"`
	Tag       string          `json:"tag,omitempty"`
	Role      Role            `json:"role,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}
