package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/mossy-p/voxa-signaling/internal/models"
	"github.com/rs/zerolog"
)

const DefaultMaxTagLength = 64

type Options struct {
	// MaxTagLength bounds tag size in bytes. Zero means DefaultMaxTagLength.
	MaxTagLength int
	Logger       zerolog.Logger
	Observer     Observer
}

// Relay owns the registry, the tag queues and the session table. Every
// mutation goes through its mutex, so messages are dispatched one at a time.
// Outbound writes use Sender.TrySend and never block the dispatch path.
type Relay struct {
	mu       sync.Mutex
	registry *Registry
	queue    *TagQueue
	sessions map[string]*Session

	maxTagLength int
	log          zerolog.Logger
	observer     Observer
}

func New(opts Options) *Relay {
	if opts.MaxTagLength <= 0 {
		opts.MaxTagLength = DefaultMaxTagLength
	}
	observer := opts.Observer
	if observer == nil {
		observer = Observers(nil)
	}
	return &Relay{
		registry:     NewRegistry(),
		queue:        NewTagQueue(),
		sessions:     make(map[string]*Session),
		maxTagLength: opts.MaxTagLength,
		log:          opts.Logger,
		observer:     observer,
	}
}

// Register adds a freshly accepted transport and returns its id.
func (r *Relay) Register(sender Sender) ConnectionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.registry.Register(sender)
	r.log.Debug().Str("conn", string(c.ID)).Int("connections", r.registry.Len()).Msg("connection registered")
	return c.ID
}

// Unregister forgets a closed transport. A queued connection leaves its
// queue and an active session is ended with the peer notified. Unknown ids
// are ignored so duplicate close notifications are harmless.
func (r *Relay) Unregister(id ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.registry.Remove(id)
	if !ok {
		return
	}
	if r.queue.Remove(c) {
		r.observer.QueueChanged(c.Tag, r.queue.Len(c.Tag))
	}
	if s := c.session; s != nil {
		r.endSession(s, c, EndReasonDisconnect)
	}
	r.log.Debug().Str("conn", string(id)).Int("connections", r.registry.Len()).Msg("connection unregistered")
}

// Get returns a snapshot of the connection with the given id.
func (r *Relay) Get(id ConnectionID) (ConnectionInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.registry.Get(id)
	if !ok {
		return ConnectionInfo{}, false
	}
	return c.info(), true
}

// Handle dispatches one raw envelope received from connection id. Returned
// errors are meant for the sender only; they never affect other clients.
func (r *Relay) Handle(id ConnectionID, raw []byte) error {
	msg, parseErr := parseMessage(raw)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.registry.Get(id)
	if !ok {
		r.observer.MessageDropped(ErrorCode(ErrUnknownConnection))
		return ErrUnknownConnection
	}

	err := parseErr
	if err == nil {
		switch msg.Type {
		case models.SignalTypeJoin:
			err = r.join(c, msg.Tag)
		case models.SignalTypeLeave:
			r.leave(c)
		case models.SignalTypeOffer, models.SignalTypeAnswer, models.SignalTypeCandidate:
			err = r.forward(c, msg)
		}
	}

	if err != nil {
		r.observer.MessageDropped(ErrorCode(err))
		r.log.Warn().Err(err).Str("conn", string(id)).Str("type", string(msg.Type)).Msg("message rejected")
	}
	return err
}

// EndSession force-ends a session and notifies both members. It reports
// whether the session existed.
func (r *Relay) EndSession(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	r.endSession(s, nil, EndReasonEvicted)
	return true
}

// Sessions lists live sessions, oldest first.
func (r *Relay) Sessions() []models.SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Relay) Stats() models.RelayStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return models.RelayStats{
		Connections:    r.registry.Len(),
		ActiveSessions: len(r.sessions),
		Waiting:        r.queue.Snapshot(),
	}
}

// Waiting returns the number of connections queued under tag.
func (r *Relay) Waiting(tag string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.Len(tag)
}

func (r *Relay) join(c *Connection, tag string) error {
	if c.waiting || c.session != nil {
		return ErrDuplicateJoin
	}

	// A connection keeps its first tag; a later join may repeat or omit it.
	switch {
	case c.Tag != "" && tag == "":
		tag = c.Tag
	case c.Tag != "" && tag != c.Tag:
		return fmt.Errorf("%w: connection is bound to tag %q", ErrInvalidMessage, c.Tag)
	case tag == "":
		return fmt.Errorf("%w: join requires a tag", ErrInvalidMessage)
	case len(tag) > r.maxTagLength:
		return fmt.Errorf("%w: tag longer than %d bytes", ErrInvalidMessage, r.maxTagLength)
	}

	s := r.queue.EnqueueOrPair(c, tag)
	r.observer.QueueChanged(tag, r.queue.Len(tag))
	if s == nil {
		r.log.Info().Str("conn", string(c.ID)).Str("tag", tag).Msg("waiting for a partner")
		return nil
	}

	r.sessions[s.ID] = s
	r.observer.SessionStarted(s.Info())
	r.log.Info().
		Str("session", s.ID).
		Str("tag", tag).
		Str("initiator", string(s.Initiator.ID)).
		Str("responder", string(s.Responder.ID)).
		Msg("session created")

	r.send(s.Initiator, models.SignalMessage{
		Type:      models.SignalTypeMatch,
		Tag:       tag,
		Role:      models.RoleInitiator,
		SessionID: s.ID,
	})
	r.send(s.Responder, models.SignalMessage{
		Type:      models.SignalTypeMatch,
		Tag:       tag,
		Role:      models.RoleResponder,
		SessionID: s.ID,
	})
	return nil
}

func (r *Relay) leave(c *Connection) {
	s := c.session
	if s == nil {
		r.log.Debug().Str("conn", string(c.ID)).Msg("leave without session ignored")
		return
	}
	r.endSession(s, c, EndReasonLeave)
}

func (r *Relay) forward(c *Connection, msg models.SignalMessage) error {
	s := c.session
	if s == nil {
		return ErrNoActiveSession
	}

	peer := s.Peer(c)
	if !r.send(peer, models.SignalMessage{Type: msg.Type, Payload: msg.Payload}) {
		return nil
	}
	r.observer.Forwarded(msg.Type)

	switch msg.Type {
	case models.SignalTypeOffer:
		s.advance(StateNegotiating)
	case models.SignalTypeAnswer:
		s.advance(StateActive)
	}
	return nil
}

// endSession retires s and sends peer-left to every member except leaver.
func (r *Relay) endSession(s *Session, leaver *Connection, reason EndReason) {
	if !s.end() {
		return
	}
	delete(r.sessions, s.ID)

	for _, m := range s.Members() {
		if m == leaver {
			continue
		}
		r.send(m, models.SignalMessage{Type: models.SignalTypePeerLeft})
	}
	r.observer.SessionEnded(s.Info(), reason)
	r.log.Info().Str("session", s.ID).Str("reason", string(reason)).Msg("session ended")
}

// send delivers msg to c if its channel is open. Failures are counted as
// ErrPeerUnreachable and otherwise swallowed.
func (r *Relay) send(c *Connection, msg models.SignalMessage) bool {
	if !c.open {
		r.observer.MessageDropped(ErrorCode(ErrPeerUnreachable))
		return false
	}

	data, err := encode(msg)
	if err != nil {
		r.log.Error().Err(err).Str("conn", string(c.ID)).Msg("failed to marshal message")
		return false
	}

	if err := c.sender.TrySend(data); err != nil {
		r.observer.MessageDropped(ErrorCode(ErrPeerUnreachable))
		r.log.Warn().Err(err).Str("conn", string(c.ID)).Str("type", string(msg.Type)).Msg("failed to send message")
		return false
	}
	return true
}

// encode marshals msg without HTML escaping so payload strings reach the
// peer unchanged.
func encode(msg models.SignalMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func parseMessage(raw []byte) (models.SignalMessage, error) {
	// Peers receive text frames; a browser drops the socket on invalid UTF-8.
	if !utf8.Valid(raw) {
		return models.SignalMessage{}, fmt.Errorf("%w: not valid UTF-8", ErrInvalidMessage)
	}

	var msg models.SignalMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return models.SignalMessage{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch {
	case msg.Type == models.SignalTypeJoin, msg.Type == models.SignalTypeLeave:
	case msg.Type.IsNegotiation():
		if !isObject(msg.Payload) {
			return msg, fmt.Errorf("%w: %s requires an object payload", ErrInvalidMessage, msg.Type)
		}
	default:
		return msg, fmt.Errorf("%w: unsupported type %q", ErrInvalidMessage, msg.Type)
	}
	return msg, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
