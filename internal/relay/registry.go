package relay

import (
	"github.com/google/uuid"
	"github.com/mossy-p/voxa-signaling/internal/models"
)

// ConnectionID uniquely identifies a transport connection
type ConnectionID string

// Sender is the outbound half of a client transport. TrySend must not block;
// it returns an error when the channel is closed or its buffer is full.
type Sender interface {
	TrySend(data []byte) error
}

// Connection is the relay's view of one client transport.
type Connection struct {
	ID ConnectionID
	// Tag is set by the first join and never changes afterwards.
	Tag string

	sender  Sender
	session *Session
	waiting bool
	open    bool
}

// Session returns the session the connection currently belongs to, or nil.
func (c *Connection) Session() *Session { return c.session }

// Waiting reports whether the connection sits in a tag queue.
func (c *Connection) Waiting() bool { return c.waiting }

// Open reports whether the transport is still live.
func (c *Connection) Open() bool { return c.open }

// ConnectionInfo is a point-in-time copy of a connection's state. It holds
// no pointers into the relay, so it can be read without the relay lock.
type ConnectionInfo struct {
	ID        ConnectionID
	Tag       string
	Waiting   bool
	SessionID string // empty when not in a session
	State     State
	Role      models.Role
}

func (c *Connection) info() ConnectionInfo {
	info := ConnectionInfo{ID: c.ID, Tag: c.Tag, Waiting: c.waiting}
	if s := c.session; s != nil {
		info.SessionID = s.ID
		info.State = s.state
		info.Role = models.RoleResponder
		if s.Initiator == c {
			info.Role = models.RoleInitiator
		}
	}
	return info
}

// Registry tracks every live connection. It is not safe for concurrent use;
// the owning Relay serializes access.
type Registry struct {
	conns map[ConnectionID]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[ConnectionID]*Connection)}
}

// Register creates a connection for sender and returns it.
func (r *Registry) Register(sender Sender) *Connection {
	c := &Connection{
		ID:     ConnectionID(uuid.New().String()),
		sender: sender,
		open:   true,
	}
	r.conns[c.ID] = c
	return c
}

func (r *Registry) Get(id ConnectionID) (*Connection, bool) {
	c, ok := r.conns[id]
	return c, ok
}

// Remove drops id from the registry and marks the connection closed.
// Removing an unknown id returns false.
func (r *Registry) Remove(id ConnectionID) (*Connection, bool) {
	c, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	delete(r.conns, id)
	c.open = false
	return c, true
}

func (r *Registry) Len() int {
	return len(r.conns)
}
