package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/mossy-p/voxa-signaling/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeSender) TrySend(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	f.frames = append(f.frames, append([]byte(nil), data...))
	return nil
}

func (f *fakeSender) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSender) messages(t *testing.T) []models.SignalMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SignalMessage, 0, len(f.frames))
	for _, frame := range f.frames {
		var msg models.SignalMessage
		require.NoError(t, json.Unmarshal(frame, &msg))
		out = append(out, msg)
	}
	return out
}

func (f *fakeSender) raw(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[i]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

type recordingObserver struct {
	queue    map[string]int
	started  []models.SessionInfo
	ended    []EndReason
	forwards []models.SignalType
	dropped  []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{queue: make(map[string]int)}
}

func (o *recordingObserver) QueueChanged(tag string, waiting int) { o.queue[tag] = waiting }
func (o *recordingObserver) SessionStarted(info models.SessionInfo) {
	o.started = append(o.started, info)
}
func (o *recordingObserver) SessionEnded(_ models.SessionInfo, reason EndReason) {
	o.ended = append(o.ended, reason)
}
func (o *recordingObserver) Forwarded(t models.SignalType) { o.forwards = append(o.forwards, t) }
func (o *recordingObserver) MessageDropped(code string)    { o.dropped = append(o.dropped, code) }

type client struct {
	id     ConnectionID
	sender *fakeSender
}

func newTestRelay(observer Observer) *Relay {
	return New(Options{Logger: zerolog.Nop(), Observer: observer})
}

func connect(r *Relay) *client {
	s := &fakeSender{}
	return &client{id: r.Register(s), sender: s}
}

func send(t *testing.T, r *Relay, c *client, msg string) error {
	t.Helper()
	return r.Handle(c.id, []byte(msg))
}
