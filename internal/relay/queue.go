package relay

// TagQueue holds, per tag, the connections waiting for a partner in join
// order. Pairing happens synchronously on enqueue so a tag never keeps more
// than one waiter. Not safe for concurrent use.
type TagQueue struct {
	waiting map[string][]*Connection
}

func NewTagQueue() *TagQueue {
	return &TagQueue{waiting: make(map[string][]*Connection)}
}

// EnqueueOrPair queues c under tag, or pairs it with the oldest waiter of
// that tag. The popped waiter becomes the initiator and c the responder.
// It returns nil when c was queued.
func (q *TagQueue) EnqueueOrPair(c *Connection, tag string) *Session {
	c.Tag = tag
	queue := q.waiting[tag]
	if len(queue) == 0 {
		q.waiting[tag] = append(queue, c)
		c.waiting = true
		return nil
	}

	initiator := queue[0]
	queue[0] = nil
	if len(queue) == 1 {
		delete(q.waiting, tag)
	} else {
		q.waiting[tag] = queue[1:]
	}
	return newSession(initiator, c, tag)
}

// Remove withdraws c from whichever queue holds it.
func (q *TagQueue) Remove(c *Connection) bool {
	if !c.waiting {
		return false
	}
	c.waiting = false

	queue := q.waiting[c.Tag]
	for i, w := range queue {
		if w != c {
			continue
		}
		queue = append(queue[:i], queue[i+1:]...)
		if len(queue) == 0 {
			delete(q.waiting, c.Tag)
		} else {
			q.waiting[c.Tag] = queue
		}
		return true
	}
	return false
}

func (q *TagQueue) Len(tag string) int {
	return len(q.waiting[tag])
}

// Snapshot returns the number of waiters for every non-empty tag.
func (q *TagQueue) Snapshot() map[string]int {
	out := make(map[string]int, len(q.waiting))
	for tag, queue := range q.waiting {
		out[tag] = len(queue)
	}
	return out
}
