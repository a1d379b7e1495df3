package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mossy-p/voxa-signaling/internal/models"
	"github.com/mossy-p/voxa-signaling/internal/relay"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix         = "voxa:"
	instanceKeyPrefix = keyPrefix + "instance:"
	forwardedKey      = keyPrefix + "forwarded"
	droppedKey        = keyPrefix + "dropped"
	eventBuffer       = 1024
	commandTimeout    = 2 * time.Second
	defaultTTL        = 24 * time.Hour
)

type command func(ctx context.Context, pipe redis.Pipeliner)

// Presence mirrors relay state into Redis so dashboards can see waiting
// counts and live sessions across instances. It implements relay.Observer;
// writes are queued and applied by a background goroutine so the relay never
// waits on Redis. That goroutine renews every record of this instance each
// ttl/3, so records outlive the ttl only while the instance is alive.
type Presence struct {
	client   *redis.Client
	instance string
	ttl      time.Duration

	// sessions published by this instance; only touched by run
	live map[string]struct{}

	commands  chan command
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ relay.Observer = (*Presence)(nil)

func NewPresence(client *redis.Client, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	p := &Presence{
		client:   client,
		instance: uuid.New().String(),
		ttl:      ttl,
		live:     make(map[string]struct{}),
		commands: make(chan command, eventBuffer),
		done:     make(chan struct{}),
	}
	p.enqueue(p.heartbeat)

	p.wg.Add(1)
	go p.run()
	return p
}

// Instance returns the id under which this process publishes its records
func (p *Presence) Instance() string { return p.instance }

func instanceKey(instance string) string {
	return instanceKeyPrefix + instance
}

func (p *Presence) waitingKey(instance string) string {
	return keyPrefix + "waiting:" + instance
}

func (p *Presence) sessionsKey(instance string) string {
	return keyPrefix + "sessions:" + instance
}

func sessionKey(id string) string {
	return keyPrefix + "session:" + id
}

func (p *Presence) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case cmd := <-p.commands:
			p.apply(cmd)
		case <-ticker.C:
			p.apply(p.heartbeat)
		}
	}
}

// heartbeat marks the instance alive and pushes back the expiry of
// everything it has published.
func (p *Presence) heartbeat(ctx context.Context, pipe redis.Pipeliner) {
	pipe.Set(ctx, instanceKey(p.instance), 1, p.ttl)
	pipe.Expire(ctx, p.waitingKey(p.instance), p.ttl)
	pipe.Expire(ctx, p.sessionsKey(p.instance), p.ttl)
	for id := range p.live {
		pipe.Expire(ctx, sessionKey(id), p.ttl)
	}
}

func (p *Presence) apply(cmd command) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		cmd(ctx, pipe)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "redis.presence").Msg("failed to publish presence")
	}
}

func (p *Presence) enqueue(cmd command) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.commands <- cmd:
	default:
		log.Warn().Str("module", "redis.presence").Msg("presence buffer full, dropping update")
	}
}

func (p *Presence) QueueChanged(tag string, waiting int) {
	key := p.waitingKey(p.instance)
	p.enqueue(func(ctx context.Context, pipe redis.Pipeliner) {
		if waiting == 0 {
			pipe.HDel(ctx, key, tag)
		} else {
			pipe.HSet(ctx, key, tag, waiting)
		}
		pipe.Expire(ctx, key, p.ttl)
	})
}

func (p *Presence) SessionStarted(info models.SessionInfo) {
	data, err := json.Marshal(info)
	if err != nil {
		log.Error().Err(err).Str("module", "redis.presence").Msg("failed to marshal session")
		return
	}
	key := p.sessionsKey(p.instance)
	p.enqueue(func(ctx context.Context, pipe redis.Pipeliner) {
		p.live[info.ID] = struct{}{}
		pipe.Set(ctx, sessionKey(info.ID), data, p.ttl)
		pipe.SAdd(ctx, key, info.ID)
		pipe.Expire(ctx, key, p.ttl)
	})
}

func (p *Presence) SessionEnded(info models.SessionInfo, _ relay.EndReason) {
	key := p.sessionsKey(p.instance)
	p.enqueue(func(ctx context.Context, pipe redis.Pipeliner) {
		delete(p.live, info.ID)
		pipe.Del(ctx, sessionKey(info.ID))
		pipe.SRem(ctx, key, info.ID)
	})
}

func (p *Presence) Forwarded(t models.SignalType) {
	p.enqueue(func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.HIncrBy(ctx, forwardedKey, string(t), 1)
	})
}

func (p *Presence) MessageDropped(code string) {
	p.enqueue(func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.HIncrBy(ctx, droppedKey, code, 1)
	})
}

// Snapshot sums the records of every live instance in Redis.
func (p *Presence) Snapshot(ctx context.Context) (models.PresenceSnapshot, error) {
	snap := models.PresenceSnapshot{Waiting: make(map[string]int64)}

	var instances []string
	iter := p.client.Scan(ctx, 0, instanceKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		instances = append(instances, strings.TrimPrefix(iter.Val(), instanceKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return snap, err
	}
	snap.Instances = len(instances)

	for _, instance := range instances {
		waiting, err := p.client.HGetAll(ctx, p.waitingKey(instance)).Result()
		if err != nil {
			return snap, err
		}
		for tag, raw := range waiting {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			snap.Waiting[tag] += n
		}

		sessions, err := p.client.SCard(ctx, p.sessionsKey(instance)).Result()
		if err != nil {
			return snap, err
		}
		snap.ActiveSessions += sessions
	}
	return snap, nil
}

// Session returns the published record of a session, from any instance.
func (p *Presence) Session(ctx context.Context, id string) (models.SessionInfo, bool, error) {
	var info models.SessionInfo
	data, err := p.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return info, false, nil
	}
	if err != nil {
		return info, false, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, false, err
	}
	return info, true, nil
}

// Close stops publishing and removes this instance's records. The Redis
// client itself is left open for its owner to close.
func (p *Presence) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()

		_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for id := range p.live {
				pipe.Del(ctx, sessionKey(id))
			}
			pipe.Del(ctx, instanceKey(p.instance), p.waitingKey(p.instance), p.sessionsKey(p.instance))
			return nil
		})
	})
	return err
}
