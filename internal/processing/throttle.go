package processing

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
)

const throttleShardCount = 32

// Throttle allows at most one store write per (entity, kind) per window.
// The window only moves forward once a write is committed.
type Throttle struct {
	window time.Duration
	clock  clockwork.Clock

	shards [throttleShardCount]throttleShard
}

type throttleKey struct {
	id   string
	kind entity.Kind
}

type throttleShard struct {
	mu       sync.Mutex
	last     map[throttleKey]time.Time
	inFlight map[throttleKey]struct{}
}

// Ticket is granted by Acquire and must be either committed or released.
type Ticket struct {
	key throttleKey
	at  time.Time
}

func NewThrottle(window time.Duration, clock clockwork.Clock) *Throttle {
	ret := &Throttle{
		window: window,
		clock:  clock,
	}

	for i := range ret.shards {
		ret.shards[i].last = make(map[throttleKey]time.Time)
		ret.shards[i].inFlight = make(map[throttleKey]struct{})
	}

	return ret
}

// Acquire grants a write when the last committed one is at least a window old
// and no other write is in flight for the same key.
func (t *Throttle) Acquire(id string, kind entity.Kind) (Ticket, bool) {
	key := throttleKey{id: id, kind: kind}
	now := t.clock.Now()

	s := t.shard(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[key]; busy {
		return Ticket{}, false
	}

	last, ok := s.last[key]
	if ok && now.Sub(last) < t.window {
		return Ticket{}, false
	}

	s.inFlight[key] = struct{}{}

	return Ticket{key: key, at: now}, true
}

func (t *Throttle) Commit(ticket Ticket) {
	s := t.shard(ticket.key.id)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, ticket.key)
	s.last[ticket.key] = ticket.at
}

// Release gives the ticket back without moving the window: the next event may write.
func (t *Throttle) Release(ticket Ticket) {
	s := t.shard(ticket.key.id)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, ticket.key)
}

func (t *Throttle) shard(id string) *throttleShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))

	return &t.shards[h.Sum32()%throttleShardCount]
}
