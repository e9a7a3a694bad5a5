// Package statecache keeps the latest known state of every car and driver in memory.
//
// Entities are keyed by type and id: a car and a driver may share an id.
//
// Entries are merged last-writer-wins on their event timestamp: an entry older
// than the cached one of the same kind is rejected, an equal one replaces it.
package statecache

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo"
)

const (
	shardCount      = 32
	defaultPageSize = 500
)

type Cache struct {
	shards [shardCount]shard

	hydrated atomic.Bool

	store     repo.EntityReader
	snapshots repo.Snapshot
	pageSize  int

	rejected *prometheus.CounterVec
	logger   logr.Logger
}

type shard struct {
	mu    sync.RWMutex
	items map[entity.Key]entity.Snapshot
}

func New(store repo.EntityReader, registry prometheus.Registerer) (*Cache, error) {
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statecache",
		Name:      "rejected_total",
		Help:      "Out of order entries rejected by entry kind.",
	}, []string{"entry"})

	err := registry.Register(rejected)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := &Cache{
		store:    store,
		pageSize: defaultPageSize,
		rejected: rejected,
		logger:   logr.Discard(),
	}

	for i := range ret.shards {
		ret.shards[i].items = make(map[entity.Key]entity.Snapshot)
	}

	return ret, nil
}

// WithSnapshots enables saving the cache on shutdown and merging it back on hydration.
func (c *Cache) WithSnapshots(snapshots repo.Snapshot) *Cache {
	c.snapshots = snapshots

	return c
}

func (c *Cache) WithPageSize(pageSize int) *Cache {
	if pageSize > 0 {
		c.pageSize = pageSize
	}

	return c
}

func (c *Cache) WithLogger(logger logr.Logger) *Cache {
	c.logger = logger

	return c
}

// Ready reports whether the cache has been hydrated.
func (c *Cache) Ready() bool {
	return c.hydrated.Load()
}

// Get returns the cached snapshot. Nothing is known before hydration completes.
func (c *Cache) Get(key entity.Key) (entity.Snapshot, bool) {
	if !c.Ready() {
		return entity.Snapshot{}, false
	}

	return c.get(key)
}

func (c *Cache) get(key entity.Key) (entity.Snapshot, bool) {
	s := c.shard(key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	ret, ok := s.items[key]

	return ret, ok
}

// Put merges entry into the entity snapshot and returns whether it was accepted.
func (c *Cache) Put(key entity.Key, entry entity.CacheEntry) bool {
	s := c.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[key]
	if !ok {
		current = entity.Snapshot{EntityID: key.ID, EntityType: key.Type}
	}

	if !accept(current, entry) {
		c.rejected.WithLabelValues(string(entry.EntryKind())).Inc()

		return false
	}

	s.items[key] = current.With(entry)

	return true
}

// All returns every cached snapshot, in no particular order.
func (c *Cache) All() []entity.Snapshot {
	if !c.Ready() {
		return nil
	}

	return c.all()
}

func (c *Cache) all() []entity.Snapshot {
	var ret []entity.Snapshot

	for i := range c.shards {
		s := &c.shards[i]

		s.mu.RLock()
		for _, snapshot := range s.items {
			ret = append(ret, snapshot)
		}
		s.mu.RUnlock()
	}

	return ret
}

// Hydrate loads every entity from the store, then the saved snapshot if any.
func (c *Cache) Hydrate(ctx context.Context) error {
	criteria := repo.EntityCriteria{OrderBy: repo.OrderByID}
	count := 0

	for skip := 0; ; skip += c.pageSize {
		states, err := c.store.FindEntities(ctx, criteria.Page(skip, c.pageSize))
		if err != nil {
			return fmt.Errorf("failed to load entities from store: %w", err)
		}

		for _, state := range states {
			c.merge(fromState(state))
		}

		count += len(states)

		if len(states) < c.pageSize {
			break
		}
	}

	c.logger.V(1).Info("Loaded entities from store", "count", count)

	if c.snapshots != nil {
		c.mergeSaved(ctx)
	}

	c.hydrated.Store(true)

	return nil
}

// mergeSaved restores values not yet persisted when the previous process stopped.
// It is best effort: the store remains the source of truth.
func (c *Cache) mergeSaved(ctx context.Context) {
	snapshots, err := c.snapshots.LoadSnapshots(ctx)
	if err != nil {
		c.logger.Error(err, "Failed to load saved snapshots, continuing with store state only")

		return
	}

	for _, snapshot := range snapshots {
		c.merge(snapshot)
	}

	c.logger.V(1).Info("Merged saved snapshots", "count", len(snapshots))
}

// Load serves key from memory and falls back to the store on a miss.
func (c *Cache) Load(ctx context.Context, key entity.Key) (entity.Snapshot, bool, error) {
	ret, ok := c.Get(key)
	if ok {
		return ret, true, nil
	}

	states, err := c.store.FindEntities(ctx, repo.EntityCriteria{}.WithType(key.Type).WithIDs(key.ID))
	if err != nil {
		return entity.Snapshot{}, false, fmt.Errorf("failed to load %s from store: %w", key, err)
	}

	found := false

	for _, state := range states {
		if state.Type != key.Type || state.ID != key.ID {
			continue
		}

		c.merge(fromState(state))

		found = true
	}

	if !found {
		return entity.Snapshot{}, false, nil
	}

	ret, ok = c.get(key)

	return ret, ok, nil
}

// Demote marks key inactive unless it was seen after cutoff. Cars also lose their passengers.
func (c *Cache) Demote(key entity.Key, cutoff time.Time) bool {
	s := c.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[key]
	if !ok {
		return false
	}

	status := entity.StatusEntry{Status: entity.StatusInactive, Timestamp: cutoff}

	if current.Status != nil {
		if current.Status.LastSeen.After(cutoff) {
			return false
		}

		status.LastSeen = current.Status.LastSeen

		if current.Status.Timestamp.After(cutoff) {
			status.Timestamp = current.Status.Timestamp
		}
	}

	current = current.With(status)

	if current.EntityType == entity.EntityTypeCar && current.Passengers != nil {
		current = current.With(entity.PassengerEntry{Count: 0, Timestamp: current.Passengers.Timestamp})
	}

	s.items[key] = current

	return true
}

// Shutdown saves the cache if snapshots are enabled. The cache is not ready anymore afterward.
func (c *Cache) Shutdown(ctx context.Context) error {
	c.hydrated.Store(false)

	if c.snapshots == nil {
		return nil
	}

	snapshots := c.all()

	err := c.snapshots.SaveSnapshots(ctx, snapshots)
	if err != nil {
		return fmt.Errorf("failed to save %d snapshots: %w", len(snapshots), err)
	}

	c.logger.V(1).Info("Saved snapshots", "count", len(snapshots))

	return nil
}

func (c *Cache) merge(incoming entity.Snapshot) {
	key := incoming.Key()
	s := c.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[key]
	if !ok {
		current = entity.Snapshot{EntityID: key.ID, EntityType: key.Type}
	}

	for _, entry := range incoming.Entries() {
		if accept(current, entry) {
			current = current.With(entry)
		}
	}

	s.items[key] = current
}

func (c *Cache) shard(key entity.Key) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.Type))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.ID))

	return &c.shards[h.Sum32()%shardCount]
}

func accept(current entity.Snapshot, entry entity.CacheEntry) bool {
	existing, ok := current.Entry(entry.EntryKind())
	if !ok {
		return true
	}

	return !existing.At().After(entry.At())
}

func fromState(state entity.EntityState) entity.Snapshot {
	ret := entity.Snapshot{EntityID: state.ID, EntityType: state.Type}

	if state.Status != "" {
		ret = ret.With(entity.StatusEntry{Status: state.Status, LastSeen: state.LastSeen, Timestamp: state.LastSeen})
	}

	if state.Lat != nil && state.Lng != nil {
		ret = ret.With(entity.LocationEntry{Lat: *state.Lat, Lng: *state.Lng, Timestamp: state.LocationAt})
	}

	if state.Passengers != nil {
		ret = ret.With(entity.PassengerEntry{Count: *state.Passengers, Timestamp: state.PassengersAt})
	}

	if state.ECR != nil {
		ret = ret.With(entity.ECREntry{ECR: *state.ECR, ResponseTime: state.ResponseTime, Timestamp: state.ECRAt})
	}

	if len(state.Info) > 0 {
		ret = ret.With(entity.InfoEntry{Fields: state.Info, Timestamp: state.UpdatedAt})
	}

	return ret
}
