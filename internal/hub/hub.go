// Package hub owns the push subscriptions of connected clients.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/pkg/broadcast"
)

var (
	ErrConnectionClosed  = errors.New("connection closed")
	ErrInvalidInterval   = errors.New("invalid poll interval")
	ErrMissingEntityID   = errors.New("missing entity id")
	ErrInvalidEntityType = errors.New("invalid entity type")
)

type Config struct {
	BufferSize      int
	MinPollInterval time.Duration
}

type Hub struct {
	source Source
	poller Poller
	clock  clockwork.Clock
	conf   Config

	mu    sync.Mutex
	conns map[string]*connState

	active       *prometheus.GaugeVec
	pushFailures prometheus.Counter

	logger logr.Logger
}

// connState outlives OnDisconnect with closed set, until the transport releases it.
type connState struct {
	conn   Connection
	subs   map[string]*subscription
	closed bool
}

type subscription struct {
	info   Info
	cancel context.CancelFunc
	done   chan struct{}
}

// stop returns once the goroutine of the subscription exited.
func (s *subscription) stop() {
	s.cancel()
	<-s.done
}

func New(source Source, poller Poller, clock clockwork.Clock, conf Config, registry prometheus.Registerer) (*Hub, error) {
	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hub",
		Name:      "subscriptions",
		Help:      "Running subscriptions by source.",
	}, []string{"source"})

	pushFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hub",
		Name:      "push_failures_total",
		Help:      "Pushes that failed and tore their connection down.",
	})

	for _, c := range []prometheus.Collector{active, pushFailures} {
		err := registry.Register(c)
		if err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	ret := &Hub{
		source:       source,
		poller:       poller,
		clock:        clock,
		conf:         conf,
		conns:        make(map[string]*connState),
		active:       active,
		pushFailures: pushFailures,
		logger:       logr.Discard(),
	}

	return ret, nil
}

func (h *Hub) WithLogger(logger logr.Logger) *Hub {
	h.logger = logger

	return h
}

// CreateLiveSubscription streams the ingested events matching predicate to conn.
// Events published after it returns are never missed, unless dropped for a slow consumer.
func (h *Hub) CreateLiveSubscription(conn Connection, predicate Predicate) (string, error) {
	info := Info{
		ID:        uuid.NewString(),
		Source:    SourceTypeLive,
		Predicate: predicate,
		CreatedAt: h.clock.Now(),
	}

	events := h.source.OnEvent(h.conf.BufferSize)
	m := newMatcher(predicate)

	err := h.start(conn, info, func(ctx context.Context) error {
		defer events.Unsubscribe()

		return h.runLive(ctx, conn, info.ID, events, m)
	})
	if err != nil {
		events.Unsubscribe()

		return "", err
	}

	return info.ID, nil
}

// CreatePollSubscription pushes the state of the keyed entity every interval.
// Intervals below the configured minimum are raised to it.
func (h *Hub) CreatePollSubscription(conn Connection, key entity.Key, interval time.Duration) (string, error) {
	if key.ID == "" {
		return "", ErrMissingEntityID
	}

	if key.Type != entity.EntityTypeCar && key.Type != entity.EntityTypeDriver {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, key.Type)
	}

	if interval <= 0 {
		return "", fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}

	if interval < h.conf.MinPollInterval {
		interval = h.conf.MinPollInterval
	}

	info := Info{
		ID:        uuid.NewString(),
		Source:    SourceTypePoll,
		Predicate: Predicate{Entities: []entity.Key{key}},
		Interval:  interval,
		CreatedAt: h.clock.Now(),
	}

	err := h.start(conn, info, func(ctx context.Context) error {
		return h.runPoll(ctx, conn, info.ID, key, interval)
	})
	if err != nil {
		return "", err
	}

	return info.ID, nil
}

// Stop is idempotent: an unknown id is a no-op. No push for id happens once it returns.
func (h *Hub) Stop(conn Connection, id string) {
	h.mu.Lock()

	state, ok := h.conns[conn.ID()]
	if !ok {
		h.mu.Unlock()

		return
	}

	sub, ok := state.subs[id]
	h.mu.Unlock()

	if !ok {
		return
	}

	sub.stop()

	h.mu.Lock()
	if _, ok := state.subs[id]; ok {
		delete(state.subs, id)
		h.active.WithLabelValues(string(sub.info.Source)).Dec()
	}
	h.mu.Unlock()
}

// OnDisconnect cancels every subscription of conn. Only the first call has an effect:
// conn stays closed, later subscriptions on it fail with ErrConnectionClosed.
func (h *Hub) OnDisconnect(conn Connection) {
	h.mu.Lock()

	state, ok := h.conns[conn.ID()]
	if !ok || state.closed {
		h.mu.Unlock()

		return
	}

	state.closed = true

	subs := make([]*subscription, 0, len(state.subs))
	for _, sub := range state.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}

	for _, sub := range subs {
		<-sub.done
	}

	h.mu.Lock()
	for id, sub := range state.subs {
		delete(state.subs, id)
		h.active.WithLabelValues(string(sub.info.Source)).Dec()
	}
	h.mu.Unlock()

	h.logger.V(1).Info("Connection closed", "connection", conn.ID(), "subscriptions", len(subs))
}

// Release disconnects conn and forgets it. The transport calls it once conn
// cannot issue any more request.
func (h *Hub) Release(conn Connection) {
	h.OnDisconnect(conn)

	h.mu.Lock()
	delete(h.conns, conn.ID())
	h.mu.Unlock()
}

// Subscriptions lists the running subscriptions of conn.
func (h *Hub) Subscriptions(conn Connection) []Info {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.conns[conn.ID()]
	if !ok {
		return nil
	}

	ret := make([]Info, 0, len(state.subs))
	for _, sub := range state.subs {
		ret = append(ret, sub.info)
	}

	return ret
}

// Run releases every connection once ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()

	h.Close()

	return nil
}

// Close disconnects every connection.
func (h *Hub) Close() {
	h.mu.Lock()

	conns := make([]Connection, 0, len(h.conns))
	for _, state := range h.conns {
		conns = append(conns, state.conn)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup

	for _, conn := range conns {
		wg.Add(1)

		go func(conn Connection) {
			defer wg.Done()

			h.OnDisconnect(conn)
		}(conn)
	}

	wg.Wait()
}

func (h *Hub) start(conn Connection, info Info, run func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())

	sub := &subscription{
		info:   info,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.conns[conn.ID()]
	if !ok {
		state = &connState{
			conn: conn,
			subs: make(map[string]*subscription),
		}

		h.conns[conn.ID()] = state
	}

	if state.closed {
		cancel()

		return ErrConnectionClosed
	}

	state.subs[info.ID] = sub
	h.active.WithLabelValues(string(info.Source)).Inc()

	go func() {
		defer close(sub.done)

		err := run(ctx)
		if err != nil {
			h.pushFailed(conn, info, err)
		}
	}()

	h.logger.V(1).Info("Subscription created", "connection", conn.ID(), "subscription", info.ID, "source", info.Source)

	return nil
}

// pushFailed tears the connection down. It runs asynchronously since OnDisconnect
// waits for the failing goroutine.
func (h *Hub) pushFailed(conn Connection, info Info, err error) {
	h.pushFailures.Inc()

	h.logger.Error(err, "Push failed, dropping connection", "connection", conn.ID(), "subscription", info.ID)

	go h.OnDisconnect(conn)
}

func (h *Hub) runLive(ctx context.Context, conn Connection, id string, events *broadcast.Subscription[entity.Event], m matcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events.C():
			if !ok {
				return nil
			}

			if !m.match(event) {
				continue
			}

			err := conn.Push(ctx, id, event)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return err
			}
		}
	}
}

func (h *Hub) runPoll(ctx context.Context, conn Connection, id string, key entity.Key, interval time.Duration) error {
	poll := h.poller.Poll(ctx, key, interval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case result, ok := <-poll.C():
			if !ok {
				return nil
			}

			if result.Err != nil {
				h.logger.V(1).Info("Poll read failed", "subscription", id, "entity", key.String(), "error", result.Err.Error())

				continue
			}

			if !result.Found {
				continue
			}

			err := conn.Push(ctx, id, result.Snapshot)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return err
			}
		}
	}
}
