// Package liveness demotes cars and drivers whose heartbeats stopped.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo"
)

var ErrSweepRunning = errors.New("a sweep is already running")

// Demoter mirrors store demotions in memory.
type Demoter interface {
	Demote(key entity.Key, cutoff time.Time) bool
}

type Config struct {
	SweepInterval time.Duration
	DriverTimeout time.Duration
	CarTimeout    time.Duration
}

type Monitor struct {
	store repo.EntityWriter
	cache Demoter
	clock clockwork.Clock
	conf  Config

	running atomic.Bool

	demoted *prometheus.CounterVec
	skipped prometheus.Counter

	logger logr.Logger
}

func NewMonitor(store repo.EntityWriter, cache Demoter, clock clockwork.Clock, conf Config, registry prometheus.Registerer) (*Monitor, error) {
	demoted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liveness",
		Name:      "demoted_total",
		Help:      "Entities marked inactive by entity type.",
	}, []string{"entity"})

	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liveness",
		Name:      "skipped_sweeps_total",
		Help:      "Ticks skipped because the previous sweep was still running.",
	})

	for _, c := range []prometheus.Collector{demoted, skipped} {
		err := registry.Register(c)
		if err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	ret := &Monitor{
		store:   store,
		cache:   cache,
		clock:   clock,
		conf:    conf,
		demoted: demoted,
		skipped: skipped,
		logger:  logr.Discard(),
	}

	return ret, nil
}

func (m *Monitor) WithLogger(logger logr.Logger) *Monitor {
	m.logger = logger

	return m
}

// Run sweeps on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.conf.SweepInterval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	m.logger.V(1).Info("Liveness monitor started", "interval", m.conf.SweepInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if m.running.Load() {
				m.skipped.Inc()
				m.logger.V(1).Info("Previous sweep still running, skipping tick")

				continue
			}

			wg.Add(1)

			go func() {
				defer wg.Done()

				err := m.Sweep(ctx)
				if err != nil && !errors.Is(err, ErrSweepRunning) {
					m.logger.Error(err, "Sweep failed")
				}
			}()
		}
	}
}

// Sweep demotes every active entity whose last heartbeat is older than its timeout.
func (m *Monitor) Sweep(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrSweepRunning
	}
	defer m.running.Store(false)

	start := m.clock.Now()

	var errs []error

	for _, target := range []struct {
		entityType entity.EntityType
		timeout    time.Duration
	}{
		{entity.EntityTypeDriver, m.conf.DriverTimeout},
		{entity.EntityTypeCar, m.conf.CarTimeout},
	} {
		cutoff := start.Add(-target.timeout)

		err := m.sweep(ctx, target.entityType, cutoff)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *Monitor) sweep(ctx context.Context, entityType entity.EntityType, cutoff time.Time) error {
	ids, err := m.store.MarkInactive(ctx, entityType, cutoff)
	if err != nil {
		return fmt.Errorf("failed to mark %s inactive: %w", entityType, err)
	}

	for _, id := range ids {
		m.cache.Demote(entity.Key{Type: entityType, ID: id}, cutoff)
	}

	m.demoted.WithLabelValues(string(entityType)).Add(float64(len(ids)))

	if len(ids) > 0 {
		m.logger.V(1).Info("Entities marked inactive", "entity", entityType, "count", len(ids), "cutoff", cutoff)
	}

	return nil
}
