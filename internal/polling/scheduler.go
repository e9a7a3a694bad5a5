// Package polling periodically reads the state of one entity for a consumer.
package polling

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
)

type Loader interface {
	Load(ctx context.Context, key entity.Key) (entity.Snapshot, bool, error)
}

type Result struct {
	Snapshot entity.Snapshot
	Found    bool
	Err      error
}

type Scheduler struct {
	loader  Loader
	clock   clockwork.Clock
	skipped prometheus.Counter
	logger  logr.Logger
}

func NewScheduler(loader Loader, clock clockwork.Clock, registry prometheus.Registerer) (*Scheduler, error) {
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polling",
		Name:      "skipped_ticks_total",
		Help:      "Ticks skipped because the previous read was not consumed yet.",
	})

	err := registry.Register(skipped)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := &Scheduler{
		loader:  loader,
		clock:   clock,
		skipped: skipped,
		logger:  logr.Discard(),
	}

	return ret, nil
}

func (s *Scheduler) WithLogger(logger logr.Logger) *Scheduler {
	s.logger = logger

	return s
}

// Poll reads key right away, then every interval until stopped or ctx is cancelled.
// A tick is skipped while the previous read has not been handed to the consumer.
func (s *Scheduler) Poll(ctx context.Context, key entity.Key, every time.Duration) *Poll {
	ctx, cancel := context.WithCancel(ctx)

	p := &Poll{
		scheduler: s,
		key:       key,
		ch:        make(chan Result),
		reset:     make(chan time.Duration),
		ticker:    s.clock.NewTicker(every),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go p.run(ctx)

	return p
}

type Poll struct {
	scheduler *Scheduler
	key       entity.Key

	ch     chan Result
	reset  chan time.Duration
	ticker clockwork.Ticker

	inFlight atomic.Bool
	reads    sync.WaitGroup

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// C is closed once the poll is stopped.
func (p *Poll) C() <-chan Result {
	return p.ch
}

// Reset changes the interval. It has no effect on a stopped poll.
func (p *Poll) Reset(every time.Duration) {
	select {
	case p.reset <- every:
	case <-p.done:
	}
}

// Stop is idempotent. No result is delivered once it returns.
func (p *Poll) Stop() {
	p.once.Do(func() {
		p.cancel()
	})

	<-p.done
}

func (p *Poll) run(ctx context.Context) {
	defer close(p.done)
	defer close(p.ch)
	defer p.reads.Wait()
	defer p.ticker.Stop()

	p.read(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case every := <-p.reset:
			p.ticker.Reset(every)
		case <-p.ticker.Chan():
			p.read(ctx)
		}
	}
}

func (p *Poll) read(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.scheduler.skipped.Inc()

		return
	}

	p.reads.Add(1)

	go func() {
		defer p.reads.Done()
		defer p.inFlight.Store(false)

		snapshot, found, err := p.scheduler.loader.Load(ctx, p.key)

		// Stopped while reading: the result is stale
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			p.scheduler.logger.V(1).Info("Poll read failed", "entity", p.key.String(), "error", err.Error())
		}

		select {
		case p.ch <- Result{Snapshot: snapshot, Found: found, Err: err}:
		case <-ctx.Done():
		}
	}()
}
