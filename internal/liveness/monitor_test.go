package liveness_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo/mock"
	"github.com/fleetpulse/fleet-telemetry/internal/liveness"
	"github.com/fleetpulse/fleet-telemetry/internal/statecache"
)

var (
	t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	conf = liveness.Config{
		SweepInterval: 60 * time.Second,
		DriverTimeout: 80 * time.Second,
		CarTimeout:    120 * time.Second,
	}
)

func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

func newCache(t *testing.T, ctrl *gomock.Controller) *statecache.Cache {
	reader := mock.NewMockEntityReader(ctrl)
	reader.EXPECT().FindEntities(gomock.Any(), gomock.Any()).Return(nil, nil)

	cache, err := statecache.New(reader, prometheus.NewPedanticRegistry())
	require.NoError(t, err)
	require.NoError(t, cache.Hydrate(context.Background()))

	return cache
}

func TestSweepDemotesSilentDriver(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockEntityWriter(ctrl)
	cache := newCache(t, ctrl)
	clock := clockwork.NewFakeClockAt(at(90))

	cache.Put(entity.DriverKey("driver-7"), entity.StatusEntry{Status: entity.StatusActive, LastSeen: at(0), Timestamp: at(0)})

	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeDriver, at(10)).Return([]string{"driver-7"}, nil)
	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeCar, at(-30)).Return(nil, nil)

	monitor, err := liveness.NewMonitor(store, cache, clock, conf, prometheus.NewPedanticRegistry())
	require.NoError(t, err)

	require.NoError(t, monitor.Sweep(context.Background()))

	snapshot, _ := cache.Get(entity.DriverKey("driver-7"))
	assert.Equal(t, entity.StatusInactive, snapshot.Status.Status)

	// Only a heartbeat brings it back
	accepted := cache.Put(entity.DriverKey("driver-7"), entity.StatusEntry{Status: entity.StatusActive, LastSeen: at(95), Timestamp: at(95)})
	require.True(t, accepted)

	snapshot, _ = cache.Get(entity.DriverKey("driver-7"))
	assert.Equal(t, entity.StatusActive, snapshot.Status.Status)
}

func TestSweepKeepsFreshEntities(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockEntityWriter(ctrl)
	cache := newCache(t, ctrl)
	clock := clockwork.NewFakeClockAt(at(90))

	// Heartbeat received while the store update was running
	cache.Put(entity.DriverKey("driver-8"), entity.StatusEntry{Status: entity.StatusActive, LastSeen: at(89), Timestamp: at(89)})

	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeDriver, at(10)).Return([]string{"driver-8"}, nil)
	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeCar, gomock.Any()).Return(nil, nil)

	monitor, err := liveness.NewMonitor(store, cache, clock, conf, prometheus.NewPedanticRegistry())
	require.NoError(t, err)

	require.NoError(t, monitor.Sweep(context.Background()))

	snapshot, _ := cache.Get(entity.DriverKey("driver-8"))
	assert.Equal(t, entity.StatusActive, snapshot.Status.Status)
}

func TestSweepZeroesPassengersOfSilentCars(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockEntityWriter(ctrl)
	cache := newCache(t, ctrl)
	clock := clockwork.NewFakeClockAt(at(200))

	cache.Put(entity.CarKey("car-1"), entity.StatusEntry{Status: entity.StatusActive, LastSeen: at(0), Timestamp: at(0)})
	cache.Put(entity.CarKey("car-1"), entity.PassengerEntry{Count: 4, Timestamp: at(0)})

	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeDriver, gomock.Any()).Return(nil, nil)
	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeCar, at(80)).Return([]string{"car-1"}, nil)

	monitor, err := liveness.NewMonitor(store, cache, clock, conf, prometheus.NewPedanticRegistry())
	require.NoError(t, err)

	require.NoError(t, monitor.Sweep(context.Background()))

	snapshot, _ := cache.Get(entity.CarKey("car-1"))
	assert.Equal(t, entity.StatusInactive, snapshot.Status.Status)
	assert.Equal(t, 0, snapshot.Passengers.Count)
}

func TestDriverSweepLeavesCarWithSameID(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockEntityWriter(ctrl)
	cache := newCache(t, ctrl)
	clock := clockwork.NewFakeClockAt(at(90))

	cache.Put(entity.DriverKey("7"), entity.StatusEntry{Status: entity.StatusActive, LastSeen: at(0), Timestamp: at(0)})
	cache.Put(entity.CarKey("7"), entity.StatusEntry{Status: entity.StatusActive, LastSeen: at(0), Timestamp: at(0)})
	cache.Put(entity.CarKey("7"), entity.PassengerEntry{Count: 3, Timestamp: at(0)})

	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeDriver, at(10)).Return([]string{"7"}, nil)
	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeCar, at(-30)).Return(nil, nil)

	monitor, err := liveness.NewMonitor(store, cache, clock, conf, prometheus.NewPedanticRegistry())
	require.NoError(t, err)

	require.NoError(t, monitor.Sweep(context.Background()))

	driver, _ := cache.Get(entity.DriverKey("7"))
	assert.Equal(t, entity.StatusInactive, driver.Status.Status)

	car, _ := cache.Get(entity.CarKey("7"))
	assert.Equal(t, entity.StatusActive, car.Status.Status)
	assert.Equal(t, 3, car.Passengers.Count)
}

func TestSweepContinuesAfterAFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockEntityWriter(ctrl)
	cache := newCache(t, ctrl)
	clock := clockwork.NewFakeClockAt(at(200))

	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeDriver, gomock.Any()).Return(nil, errors.New("db down"))
	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeCar, gomock.Any()).Return(nil, nil)

	monitor, err := liveness.NewMonitor(store, cache, clock, conf, prometheus.NewPedanticRegistry())
	require.NoError(t, err)

	assert.Error(t, monitor.Sweep(context.Background()))
}

func TestSweepsAreSerialized(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockEntityWriter(ctrl)
	cache := newCache(t, ctrl)
	clock := clockwork.NewFakeClockAt(at(200))

	entered := make(chan struct{})
	release := make(chan struct{})

	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeDriver, gomock.Any()).DoAndReturn(func(context.Context, entity.EntityType, time.Time) ([]string, error) {
		close(entered)
		<-release

		return nil, nil
	})
	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeCar, gomock.Any()).Return(nil, nil)

	monitor, err := liveness.NewMonitor(store, cache, clock, conf, prometheus.NewPedanticRegistry())
	require.NoError(t, err)

	done := make(chan error)

	go func() {
		done <- monitor.Sweep(context.Background())
	}()

	<-entered

	assert.ErrorIs(t, monitor.Sweep(context.Background()), liveness.ErrSweepRunning)

	close(release)
	require.NoError(t, <-done)
}

func TestRunSweepsOnTick(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockEntityWriter(ctrl)
	cache := newCache(t, ctrl)
	clock := clockwork.NewFakeClockAt(at(0))

	swept := make(chan struct{}, 1)

	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeDriver, at(60-80)).Return(nil, nil)
	store.EXPECT().MarkInactive(gomock.Any(), entity.EntityTypeCar, at(60-120)).DoAndReturn(func(context.Context, entity.EntityType, time.Time) ([]string, error) {
		swept <- struct{}{}

		return nil, nil
	})

	monitor, err := liveness.NewMonitor(store, cache, clock, conf, prometheus.NewPedanticRegistry())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)

	go func() {
		done <- monitor.Run(ctx)
	}()

	clock.BlockUntil(1)
	clock.Advance(60 * time.Second)

	select {
	case <-swept:
	case <-time.After(5 * time.Second):
		t.Fatal("no sweep after one interval")
	}

	cancel()
	require.NoError(t, <-done)
}
