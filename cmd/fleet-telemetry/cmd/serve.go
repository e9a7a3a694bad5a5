package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetpulse/fleet-telemetry/internal/common"
	"github.com/fleetpulse/fleet-telemetry/internal/config"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo/snapshot"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo/store"
	"github.com/fleetpulse/fleet-telemetry/internal/factory"
	"github.com/fleetpulse/fleet-telemetry/internal/hub"
	"github.com/fleetpulse/fleet-telemetry/internal/ingest"
	"github.com/fleetpulse/fleet-telemetry/internal/liveness"
	"github.com/fleetpulse/fleet-telemetry/internal/log"
	"github.com/fleetpulse/fleet-telemetry/internal/notification"
	"github.com/fleetpulse/fleet-telemetry/internal/polling"
	"github.com/fleetpulse/fleet-telemetry/internal/processing"
	"github.com/fleetpulse/fleet-telemetry/internal/statecache"
	"github.com/fleetpulse/fleet-telemetry/internal/transport/ws"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

var conf *config.Config

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest telemetry, keep fleet state and push it to dashboards",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		conf, err = config.Parse(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to parse config %s: %w", cfgFile, err)
		}

		// Init logger
		err = log.Init(conf.Logs)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		logger := log.Logger()

		// Dump generic information
		logger.Info("Starting fleet telemetry",
			"version", version.Info(),
			"buildContext", version.BuildContext(),
		)
		logger.Info("Using config", "config", fmt.Sprintf("%+v", *conf))

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.Logger()

		// Set max procs based on cpu limits
		err := common.SetMaxProcs()
		if err != nil {
			return err
		}

		// Set max memory
		err = common.SetMemLimit()
		if err != nil {
			return err
		}

		// Listen to sigterm and interrupt signals
		ctx := common.SetupSignalHandler(context.Background())

		err = serve(ctx, *conf)
		if err != nil {
			logger.Error(err, "Serving failed")

			return err
		}

		logger.V(2).Info("Serving stopped")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, conf config.Config) (err error) {
	logger := log.Logger()
	clock := clockwork.NewRealClock()
	registry := factory.CreateRegistry()

	var closers []common.CloseFunc

	defer func() {
		err = errors.Join(err, common.CloseAll(conf.GracefulDuration, closers...))
	}()

	// Store
	db, closeStore, err := factory.CreateStore(ctx, conf.Store)
	if err != nil {
		return err
	}

	closers = append(closers, closeStore)

	repo := store.NewPostgresRepo(db)

	if conf.Store.Migrate {
		err = repo.EnsureSchema(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate store: %w", err)
		}
	}

	// State cache
	cache, err := statecache.New(repo, registry)
	if err != nil {
		return err
	}

	cache = cache.WithPageSize(conf.Store.PageSize).WithLogger(logger.WithName("statecache"))

	if conf.Valkey.URL != "" {
		client, closeValkey, err := factory.CreateValkeyClient(ctx, conf.Valkey)
		if err != nil {
			return err
		}

		closers = append(closers, closeValkey)

		cache = cache.WithSnapshots(snapshot.NewValkeyRepo(client, conf.Valkey.Expiration))
	}

	err = cache.Hydrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to hydrate state cache: %w", err)
	}

	// Saved before the valkey client is closed
	closers = append(closers, cache.Shutdown)

	// Error processing
	deadLetters, err := factory.CreateDeadLetterWriter(ctx, conf.DeadLetterQueue, logger.WithName("dlq"))
	if err != nil {
		return err
	}

	errorProcessing, err := factory.DecorateErrorProcessing(deadLetters, registry, clock, logger.WithName("error"))
	if err != nil {
		return err
	}

	// Ingest
	broadcaster, err := ingest.NewBroadcaster(registry, logger.WithName("broadcast"))
	if err != nil {
		return err
	}

	ingestProcessing, err := factory.DecorateIngestProcessing(ingest.NewPublisher(broadcaster), registry, clock)
	if err != nil {
		return err
	}

	consumer, err := factory.CreateKafkaConsumer(conf.Kafka)
	if err != nil {
		return err
	}

	handler := pipeline.NewJSONHandler[ingest.Message](ingestProcessing, errorProcessing).WithClock(clock)
	runner := pipeline.NewRunner(consumer, []string{conf.Kafka.Consumer.Topic}, handler).WithLogger(logger.WithName("kafka"))

	closers = append(closers, func(context.Context) error { return runner.Close() })

	ingestService := ingest.NewService(runner, broadcaster).WithLogger(logger.WithName("ingest"))

	// Sync engine
	notifier, err := notification.NewService(repo, registry)
	if err != nil {
		return err
	}

	sync, err := processing.NewSync(
		cache,
		repo,
		repo,
		notifier.WithLogger(logger.WithName("notification")),
		processing.NewThrottle(conf.Sync.ThrottleWindow, clock),
		registry,
	)
	if err != nil {
		return err
	}

	syncProcessing, err := factory.DecorateSyncProcessing(sync.WithLogger(logger.WithName("sync")), registry, clock, conf.Sync)
	if err != nil {
		return err
	}

	engine := processing.NewEngine(ingestService, syncProcessing, errorProcessing, conf.Sync.Workers, conf.Sync.BufferSize).
		WithLogger(logger.WithName("engine"))

	// Liveness
	monitor, err := liveness.NewMonitor(repo, cache, clock, liveness.Config{
		SweepInterval: conf.Liveness.SweepInterval,
		DriverTimeout: conf.Liveness.DriverTimeout,
		CarTimeout:    conf.Liveness.CarTimeout,
	}, registry)
	if err != nil {
		return err
	}

	monitor = monitor.WithLogger(logger.WithName("liveness"))

	// Subscriptions
	scheduler, err := polling.NewScheduler(cache, clock, registry)
	if err != nil {
		return err
	}

	subscriptions, err := hub.New(ingestService, scheduler.WithLogger(logger.WithName("polling")), clock, hub.Config{
		BufferSize:      conf.Hub.BufferSize,
		MinPollInterval: conf.Hub.MinPollInterval,
	}, registry)
	if err != nil {
		return err
	}

	subscriptions = subscriptions.WithLogger(logger.WithName("hub"))

	wsServer := factory.CreateWSServer(conf.WS, ws.NewHandler(subscriptions).WithLogger(logger.WithName("ws")))
	metricsServer := factory.CreatePrometheusServer(conf.Metrics, registry)

	// Start everything
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error { return engine.Run(groupCtx) })
	group.Go(func() error { return monitor.Run(groupCtx) })
	group.Go(func() error { return subscriptions.Run(groupCtx) })
	group.Go(func() error { return ingestService.Start(groupCtx) })
	group.Go(func() error { return listen(groupCtx, wsServer, conf) })
	group.Go(func() error { return listen(groupCtx, metricsServer, conf) })

	logger.Info("Fleet telemetry started", "wsPort", conf.WS.Port, "metricsPort", conf.Metrics.Port)

	return group.Wait()
}

// listen serves until ctx is cancelled, then shuts the server down gracefully.
func listen(ctx context.Context, server *http.Server, conf config.Config) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server %s stopped: %w", server.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.GracefulDuration)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shutdown server %s: %w", server.Addr, err)
	}

	return nil
}
