package factory

import (
	"context"
	"database/sql"
	"fmt"

	// database/sql drivers, selected by store.driver
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/fleetpulse/fleet-telemetry/internal/common"
	"github.com/fleetpulse/fleet-telemetry/internal/config"
)

func CreateStore(ctx context.Context, conf config.Store) (*sql.DB, common.CloseFunc, error) {
	ret, err := sql.Open(string(conf.Driver), string(conf.DSN))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", conf.Driver, err)
	}

	ret.SetMaxOpenConns(conf.MaxOpenConns)
	ret.SetMaxIdleConns(conf.MaxIdleConns)

	err = ret.PingContext(ctx)
	if err != nil {
		_ = ret.Close()

		return nil, nil, fmt.Errorf("failed to ping store: %w", err)
	}

	shutdown := func(context.Context) error {
		return ret.Close()
	}

	return ret, shutdown, nil
}
