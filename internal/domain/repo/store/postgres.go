package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo"
)

//go:embed schema.sql
var schema string

const adminRole = "ADMIN"

var (
	_ repo.Entity         = PostgresRepo{}
	_ repo.EventLogWriter = PostgresRepo{}
	_ repo.Notification   = PostgresRepo{}
)

// PostgresRepo implements the store collaborator on top of database/sql.
// Queries only use $n placeholders so both the pgx and the pq drivers can serve it.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) PostgresRepo {
	return PostgresRepo{db: db}
}

// EnsureSchema creates the tables when missing.
func (r PostgresRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return wrapError(err, "failed to apply schema")
	}

	return nil
}

// inTx runs fn in a transaction, committed only when fn succeeds.
func (r PostgresRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError(err, "failed to begin transaction")
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = fn(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return wrapError(err, "failed to commit transaction")
	}

	return nil
}

func placeholders(start, count int) string {
	ret := make([]byte, 0, count*4)

	for i := 0; i < count; i++ {
		if i > 0 {
			ret = append(ret, ", "...)
		}

		ret = append(ret, fmt.Sprintf("$%d", start+i)...)
	}

	return string(ret)
}
