package store

import (
	"context"
	"database/sql"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
)

const insertEventLogQuery = `
INSERT INTO event_logs (key, kind, entity_id, entity_type, car_id, driver_id, lat, lng, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (key) DO NOTHING`

const touchLastEventQuery = `
INSERT INTO entities (id, type, last_event_kind, last_event_at, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (type, id) DO UPDATE
SET last_event_kind = EXCLUDED.last_event_kind, last_event_at = EXCLUDED.last_event_at, updated_at = now()
WHERE entities.last_event_at IS NULL OR entities.last_event_at <= EXCLUDED.last_event_at`

func (r PostgresRepo) InsertEventLog(ctx context.Context, log entity.EventLog) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, insertEventLogQuery,
			log.Key,
			string(log.Kind),
			log.EntityID,
			string(log.EntityType),
			nullString(log.CarID),
			nullString(log.DriverID),
			nullFloat(log.Lat),
			nullFloat(log.Lng),
			log.Timestamp.UTC(),
		)
		if err != nil {
			return wrapError(err, "failed to insert event log %s", log.Key)
		}

		_, err = tx.ExecContext(ctx, touchLastEventQuery, log.EntityID, string(log.EntityType), string(log.Kind), log.Timestamp.UTC())
		if err != nil {
			return wrapError(err, "failed to update last event of %s %s", log.EntityType, log.EntityID)
		}

		return nil
	})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
