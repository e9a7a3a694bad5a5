package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fleetpulse/fleet-telemetry/internal/common"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

const entityColumns = `id, type, status, last_seen, lat, lng, location_at, passengers, passengers_at, ecr, response_time, ecr_at, info, updated_at`

const touchHeartbeatQuery = `
INSERT INTO entities (id, type, status, last_seen, updated_at)
VALUES ($1, $2, 'ACTIVE', $3, now())
ON CONFLICT (type, id) DO UPDATE
SET status = 'ACTIVE', last_seen = EXCLUDED.last_seen, updated_at = now()
WHERE entities.last_seen IS NULL OR entities.last_seen <= EXCLUDED.last_seen`

const upsertLocationQuery = `
INSERT INTO entities (id, type, lat, lng, location_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (type, id) DO UPDATE
SET lat = EXCLUDED.lat, lng = EXCLUDED.lng, location_at = EXCLUDED.location_at, updated_at = now()
WHERE entities.location_at IS NULL OR entities.location_at < EXCLUDED.location_at`

const upsertPassengersQuery = `
INSERT INTO entities (id, type, passengers, passengers_at, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (type, id) DO UPDATE
SET passengers = EXCLUDED.passengers, passengers_at = EXCLUDED.passengers_at, updated_at = now()
WHERE entities.passengers_at IS NULL OR entities.passengers_at < EXCLUDED.passengers_at`

const upsertECRQuery = `
INSERT INTO entities (id, type, ecr, response_time, ecr_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (type, id) DO UPDATE
SET ecr = EXCLUDED.ecr, response_time = EXCLUDED.response_time, ecr_at = EXCLUDED.ecr_at, updated_at = now()
WHERE entities.ecr_at IS NULL OR entities.ecr_at < EXCLUDED.ecr_at`

const markInactiveQuery = `
UPDATE entities
SET status = 'INACTIVE', updated_at = now()
WHERE type = $1 AND status = 'ACTIVE' AND last_seen <= $2
RETURNING id`

// Cars going silent are no longer carrying anyone.
const markCarsInactiveQuery = `
UPDATE entities
SET status = 'INACTIVE', passengers = 0, updated_at = now()
WHERE type = $1 AND status = 'ACTIVE' AND last_seen <= $2
RETURNING id`

func (r PostgresRepo) FindEntities(ctx context.Context, criteria repo.EntityCriteria) ([]entity.EntityState, error) {
	where, args := buildWhere(criteria)

	var query strings.Builder

	query.WriteString("SELECT " + entityColumns + " FROM entities" + where)

	switch criteria.OrderBy {
	case repo.OrderByLastSeen:
		query.WriteString(" ORDER BY last_seen DESC NULLS LAST, type, id")
	default:
		query.WriteString(" ORDER BY type, id")
	}

	if criteria.Take > 0 {
		args = append(args, criteria.Take)
		query.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	if criteria.Skip > 0 {
		args = append(args, criteria.Skip)
		query.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, wrapError(err, "failed to find entities")
	}
	defer rows.Close()

	var ret []entity.EntityState

	for rows.Next() {
		state, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}

		ret = append(ret, state)
	}

	err = rows.Err()
	if err != nil {
		return nil, wrapError(err, "failed to iterate entities")
	}

	return ret, nil
}

func (r PostgresRepo) CountEntities(ctx context.Context, criteria repo.EntityCriteria) (int, error) {
	where, args := buildWhere(criteria)

	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities"+where, args...).Scan(&count)
	if err != nil {
		return 0, wrapError(err, "failed to count entities")
	}

	return count, nil
}

func (r PostgresRepo) TouchHeartbeat(ctx context.Context, entityType entity.EntityType, id string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx, touchHeartbeatQuery, id, string(entityType), ts.UTC())
	if err != nil {
		return wrapError(err, "failed to touch heartbeat of %s %s", entityType, id)
	}

	return nil
}

func (r PostgresRepo) UpsertMetric(ctx context.Context, patch repo.MetricPatch) error {
	var (
		query string
		args  []any
	)

	switch {
	case patch.Location != nil:
		query = upsertLocationQuery
		args = []any{patch.EntityID, string(patch.EntityType), patch.Location.Lat, patch.Location.Lng, patch.Location.Timestamp.UTC()}
	case patch.Passengers != nil:
		query = upsertPassengersQuery
		args = []any{patch.EntityID, string(patch.EntityType), patch.Passengers.Count, patch.Passengers.Timestamp.UTC()}
	case patch.ECR != nil:
		query = upsertECRQuery
		args = []any{patch.EntityID, string(patch.EntityType), patch.ECR.ECR, nullFloat(patch.ECR.ResponseTime), patch.ECR.Timestamp.UTC()}
	default:
		return common.NewErrProcessingError(errEmptyPatch, pipeline.StoreErrorCategory, nil, "invalid patch for %s", patch.EntityID)
	}

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapError(err, "failed to upsert %s of %s %s", patch.Kind, patch.EntityType, patch.EntityID)
	}

	return nil
}

func (r PostgresRepo) MarkInactive(ctx context.Context, entityType entity.EntityType, cutoff time.Time) ([]string, error) {
	query := markInactiveQuery
	if entityType == entity.EntityTypeCar {
		query = markCarsInactiveQuery
	}

	rows, err := r.db.QueryContext(ctx, query, string(entityType), cutoff.UTC())
	if err != nil {
		return nil, wrapError(err, "failed to mark %s inactive", entityType)
	}
	defer rows.Close()

	var ret []string

	for rows.Next() {
		var id string

		err := rows.Scan(&id)
		if err != nil {
			return nil, wrapError(err, "failed to scan demoted id")
		}

		ret = append(ret, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, wrapError(err, "failed to iterate demoted ids")
	}

	return ret, nil
}

func buildWhere(criteria repo.EntityCriteria) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if criteria.Type != nil {
		args = append(args, string(*criteria.Type))
		clauses = append(clauses, fmt.Sprintf("type = $%d", len(args)))
	}

	if len(criteria.IDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("id IN (%s)", placeholders(len(args)+1, len(criteria.IDs))))
		for _, id := range criteria.IDs {
			args = append(args, id)
		}
	}

	if criteria.Status != nil {
		args = append(args, string(*criteria.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	if criteria.LastSeenBefore != nil {
		args = append(args, criteria.LastSeenBefore.UTC())
		clauses = append(clauses, fmt.Sprintf("last_seen <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(row scanner) (entity.EntityState, error) {
	var (
		ret          entity.EntityState
		entityType   string
		status       string
		lastSeen     sql.NullTime
		lat, lng     sql.NullFloat64
		locationAt   sql.NullTime
		passengers   sql.NullInt64
		passengersAt sql.NullTime
		ecr          sql.NullFloat64
		responseTime sql.NullFloat64
		ecrAt        sql.NullTime
		info         []byte
	)

	err := row.Scan(&ret.ID, &entityType, &status, &lastSeen, &lat, &lng, &locationAt,
		&passengers, &passengersAt, &ecr, &responseTime, &ecrAt, &info, &ret.UpdatedAt)
	if err != nil {
		return ret, wrapError(err, "failed to scan entity")
	}

	ret.Type = entity.EntityType(entityType)
	ret.Status = entity.Status(status)
	ret.LastSeen = lastSeen.Time
	ret.LocationAt = locationAt.Time
	ret.PassengersAt = passengersAt.Time
	ret.ECRAt = ecrAt.Time

	// Location is only meaningful as a pair
	if lat.Valid && lng.Valid {
		ret.Lat = &lat.Float64
		ret.Lng = &lng.Float64
	}

	if passengers.Valid {
		count := int(passengers.Int64)
		ret.Passengers = &count
	}

	if ecr.Valid {
		ret.ECR = &ecr.Float64
	}

	if responseTime.Valid {
		ret.ResponseTime = &responseTime.Float64
	}

	if len(info) > 0 {
		err = json.Unmarshal(info, &ret.Info)
		if err != nil {
			return ret, common.NewErrProcessingError(err, pipeline.StoreErrorCategory, nil, "invalid info of %s", ret.ID)
		}
	}

	return ret, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: *f, Valid: true}
}
