package repo

import (
	"context"
	"time"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

//go:generate mockgen -source=interfaces.go -package=mock -destination=./mock/mock_repo.go

type ProcessingErrorWriter interface {
	WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error
}

type EntityReader interface {
	FindEntities(ctx context.Context, criteria EntityCriteria) ([]entity.EntityState, error)
	CountEntities(ctx context.Context, criteria EntityCriteria) (int, error)
}

type EntityWriter interface {
	// TouchHeartbeat marks the entity active, last seen at ts unless a later heartbeat is already stored.
	TouchHeartbeat(ctx context.Context, entityType entity.EntityType, id string, ts time.Time) error
	// UpsertMetric writes the metric unless a newer value is already stored.
	UpsertMetric(ctx context.Context, patch MetricPatch) error
	// MarkInactive demotes active entities last seen at or before cutoff and returns their ids.
	MarkInactive(ctx context.Context, entityType entity.EntityType, cutoff time.Time) ([]string, error)
}

type Entity interface {
	EntityReader
	EntityWriter
}

type EventLogWriter interface {
	// InsertEventLog is idempotent on the log key.
	InsertEventLog(ctx context.Context, log entity.EventLog) error
}

type Notification interface {
	// CreateNotification creates the record and one recipient per admin atomically.
	// It is idempotent on the notification key.
	CreateNotification(ctx context.Context, notification entity.Notification) (entity.NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, notificationID int64, userID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type SnapshotReader interface {
	LoadSnapshots(ctx context.Context) ([]entity.Snapshot, error)
}

type SnapshotWriter interface {
	SaveSnapshots(ctx context.Context, snapshots []entity.Snapshot) error
}

type Snapshot interface {
	SnapshotReader
	SnapshotWriter
}
