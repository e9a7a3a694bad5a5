package processing

import (
	"context"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/pkg/broadcast"
)

//go:generate mockgen -source=interfaces.go -package=mock -destination=./mock/mock_processing.go

// Source is the normalized event stream.
type Source interface {
	OnEvent(buffer int) *broadcast.Subscription[entity.Event]
}

type Cache interface {
	Get(key entity.Key) (entity.Snapshot, bool)
	Put(key entity.Key, entry entity.CacheEntry) bool
}

type Notifier interface {
	Notify(ctx context.Context, notificationType entity.NotificationType, event entity.Event) (entity.NotificationRecord, error)
}
