package hub

import (
	"context"
	"time"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/polling"
	"github.com/fleetpulse/fleet-telemetry/pkg/broadcast"
)

//go:generate mockgen -source=interfaces.go -package=mock -destination=./mock/mock_hub.go

// Connection is an already identified client. Push must be safe for concurrent use.
type Connection interface {
	ID() string
	Push(ctx context.Context, name string, payload any) error
}

type Source interface {
	OnEvent(buffer int) *broadcast.Subscription[entity.Event]
}

type Poller interface {
	Poll(ctx context.Context, key entity.Key, every time.Duration) *polling.Poll
}
