package repo

import (
	"time"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
)

type OrderBy string

const (
	OrderByID       OrderBy = "id"
	OrderByLastSeen OrderBy = "last_seen"
)

// EntityCriteria filters entities. Nil or empty fields are ignored.
type EntityCriteria struct {
	Type           *entity.EntityType
	IDs            []string
	Status         *entity.Status
	LastSeenBefore *time.Time

	Skip    int
	Take    int
	OrderBy OrderBy
}

func (c EntityCriteria) WithType(t entity.EntityType) EntityCriteria {
	c.Type = &t

	return c
}

func (c EntityCriteria) WithStatus(s entity.Status) EntityCriteria {
	c.Status = &s

	return c
}

func (c EntityCriteria) WithIDs(ids ...string) EntityCriteria {
	c.IDs = ids

	return c
}

func (c EntityCriteria) Page(skip, take int) EntityCriteria {
	c.Skip = skip
	c.Take = take

	return c
}

// MetricPatch carries one metric of one entity. Exactly one metric group is set.
type MetricPatch struct {
	EntityType entity.EntityType
	EntityID   string
	Kind       entity.Kind

	Location   *entity.LocationEntry
	Passengers *entity.PassengerEntry
	ECR        *entity.ECREntry
}

func (p MetricPatch) At() time.Time {
	switch {
	case p.Location != nil:
		return p.Location.Timestamp
	case p.Passengers != nil:
		return p.Passengers.Timestamp
	case p.ECR != nil:
		return p.ECR.Timestamp
	default:
		return time.Time{}
	}
}
