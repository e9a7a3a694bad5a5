package hub

import (
	"time"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
)

type SourceType string

const (
	SourceTypeLive SourceType = "live"
	SourceTypePoll SourceType = "poll"
)

// Predicate filters live events. An empty set matches anything.
type Predicate struct {
	Entities    []entity.Key        `json:"entities,omitempty"`
	EntityTypes []entity.EntityType `json:"entityTypes,omitempty"`
	Kinds       []entity.Kind       `json:"kinds,omitempty"`
}

// Info describes a running subscription.
type Info struct {
	ID        string        `json:"id"`
	Source    SourceType    `json:"source"`
	Predicate Predicate     `json:"predicate"`
	Interval  time.Duration `json:"interval,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

type matcher struct {
	keys  map[entity.Key]struct{}
	types map[entity.EntityType]struct{}
	kinds map[entity.Kind]struct{}
}

func newMatcher(p Predicate) matcher {
	ret := matcher{}

	if len(p.Entities) > 0 {
		ret.keys = make(map[entity.Key]struct{}, len(p.Entities))
		for _, key := range p.Entities {
			ret.keys[key] = struct{}{}
		}
	}

	if len(p.EntityTypes) > 0 {
		ret.types = make(map[entity.EntityType]struct{}, len(p.EntityTypes))
		for _, t := range p.EntityTypes {
			ret.types[t] = struct{}{}
		}
	}

	if len(p.Kinds) > 0 {
		ret.kinds = make(map[entity.Kind]struct{}, len(p.Kinds))
		for _, kind := range p.Kinds {
			ret.kinds[kind] = struct{}{}
		}
	}

	return ret
}

func (m matcher) match(event entity.Event) bool {
	if m.keys != nil {
		if _, ok := m.keys[event.Key()]; !ok {
			return false
		}
	}

	if m.types != nil {
		if _, ok := m.types[event.EntityType]; !ok {
			return false
		}
	}

	if m.kinds != nil {
		if _, ok := m.kinds[event.Kind]; !ok {
			return false
		}
	}

	return true
}
