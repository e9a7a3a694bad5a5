package snapshot

import "github.com/fleetpulse/fleet-telemetry/internal/domain/entity"

// Model is the stored form of a snapshot. Id and type are carried by the hash key and field.
type Model struct {
	Location   *entity.LocationEntry  `json:"location,omitempty"`
	Passengers *entity.PassengerEntry `json:"passengers,omitempty"`
	Status     *entity.StatusEntry    `json:"status,omitempty"`
	ECR        *entity.ECREntry       `json:"ecr,omitempty"`
	Info       *entity.InfoEntry      `json:"info,omitempty"`
}

func mapToModel(s entity.Snapshot) Model {
	return Model{
		Location:   s.Location,
		Passengers: s.Passengers,
		Status:     s.Status,
		ECR:        s.ECR,
		Info:       s.Info,
	}
}

func mapToEntity(entityType entity.EntityType, id string, m Model) entity.Snapshot {
	return entity.Snapshot{
		EntityID:   id,
		EntityType: entityType,
		Location:   m.Location,
		Passengers: m.Passengers,
		Status:     m.Status,
		ECR:        m.ECR,
		Info:       m.Info,
	}
}
