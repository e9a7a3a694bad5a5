package ingest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fleetpulse/fleet-telemetry/internal/common"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

var (
	ErrUnknownType   = errors.New("unknown type")
	ErrUnknownKind   = errors.New("unknown kind")
	ErrMissingID     = errors.New("missing entity id")
	ErrMissingField  = errors.New("missing field")
	ErrInvalidField  = errors.New("invalid field")
	ErrKindTypeClash = errors.New("kind does not belong to type")
)

var kindsByType = map[entity.EventType][]entity.Kind{
	entity.EventTypeHeartbeat: {entity.KindCarHeartbeat, entity.KindDriverHeartbeat},
	entity.EventTypeMetric:    {entity.KindLocation, entity.KindPassengers, entity.KindDriverECR},
	entity.EventTypeEvent:     {entity.KindAccident, entity.KindDrowsinessAlarm},
}

// Parse normalizes a wire message. receivedAt is used when the message carries no time.
// Every returned error is a pipeline.ErrProcessingError in the parse category.
func Parse(msg Message, receivedAt time.Time) (entity.Event, error) {
	event, err := parse(msg, receivedAt)
	if err != nil {
		return entity.Event{}, common.NewErrProcessingError(err, pipeline.ParseErrorCategory, nil, "failed to parse %s/%s message", msg.Type, msg.Kind)
	}

	return event, nil
}

func parse(msg Message, receivedAt time.Time) (entity.Event, error) {
	eventType := entity.EventType(msg.Type)

	kinds, ok := kindsByType[eventType]
	if !ok {
		return entity.Event{}, fmt.Errorf("%w %q", ErrUnknownType, msg.Type)
	}

	kind := entity.Kind(msg.Kind)
	if !isKnownKind(kind) {
		return entity.Event{}, fmt.Errorf("%w %q", ErrUnknownKind, msg.Kind)
	}

	if !contains(kinds, kind) {
		return entity.Event{}, fmt.Errorf("%w: %q is not a %q", ErrKindTypeClash, msg.Kind, msg.Type)
	}

	event := entity.Event{
		Type:         eventType,
		Kind:         kind,
		EntityType:   kind.EntityType(),
		CarID:        string(msg.CarID),
		DriverID:     string(msg.DriverID),
		DeviceStatus: msg.Status,
		Timestamp:    receivedAt.UTC(),
	}

	switch event.EntityType {
	case entity.EntityTypeDriver:
		event.EntityID = event.DriverID
	default:
		event.EntityID = event.CarID
	}

	if event.EntityID == "" {
		return entity.Event{}, fmt.Errorf("%w: %s_id", ErrMissingID, event.EntityType)
	}

	if msg.Time.IsSet() {
		ts, err := msg.Time.Parse()
		if err != nil {
			return entity.Event{}, fmt.Errorf("%w: %w", ErrInvalidField, err)
		}

		event.Timestamp = ts
	}

	var err error

	event.Lat, err = optionalFloat("lat", msg.Lat)
	if err != nil {
		return entity.Event{}, err
	}

	event.Lng, err = optionalFloat("lng", msg.Lng)
	if err != nil {
		return entity.Event{}, err
	}

	event.ECR, err = optionalFloat("ecr", msg.ECR)
	if err != nil {
		return entity.Event{}, err
	}

	event.ResponseTime, err = optionalFloat("response_time", msg.ResponseTime)
	if err != nil {
		return entity.Event{}, err
	}

	event.Passengers, err = optionalCount("passenger", msg.Passenger)
	if err != nil {
		return entity.Event{}, err
	}

	err = checkRequired(event)
	if err != nil {
		return entity.Event{}, err
	}

	return event, nil
}

func checkRequired(event entity.Event) error {
	switch event.Kind {
	case entity.KindLocation:
		if event.Lat == nil || event.Lng == nil {
			return fmt.Errorf("%w: lat and lng", ErrMissingField)
		}

		if math.Abs(*event.Lat) > 90 || math.Abs(*event.Lng) > 180 {
			return fmt.Errorf("%w: coordinates out of range", ErrInvalidField)
		}
	case entity.KindPassengers:
		if event.Passengers == nil {
			return fmt.Errorf("%w: passenger", ErrMissingField)
		}
	case entity.KindDriverECR:
		if event.ECR == nil {
			return fmt.Errorf("%w: ecr", ErrMissingField)
		}
	}

	return nil
}

func optionalFloat(name string, n Number) (*float64, error) {
	if !n.IsSet() {
		return nil, nil
	}

	v, err := n.Float()
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidField, name, err)
	}

	return &v, nil
}

func optionalCount(name string, n Number) (*int, error) {
	v, err := optionalFloat(name, n)
	if err != nil || v == nil {
		return nil, err
	}

	if *v < 0 || *v != math.Trunc(*v) || *v > math.MaxInt32 {
		return nil, fmt.Errorf("%w %s: expected a non negative integer, got %v", ErrInvalidField, name, *v)
	}

	ret := int(*v)

	return &ret, nil
}

func isKnownKind(kind entity.Kind) bool {
	for _, kinds := range kindsByType {
		if contains(kinds, kind) {
			return true
		}
	}

	return false
}

func contains(kinds []entity.Kind, kind entity.Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}

	return false
}
