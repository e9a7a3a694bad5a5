package entity

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventTypeHeartbeat EventType = "heartbeat"
	EventTypeMetric    EventType = "metric"
	EventTypeEvent     EventType = "event"
)

type Kind string

const (
	KindCarHeartbeat    Kind = "car_heartbeat"
	KindDriverHeartbeat Kind = "driver_heartbeat"
	KindLocation        Kind = "location"
	KindPassengers      Kind = "passengers"
	KindDriverECR       Kind = "driver_ecr"
	KindAccident        Kind = "accident"
	KindDrowsinessAlarm Kind = "drowsiness_alarm"
)

// IsHeartbeat reports kinds that only prove the device is alive.
func (k Kind) IsHeartbeat() bool {
	return k == KindCarHeartbeat || k == KindDriverHeartbeat
}

// IsThrottled reports continuous metrics, persisted at most once per throttle window.
func (k Kind) IsThrottled() bool {
	return k == KindLocation || k == KindPassengers || k == KindDriverECR
}

// IsDiscrete reports one-off occurrences, always persisted and notified.
func (k Kind) IsDiscrete() bool {
	return k == KindAccident || k == KindDrowsinessAlarm
}

// EntityType returns the type of entity identified by a message of this kind.
func (k Kind) EntityType() EntityType {
	switch k {
	case KindDriverHeartbeat, KindDriverECR, KindDrowsinessAlarm:
		return EntityTypeDriver
	default:
		return EntityTypeCar
	}
}

type EntityType string

const (
	EntityTypeCar    EntityType = "car"
	EntityTypeDriver EntityType = "driver"
)

// Key identifies an entity. Ids are only unique within an entity type.
type Key struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

func CarKey(id string) Key    { return Key{Type: EntityTypeCar, ID: id} }
func DriverKey(id string) Key { return Key{Type: EntityTypeDriver, ID: id} }

func (k Key) String() string {
	return string(k.Type) + "/" + k.ID
}

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Event is a normalized telemetry message. It is never mutated after creation.
type Event struct {
	Type         EventType  `json:"type"`
	Kind         Kind       `json:"kind"`
	EntityID     string     `json:"entityId"`
	EntityType   EntityType `json:"entityType"`
	CarID        string     `json:"carId,omitempty"`
	DriverID     string     `json:"driverId,omitempty"`
	Lat          *float64   `json:"lat,omitempty"`
	Lng          *float64   `json:"lng,omitempty"`
	Passengers   *int       `json:"passengers,omitempty"`
	ECR          *float64   `json:"ecr,omitempty"`
	ResponseTime *float64   `json:"responseTime,omitempty"`
	DeviceStatus string     `json:"deviceStatus,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

func (e Event) Key() Key {
	return Key{Type: e.EntityType, ID: e.EntityID}
}

// EventLog is the persisted trace of a discrete event.
type EventLog struct {
	Key        string
	Kind       Kind
	EntityID   string
	EntityType EntityType
	CarID      string
	DriverID   string
	Lat        *float64
	Lng        *float64
	Timestamp  time.Time
}

// EntityState is the store representation of an entity current state.
type EntityState struct {
	ID           string
	Type         EntityType
	Status       Status
	LastSeen     time.Time
	Lat          *float64
	Lng          *float64
	LocationAt   time.Time
	Passengers   *int
	PassengersAt time.Time
	ECR          *float64
	ResponseTime *float64
	ECRAt        time.Time
	Info         map[string]string
	UpdatedAt    time.Time
}

type NotificationType string

const (
	NotificationTypeAccident   NotificationType = "ACCIDENT"
	NotificationTypeDrowsiness NotificationType = "DROWSINESS"
)

// Notification is a notification to create, recipients are resolved by the store.
type Notification struct {
	Key       string
	Type      NotificationType
	Message   string
	Timestamp time.Time
	Metadata  json.RawMessage
}

type NotificationRecord struct {
	ID         int64
	Type       NotificationType
	Message    string
	Timestamp  time.Time
	Metadata   json.RawMessage
	Recipients []Recipient
}

type Recipient struct {
	UserID string
	Read   bool
}
