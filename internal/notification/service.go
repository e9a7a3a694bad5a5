package notification

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleet-telemetry/internal/common"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo"
)

const categoryInternalError = "notification_internal_error"

// InvariantError is raised, as a panic, when asked to notify an event of the wrong kind.
// It denotes a programming error, not a data error.
type InvariantError struct {
	Type entity.NotificationType
	Kind entity.Kind
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("cannot notify %s from a %s event", e.Type, e.Kind)
}

var expectedKind = map[entity.NotificationType]entity.Kind{
	entity.NotificationTypeAccident:   entity.KindAccident,
	entity.NotificationTypeDrowsiness: entity.KindDrowsinessAlarm,
}

type metadata struct {
	Kind     entity.Kind `json:"kind"`
	CarID    string      `json:"carId,omitempty"`
	DriverID string      `json:"driverId,omitempty"`
	Lat      *float64    `json:"lat,omitempty"`
	Lng      *float64    `json:"lng,omitempty"`
}

type Service struct {
	store   repo.Notification
	created *prometheus.CounterVec
	logger  logr.Logger
}

func NewService(store repo.Notification, registry prometheus.Registerer) (Service, error) {
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notification",
		Name:      "created_total",
		Help:      "Notifications created by type.",
	}, []string{"type"})

	err := registry.Register(created)
	if err != nil {
		return Service{}, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := Service{
		store:   store,
		created: created,
		logger:  logr.Discard(),
	}

	return ret, nil
}

func (s Service) WithLogger(logger logr.Logger) Service {
	s.logger = logger

	return s
}

// Notify creates the notification and one unread row per admin.
// Notifying the same event again returns the existing record.
func (s Service) Notify(ctx context.Context, notificationType entity.NotificationType, event entity.Event) (entity.NotificationRecord, error) {
	kind, ok := expectedKind[notificationType]
	if !ok || kind != event.Kind {
		panic(InvariantError{Type: notificationType, Kind: event.Kind})
	}

	meta, err := json.Marshal(metadata{
		Kind:     event.Kind,
		CarID:    event.CarID,
		DriverID: event.DriverID,
		Lat:      event.Lat,
		Lng:      event.Lng,
	})
	if err != nil {
		return entity.NotificationRecord{}, common.NewErrProcessingError(err, categoryInternalError, nil, "failed to marshal metadata")
	}

	notification := entity.Notification{
		Key:       computeKey(notificationType, event),
		Type:      notificationType,
		Message:   computeMessage(notificationType, event),
		Timestamp: event.Timestamp,
		Metadata:  meta,
	}

	ret, err := s.store.CreateNotification(ctx, notification)
	if err != nil {
		return entity.NotificationRecord{}, fmt.Errorf("failed to create %s notification: %w", notificationType, err)
	}

	s.created.WithLabelValues(string(notificationType)).Inc()
	s.logger.V(1).Info("Notification created", "id", ret.ID, "type", notificationType, "recipients", len(ret.Recipients))

	return ret, nil
}

func (s Service) MarkRead(ctx context.Context, notificationID int64, userID string) error {
	err := s.store.MarkNotificationRead(ctx, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d read for %s: %w", notificationID, userID, err)
	}

	return nil
}

func (s Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	ret, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications for %s: %w", userID, err)
	}

	return ret, nil
}

func computeMessage(notificationType entity.NotificationType, event entity.Event) string {
	switch notificationType {
	case entity.NotificationTypeDrowsiness:
		return fmt.Sprintf("Drowsiness alarm raised for driver %s", event.EntityID)
	default:
		return fmt.Sprintf("Accident reported by car %s", event.EntityID)
	}
}

func computeKey(notificationType entity.NotificationType, event entity.Event) string {
	key := fmt.Sprintf("%s%s%s", notificationType, event.EntityID, event.Timestamp.UTC().Format(time.RFC3339Nano))
	hash := md5.Sum([]byte(key))

	return hex.EncodeToString(hash[:])
}
