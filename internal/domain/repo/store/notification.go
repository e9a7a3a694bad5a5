package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo"
)

const insertNotificationQuery = `
INSERT INTO notifications (key, type, message, occurred_at, metadata)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (key) DO NOTHING
RETURNING id`

const selectNotificationIDQuery = `SELECT id FROM notifications WHERE key = $1`

const insertRecipientsQuery = `
INSERT INTO notification_recipients (notification_id, user_id)
SELECT $1, id FROM users WHERE role = $2
ON CONFLICT (notification_id, user_id) DO NOTHING`

const selectRecipientsQuery = `
SELECT user_id, read FROM notification_recipients
WHERE notification_id = $1
ORDER BY user_id`

const markReadQuery = `
UPDATE notification_recipients
SET read = TRUE, read_at = now()
WHERE notification_id = $1 AND user_id = $2`

const countUnreadQuery = `SELECT COUNT(*) FROM notification_recipients WHERE user_id = $1 AND NOT read`

func (r PostgresRepo) CreateNotification(ctx context.Context, notification entity.Notification) (entity.NotificationRecord, error) {
	ret := entity.NotificationRecord{
		Type:      notification.Type,
		Message:   notification.Message,
		Timestamp: notification.Timestamp,
		Metadata:  notification.Metadata,
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		id, err := insertNotification(ctx, tx, notification)
		if err != nil {
			return err
		}

		ret.ID = id

		_, err = tx.ExecContext(ctx, insertRecipientsQuery, id, adminRole)
		if err != nil {
			return wrapError(err, "failed to create recipients of notification %d", id)
		}

		ret.Recipients, err = selectRecipients(ctx, tx, id)

		return err
	})
	if err != nil {
		return entity.NotificationRecord{}, err
	}

	return ret, nil
}

// insertNotification returns the id of the notification with that key, created if missing.
func insertNotification(ctx context.Context, tx *sql.Tx, notification entity.Notification) (int64, error) {
	var (
		id       int64
		metadata any
	)

	if len(notification.Metadata) > 0 {
		metadata = string(notification.Metadata)
	}

	err := tx.QueryRowContext(ctx, insertNotificationQuery,
		notification.Key,
		string(notification.Type),
		notification.Message,
		notification.Timestamp.UTC(),
		metadata,
	).Scan(&id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, wrapError(err, "failed to insert notification %s", notification.Key)
	}

	// Already created by a previous attempt
	err = tx.QueryRowContext(ctx, selectNotificationIDQuery, notification.Key).Scan(&id)
	if err != nil {
		return 0, wrapError(err, "failed to get notification %s", notification.Key)
	}

	return id, nil
}

func selectRecipients(ctx context.Context, tx *sql.Tx, id int64) ([]entity.Recipient, error) {
	rows, err := tx.QueryContext(ctx, selectRecipientsQuery, id)
	if err != nil {
		return nil, wrapError(err, "failed to get recipients of notification %d", id)
	}
	defer rows.Close()

	var ret []entity.Recipient

	for rows.Next() {
		recipient := entity.Recipient{}

		err := rows.Scan(&recipient.UserID, &recipient.Read)
		if err != nil {
			return nil, wrapError(err, "failed to scan recipient")
		}

		ret = append(ret, recipient)
	}

	err = rows.Err()
	if err != nil {
		return nil, wrapError(err, "failed to iterate recipients")
	}

	return ret, nil
}

func (r PostgresRepo) MarkNotificationRead(ctx context.Context, notificationID int64, userID string) error {
	res, err := r.db.ExecContext(ctx, markReadQuery, notificationID, userID)
	if err != nil {
		return wrapError(err, "failed to mark notification %d read", notificationID)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return wrapError(err, "failed to get affected rows")
	}

	if affected == 0 {
		return repo.ErrNotFound
	}

	return nil
}

func (r PostgresRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, countUnreadQuery, userID).Scan(&count)
	if err != nil {
		return 0, wrapError(err, "failed to count unread notifications of %s", userID)
	}

	return count, nil
}
