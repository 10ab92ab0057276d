package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calendify/server/internal/domain/events"
	"github.com/calendify/server/internal/metrics"
	"github.com/jackc/pgx/v5"
)

// ListNotifications returns up to limit notifications ordered newest first.
// Rows sharing a created_at are ordered by id so the listing is strict.
func (r *EventRepository) ListNotifications(ctx context.Context, limit int) (items []events.Notification, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("select_notifications", start, err) }()

	if limit <= 0 {
		limit = events.NotificationLimit
	}

	rows, err := r.queryer().Query(ctx, `
SELECT id, message, type, created_at
  FROM notifications
 ORDER BY created_at DESC, id DESC
 LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items = make([]events.Notification, 0, limit)
	for rows.Next() {
		var (
			n    events.Notification
			kind string
		)
		if err := rows.Scan(&n.ID, &n.Message, &kind, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notifications: %w", err)
		}
		n.Type = events.NotificationType(kind)
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

func (r *EventRepository) CreateNotification(ctx context.Context, params events.NotificationCreateParams) (_ *events.Notification, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("insert_notification", start, err) }()

	if !params.Type.Valid() {
		return nil, fmt.Errorf("insert notification: unknown type %q", params.Type)
	}

	n := events.Notification{Message: params.Message, Type: params.Type}
	err = r.queryer().QueryRow(ctx,
		`INSERT INTO notifications (message, type) VALUES ($1, $2) RETURNING id, created_at`,
		params.Message, string(params.Type),
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotWritten
		}
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

// PruneNotifications deletes notifications created before cutoff. The newest
// keep rows survive regardless of age so the listing never empties out.
func (r *EventRepository) PruneNotifications(ctx context.Context, cutoff time.Time, keep int) (_ int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("prune_notifications", start, err) }()

	if keep < 0 {
		keep = 0
	}

	tag, err := r.queryer().Exec(ctx, `
DELETE FROM notifications
 WHERE created_at < $1
   AND id NOT IN (
       SELECT id FROM notifications
        ORDER BY created_at DESC, id DESC
        LIMIT $2
   )
`, cutoff, keep)
	if err != nil {
		return 0, fmt.Errorf("prune notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
