package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calendify/server/internal/domain/events"
	"github.com/calendify/server/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *EventRepository) List(ctx context.Context) (items []events.Event, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("select_events", start, err) }()

	rows, err := r.queryer().Query(ctx, `SELECT id, title, date FROM events`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items = make([]events.Event, 0)
	for rows.Next() {
		var event events.Event
		if err := rows.Scan(&event.ID, &event.Title, &event.Date); err != nil {
			return nil, fmt.Errorf("scan events: %w", err)
		}
		items = append(items, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.EventCreateParams) (_ *events.Event, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("insert_event", start, err) }()

	event := events.Event{Title: params.Title, Date: params.Date}
	err = r.queryer().QueryRow(ctx,
		`INSERT INTO events (title, date) VALUES ($1, $2) RETURNING id`,
		params.Title, params.Date,
	).Scan(&event.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotWritten
		}
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) Update(ctx context.Context, params events.EventUpdateParams) (_ int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("update_event", start, err) }()

	tag, err := r.queryer().Exec(ctx,
		`UPDATE events SET title = $1, date = $2 WHERE id = $3`,
		params.Title, params.Date, params.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update event: %w", err)
	}
	if !tag.Update() {
		return 0, events.ErrNotWritten
	}
	return tag.RowsAffected(), nil
}

func (r *EventRepository) GetTitle(ctx context.Context, id int64) (title string, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("select_event_title", start, err) }()

	err = r.queryer().QueryRow(ctx, `SELECT title FROM events WHERE id = $1`, id).Scan(&title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", events.ErrNotFound
		}
		return "", fmt.Errorf("get event title: %w", err)
	}
	return title, nil
}

func (r *EventRepository) Delete(ctx context.Context, id int64) (_ int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("delete_event", start, err) }()

	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete event: %w", err)
	}
	if !tag.Delete() {
		return 0, events.ErrNotWritten
	}
	return tag.RowsAffected(), nil
}

// BeginTx starts a new transaction and returns a transaction-scoped repository
func (r *EventRepository) BeginTx(ctx context.Context) (events.Repository, events.TxCommitter, error) {
	if r.tx != nil {
		return nil, nil, fmt.Errorf("repository already in transaction")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &EventRepository{pool: r.pool, tx: tx}, &txCommitter{tx: tx}, nil
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
