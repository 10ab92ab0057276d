package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/calendify/server/internal/metrics"
	"github.com/calendify/server/internal/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrEventID          = attribute.Key("event.id")
	attrNotificationType = attribute.Key("notification.type")
	attrResultCount      = attribute.Key("result.count")
)

// Service owns the event lifecycle. Every mutation writes the event row and
// its notification in a single transaction.
type Service struct {
	repo      Repository
	logger    zerolog.Logger
	validator *validator.Validate
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		logger:    logger.With().Str("component", "events").Logger(),
		validator: newValidator(),
	}
}

func (s *Service) List(ctx context.Context) (_ []Event, err error) {
	ctx, span := telemetry.StartSpan(ctx, "events.List")
	defer func() { endSpan(span, err) }()

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	span.SetAttributes(attrResultCount.Int(len(items)))
	return items, nil
}

// ListNotifications returns the most recent notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context) (_ []Notification, err error) {
	ctx, span := telemetry.StartSpan(ctx, "events.ListNotifications")
	defer func() { endSpan(span, err) }()

	items, err := s.repo.ListNotifications(ctx, NotificationLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	span.SetAttributes(attrResultCount.Int(len(items)))
	return items, nil
}

func (s *Service) Create(ctx context.Context, input CreateInput) (_ *Event, err error) {
	ctx, span := telemetry.StartSpan(ctx, "events.Create", attrNotificationType.String(string(NotificationAdd)))
	defer func() { endSpan(span, err) }()

	if err := checkPresence(s.validator, input); err != nil {
		return nil, err
	}

	params := EventCreateParams{Title: string(*input.Title), Date: string(*input.Date)}

	var created *Event
	err = s.inTx(ctx, func(repo Repository) error {
		event, err := repo.Create(ctx, params)
		if err != nil {
			if errors.Is(err, ErrNotWritten) {
				return ErrCreateFailed
			}
			return fmt.Errorf("create event: %w", err)
		}
		if event == nil || event.ID == 0 {
			return ErrCreateFailed
		}
		if err := notify(ctx, repo, NotificationAdd, params.Title); err != nil {
			return err
		}
		created = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attrEventID.Int64(created.ID))
	s.recordMutation(NotificationAdd, created.ID)
	return created, nil
}

// Update rewrites title and date of the event with the given id. An id that
// matches no row is still reported as success and still produces a
// notification.
func (s *Service) Update(ctx context.Context, input UpdateInput) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "events.Update", attrNotificationType.String(string(NotificationEdit)))
	defer func() { endSpan(span, err) }()

	if err := checkPresence(s.validator, input); err != nil {
		return err
	}

	params := EventUpdateParams{ID: int64(*input.ID), Title: string(*input.Title), Date: string(*input.Date)}
	span.SetAttributes(attrEventID.Int64(params.ID))

	err = s.inTx(ctx, func(repo Repository) error {
		if _, err := repo.Update(ctx, params); err != nil {
			if errors.Is(err, ErrNotWritten) {
				return ErrUpdateFailed
			}
			return fmt.Errorf("update event: %w", err)
		}
		return notify(ctx, repo, NotificationEdit, params.Title)
	})
	if err != nil {
		return err
	}

	s.recordMutation(NotificationEdit, params.ID)
	return nil
}

// Delete removes the event with the given id. The title is read first so the
// notification can name it; an unknown id yields an empty title.
func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "events.Delete",
		attrNotificationType.String(string(NotificationDelete)),
		attrEventID.Int64(id),
	)
	defer func() { endSpan(span, err) }()

	err = s.inTx(ctx, func(repo Repository) error {
		title, err := repo.GetTitle(ctx, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("lookup event title: %w", err)
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			if errors.Is(err, ErrNotWritten) {
				return ErrDeleteFailed
			}
			return fmt.Errorf("delete event: %w", err)
		}
		return notify(ctx, repo, NotificationDelete, title)
	})
	if err != nil {
		return err
	}

	s.recordMutation(NotificationDelete, id)
	return nil
}

func (s *Service) inTx(ctx context.Context, fn func(Repository) error) error {
	txRepo, tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// endSpan closes a service span. Input errors are the caller's and leave the
// status unset; anything else marks the span failed.
func endSpan(span trace.Span, err error) {
	switch {
	case err == nil:
	case IsInputError(err):
		span.SetAttributes(attribute.String("error.type", "input"))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) recordMutation(kind NotificationType, id int64) {
	metrics.EventMutationsTotal.WithLabelValues(string(kind)).Inc()
	s.logger.Debug().Str("type", string(kind)).Int64("event_id", id).Msg("event mutation committed")
}

func notify(ctx context.Context, repo Repository, kind NotificationType, title string) error {
	_, err := repo.CreateNotification(ctx, NotificationCreateParams{
		Message: NotificationMessage(kind, title),
		Type:    kind,
	})
	if err != nil {
		return fmt.Errorf("record %s notification: %w", kind, err)
	}
	return nil
}

// NotificationMessage renders the log line stored for a mutation of the given kind.
func NotificationMessage(kind NotificationType, title string) string {
	switch kind {
	case NotificationAdd:
		return "New event added: " + title
	case NotificationEdit:
		return "Event updated: " + title
	case NotificationDelete:
		return "Event deleted: " + title
	}
	return title
}
