package events

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("event not found")

// ErrNotWritten is returned by a Repository when a write statement completed
// without reporting the expected insert, update or delete.
var ErrNotWritten = errors.New("statement reported no write")

// NotificationLimit is the maximum number of notifications returned by a listing.
const NotificationLimit = 10

type NotificationType string

const (
	NotificationAdd    NotificationType = "add"
	NotificationEdit   NotificationType = "edit"
	NotificationDelete NotificationType = "delete"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAdd, NotificationEdit, NotificationDelete:
		return true
	}
	return false
}

type Event struct {
	ID    int64
	Title string
	Date  string
}

type Notification struct {
	ID        int64
	Message   string
	Type      NotificationType
	CreatedAt time.Time
}

type EventCreateParams struct {
	Title string
	Date  string
}

type EventUpdateParams struct {
	ID    int64
	Title string
	Date  string
}

type NotificationCreateParams struct {
	Message string
	Type    NotificationType
}

// TxCommitter finishes a transaction opened by Repository.BeginTx.
// Rollback after Commit is a no-op.
type TxCommitter interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Repository interface {
	List(ctx context.Context) ([]Event, error)
	ListNotifications(ctx context.Context, limit int) ([]Notification, error)
	Create(ctx context.Context, params EventCreateParams) (*Event, error)
	// Update returns the number of rows changed. Zero is not an error.
	Update(ctx context.Context, params EventUpdateParams) (int64, error)
	// GetTitle returns ErrNotFound when no event has the given id.
	GetTitle(ctx context.Context, id int64) (string, error)
	// Delete returns the number of rows removed. Zero is not an error.
	Delete(ctx context.Context, id int64) (int64, error)
	CreateNotification(ctx context.Context, params NotificationCreateParams) (*Notification, error)
	BeginTx(ctx context.Context) (Repository, TxCommitter, error)
}
