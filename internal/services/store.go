package services

import (
	"context"
	"time"

	"github.com/thereayou/messagely/internal/models"
)

// UserStore is the user half of the credential store.
type UserStore interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error
	ListUsersOrdered(ctx context.Context) ([]models.UserSummary, error)
}

// MessageStore is the message half of the credential store. Row queries
// come back joined with both parties' profiles in ascending id order.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	FindMessagesBySender(ctx context.Context, username string) ([]models.MessageRow, error)
	FindMessagesByRecipient(ctx context.Context, username string) ([]models.MessageRow, error)
	FindMessageByID(ctx context.Context, id int64) (*models.MessageRow, error)
	MarkMessageRead(ctx context.Context, id int64, at time.Time) (time.Time, error)
}

// CredentialStore is implemented by database.Database and database.MemoryStore.
type CredentialStore interface {
	UserStore
	MessageStore
}

// Hasher turns passwords into digests and checks them.
type Hasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, digest string) bool
	Equalize(ctx context.Context, plain string)
}

// TokenService mints and checks session tokens.
type TokenService interface {
	Generate(principal string) (string, error)
	Verify(token string) (string, error)
}

// UserList serves the ordered user directory, possibly from a cache.
type UserList interface {
	ListUsersOrdered(ctx context.Context) ([]models.UserSummary, error)
	Invalidate(ctx context.Context)
}

// Notifier pushes live events to connected users. Delivery is best effort.
type Notifier interface {
	NotifyMessage(username string, msg models.ReceivedMessage)
	NotifyRead(username string, receipt models.ReadReceipt)
}

func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

type storeUserList struct {
	store UserStore
}

func (l storeUserList) ListUsersOrdered(ctx context.Context) ([]models.UserSummary, error) {
	return l.store.ListUsersOrdered(ctx)
}

func (storeUserList) Invalidate(context.Context) {}
