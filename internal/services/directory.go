package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/logging"
	"github.com/thereayou/messagely/internal/models"
)

// MessageDirectory answers who sent what to whom, and records new messages
// and read receipts.
type MessageDirectory struct {
	store    CredentialStore
	notifier Notifier
	now      func() time.Time
	log      logging.Logger
}

type DirectoryOption func(*MessageDirectory)

func WithNotifier(n Notifier) DirectoryOption {
	return func(d *MessageDirectory) { d.notifier = n }
}

func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *MessageDirectory) { d.now = now }
}

func WithDirectoryLogger(log logging.Logger) DirectoryOption {
	return func(d *MessageDirectory) { d.log = log }
}

func NewMessageDirectory(store CredentialStore, opts ...DirectoryOption) *MessageDirectory {
	d := &MessageDirectory{store: store, now: defaultClock, log: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("module", "messages")
	return d
}

// MessagesFrom lists what username sent, each joined with the recipient's
// profile. A user with no messages gets an empty slice; an unknown user gets
// common.ErrNotFound.
func (d *MessageDirectory) MessagesFrom(ctx context.Context, username string) ([]models.SentMessage, error) {
	if _, err := d.store.FindUserByUsername(ctx, username); err != nil {
		return nil, err
	}
	rows, err := d.store.FindMessagesBySender(ctx, username)
	if err != nil {
		return nil, err
	}

	out := make([]models.SentMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ToSentMessage(r))
	}
	return out, nil
}

// MessagesTo lists what username received, each joined with the sender's
// profile.
func (d *MessageDirectory) MessagesTo(ctx context.Context, username string) ([]models.ReceivedMessage, error) {
	if _, err := d.store.FindUserByUsername(ctx, username); err != nil {
		return nil, err
	}
	rows, err := d.store.FindMessagesByRecipient(ctx, username)
	if err != nil {
		return nil, err
	}

	out := make([]models.ReceivedMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ToReceivedMessage(r))
	}
	return out, nil
}

// Send stores a message from one user to another and notifies the
// recipient. Messaging yourself is rejected.
func (d *MessageDirectory) Send(ctx context.Context, from, to, body string) (*models.MessageDetail, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: message body is empty", common.ErrInvalidInput)
	}
	if to == "" {
		return nil, fmt.Errorf("%w: recipient is required", common.ErrInvalidInput)
	}
	if from == to {
		return nil, fmt.Errorf("%w: cannot send a message to yourself", common.ErrInvalidInput)
	}
	if _, err := d.store.FindUserByUsername(ctx, to); err != nil {
		return nil, err
	}

	msg := &models.Message{
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
		SentAt:       d.now(),
	}
	if err := d.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	row, err := d.store.FindMessageByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	d.log.Debug(ctx, "message sent", "id", msg.ID, "from", from, "to", to)

	if d.notifier != nil {
		d.notifier.NotifyMessage(to, models.ToReceivedMessage(*row))
	}

	detail := models.ToMessageDetail(*row)
	return &detail, nil
}

// Get returns one message with both parties' profiles.
func (d *MessageDirectory) Get(ctx context.Context, id int64) (*models.MessageDetail, error) {
	row, err := d.store.FindMessageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := models.ToMessageDetail(*row)
	return &detail, nil
}

// MarkRead records the first read of a message. Later calls return the
// original timestamp. The sender is notified the first time only.
func (d *MessageDirectory) MarkRead(ctx context.Context, id int64) (*models.ReadReceipt, error) {
	row, err := d.store.FindMessageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.ReadAt != nil {
		return &models.ReadReceipt{ID: id, ReadAt: *row.ReadAt}, nil
	}

	at := d.now()
	if at.Before(row.SentAt) {
		at = row.SentAt
	}

	readAt, err := d.store.MarkMessageRead(ctx, id, at)
	if err != nil {
		return nil, err
	}

	receipt := &models.ReadReceipt{ID: id, ReadAt: readAt}
	if d.notifier != nil && readAt.Equal(at) {
		d.notifier.NotifyRead(row.FromUsername, *receipt)
	}
	return receipt, nil
}
