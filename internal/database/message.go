package database

import (
	"context"
	"time"

	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/models"
)

const messageRowQuery = `
SELECT m.id,
       m.from_username,
       f.first_name AS from_first_name,
       f.last_name  AS from_last_name,
       f.phone      AS from_phone,
       m.to_username,
       t.first_name AS to_first_name,
       t.last_name  AS to_last_name,
       t.phone      AS to_phone,
       m.body,
       m.sent_at,
       m.read_at
FROM messages AS m
JOIN users AS f ON f.username = m.from_username
JOIN users AS t ON t.username = m.to_username
`

// InsertMessage stores msg and fills its ID. An unknown party yields
// common.ErrNotFound.
func (d *Database) InsertMessage(ctx context.Context, msg *models.Message) error {
	return translateError(d.db.WithContext(ctx).Create(msg).Error)
}

// FindMessagesBySender returns the joined rows of every message username sent,
// oldest first.
func (d *Database) FindMessagesBySender(ctx context.Context, username string) ([]models.MessageRow, error) {
	return d.findMessageRows(ctx, "WHERE m.from_username = ? ORDER BY m.id", username)
}

// FindMessagesByRecipient returns the joined rows of every message username
// received, oldest first.
func (d *Database) FindMessagesByRecipient(ctx context.Context, username string) ([]models.MessageRow, error) {
	return d.findMessageRows(ctx, "WHERE m.to_username = ? ORDER BY m.id", username)
}

func (d *Database) FindMessageByID(ctx context.Context, id int64) (*models.MessageRow, error) {
	rows, err := d.findMessageRows(ctx, "WHERE m.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.ErrNotFound
	}
	return &rows[0], nil
}

// MarkMessageRead sets read_at once. When the message was already read the
// stored timestamp is returned untouched.
func (d *Database) MarkMessageRead(ctx context.Context, id int64, at time.Time) (time.Time, error) {
	res := d.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at)
	if res.Error != nil {
		return time.Time{}, translateError(res.Error)
	}
	if res.RowsAffected > 0 {
		return at, nil
	}

	msg := models.Message{}
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		return time.Time{}, translateError(err)
	}
	if msg.ReadAt == nil {
		return time.Time{}, common.ErrNotFound
	}
	return *msg.ReadAt, nil
}

func (d *Database) findMessageRows(ctx context.Context, clause string, arg any) ([]models.MessageRow, error) {
	rows := make([]models.MessageRow, 0)
	if err := d.db.WithContext(ctx).Raw(messageRowQuery+clause, arg).Scan(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}
