package database

import (
	"context"
	"time"

	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/models"
)

// InsertUser stores a new user. A taken username yields common.ErrConflict.
func (d *Database) InsertUser(ctx context.Context, user *models.User) error {
	return translateError(d.db.WithContext(ctx).Create(user).Error)
}

func (d *Database) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (d *Database) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	res := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("last_login_at", at)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListUsersOrdered returns every user's summary sorted by username.
func (d *Database) ListUsersOrdered(ctx context.Context) ([]models.UserSummary, error) {
	users := make([]models.UserSummary, 0)
	err := d.db.WithContext(ctx).
		Model(&models.User{}).
		Select("username", "first_name", "last_name").
		Order("username").
		Find(&users).Error
	if err != nil {
		return nil, translateError(err)
	}
	return users, nil
}
