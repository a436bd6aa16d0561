package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/logging"
	"github.com/thereayou/messagely/internal/models"
)

const maxUsernameLen = 64

// RegisterInput carries a new account's fields. Password is plaintext and
// never leaves the IdentityManager.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// IdentityManager owns the credential lifecycle: registration, password
// checks, login bookkeeping and profile lookups.
type IdentityManager struct {
	store  UserStore
	hasher Hasher
	users  UserList
	now    func() time.Time
	log    logging.Logger
}

type IdentityOption func(*IdentityManager)

// WithUserList serves ListAll from l (typically a cache) and invalidates it
// after each registration.
func WithUserList(l UserList) IdentityOption {
	return func(m *IdentityManager) { m.users = l }
}

func WithClock(now func() time.Time) IdentityOption {
	return func(m *IdentityManager) { m.now = now }
}

func WithIdentityLogger(log logging.Logger) IdentityOption {
	return func(m *IdentityManager) { m.log = log }
}

func NewIdentityManager(store UserStore, hasher Hasher, opts ...IdentityOption) *IdentityManager {
	m := &IdentityManager{
		store:  store,
		hasher: hasher,
		users:  storeUserList{store: store},
		now:    defaultClock,
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("module", "identity")
	return m
}

// Register stores a new user with a hashed password. Join and last-login
// timestamps are both set to the creation time.
func (m *IdentityManager) Register(ctx context.Context, in RegisterInput) (*models.UserDetail, error) {
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrInvalidInput)
	}

	digest, err := m.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := m.now()
	user := &models.User{
		Username:    in.Username,
		Password:    digest,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Phone:       in.Phone,
		JoinAt:      now,
		LastLoginAt: &now,
	}
	if err := m.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			m.log.Info(ctx, "username taken", "username", in.Username)
		}
		return nil, err
	}

	m.users.Invalidate(ctx)
	m.log.Info(ctx, "user registered", "username", in.Username)

	detail := user.Detail()
	return &detail, nil
}

// Authenticate reports whether password matches the stored digest. An
// unknown username is a plain false, and costs one dummy hash compare so it
// takes about as long as a wrong password.
func (m *IdentityManager) Authenticate(ctx context.Context, username, password string) (bool, error) {
	user, err := m.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			m.hasher.Equalize(ctx, password)
			return false, nil
		}
		return false, err
	}

	if !m.hasher.Verify(ctx, password, user.Password) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// TouchLogin sets the user's last-login time to now and returns it.
func (m *IdentityManager) TouchLogin(ctx context.Context, username string) (time.Time, error) {
	now := m.now()
	if err := m.store.UpdateLastLogin(ctx, username, now); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

func (m *IdentityManager) GetProfile(ctx context.Context, username string) (*models.UserDetail, error) {
	user, err := m.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	detail := user.Detail()
	return &detail, nil
}

// ListAll returns every user's summary ordered by username.
func (m *IdentityManager) ListAll(ctx context.Context) ([]models.UserSummary, error) {
	users, err := m.users.ListUsersOrdered(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.UserSummary{}
	}
	return users, nil
}

func validateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username is required", common.ErrInvalidInput)
	case len(username) > maxUsernameLen:
		return fmt.Errorf("%w: username longer than %d bytes", common.ErrInvalidInput, maxUsernameLen)
	case strings.TrimSpace(username) != username:
		return fmt.Errorf("%w: username has surrounding whitespace", common.ErrInvalidInput)
	}
	return nil
}
