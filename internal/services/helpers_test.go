package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thereayou/messagely/internal/database"
	"github.com/thereayou/messagely/internal/models"
	"github.com/thereayou/messagely/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	h, err := auth.NewPasswordHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)
	return h
}

func newTokens(t *testing.T) *auth.JWTManager {
	t.Helper()
	m, err := auth.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)
	return m
}

func register(t *testing.T, im *IdentityManager, username, password string) *models.UserDetail {
	t.Helper()
	u, err := im.Register(context.Background(), RegisterInput{
		Username: username, Password: password, FirstName: "F" + username, LastName: "L" + username, Phone: "p-" + username,
	})
	require.NoError(t, err)
	return u
}

// countingHasher records how often each path of the hasher runs.
type countingHasher struct {
	Hasher
	mu        sync.Mutex
	verified  int
	equalized int
}

func (h *countingHasher) Verify(ctx context.Context, plain, digest string) bool {
	h.mu.Lock()
	h.verified++
	h.mu.Unlock()
	return h.Hasher.Verify(ctx, plain, digest)
}

func (h *countingHasher) Equalize(ctx context.Context, plain string) {
	h.mu.Lock()
	h.equalized++
	h.mu.Unlock()
	h.Hasher.Equalize(ctx, plain)
}

// failingStore wraps a store and fails selected calls.
type failingStore struct {
	*database.MemoryStore
	updateErr error
	findErr   error
	listErr   error
	markErr   error
}

var errStoreDown = errors.New("store down")

func (s *failingStore) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.MemoryStore.UpdateLastLogin(ctx, username, at)
}

func (s *failingStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryStore.FindUserByUsername(ctx, username)
}

func (s *failingStore) ListUsersOrdered(ctx context.Context) ([]models.UserSummary, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryStore.ListUsersOrdered(ctx)
}

func (s *failingStore) MarkMessageRead(ctx context.Context, id int64, at time.Time) (time.Time, error) {
	if s.markErr != nil {
		return time.Time{}, s.markErr
	}
	return s.MemoryStore.MarkMessageRead(ctx, id, at)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages map[string][]models.ReceivedMessage
	reads    map[string][]models.ReadReceipt
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		messages: make(map[string][]models.ReceivedMessage),
		reads:    make(map[string][]models.ReadReceipt),
	}
}

func (n *recordingNotifier) NotifyMessage(username string, msg models.ReceivedMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[username] = append(n.messages[username], msg)
}

func (n *recordingNotifier) NotifyRead(username string, receipt models.ReadReceipt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reads[username] = append(n.reads[username], receipt)
}

type recordingUserList struct {
	UserStore
	invalidations int
}

func (l *recordingUserList) Invalidate(context.Context) { l.invalidations++ }
