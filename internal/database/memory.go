package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/models"
)

// MemoryStore keeps users and messages in process memory. It honours the
// same contract as Database and backs STORE_DRIVER=memory and the tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	messages []models.Message
	nextID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]models.User), nextID: 1}
}

func (s *MemoryStore) InsertUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return common.ErrConflict
	}
	s.users[user.Username] = copyUser(*user)
	return nil
}

func (s *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	u = copyUser(u)
	return &u, nil
}

func (s *MemoryStore) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return common.ErrNotFound
	}
	u.LastLoginAt = &at
	s.users[username] = u
	return nil
}

func (s *MemoryStore) ListUsersOrdered(ctx context.Context) ([]models.UserSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.UserSummary, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, models.UserSummary{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *MemoryStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[msg.FromUsername]; !ok {
		return common.ErrNotFound
	}
	if _, ok := s.users[msg.ToUsername]; !ok {
		return common.ErrNotFound
	}

	msg.ID = s.nextID
	s.nextID++
	s.messages = append(s.messages, copyMessage(*msg))
	return nil
}

func (s *MemoryStore) FindMessagesBySender(ctx context.Context, username string) ([]models.MessageRow, error) {
	return s.filterRows(ctx, func(m models.Message) bool { return m.FromUsername == username })
}

func (s *MemoryStore) FindMessagesByRecipient(ctx context.Context, username string) ([]models.MessageRow, error) {
	return s.filterRows(ctx, func(m models.Message) bool { return m.ToUsername == username })
}

func (s *MemoryStore) FindMessageByID(ctx context.Context, id int64) (*models.MessageRow, error) {
	rows, err := s.filterRows(ctx, func(m models.Message) bool { return m.ID == id })
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.ErrNotFound
	}
	return &rows[0], nil
}

func (s *MemoryStore) MarkMessageRead(ctx context.Context, id int64, at time.Time) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		m := &s.messages[i]
		if m.ID != id {
			continue
		}
		if m.ReadAt != nil {
			return *m.ReadAt, nil
		}
		m.ReadAt = &at
		return at, nil
	}
	return time.Time{}, common.ErrNotFound
}

// filterRows joins matching messages with both parties, in insertion (id) order.
func (s *MemoryStore) filterRows(ctx context.Context, keep func(models.Message) bool) ([]models.MessageRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]models.MessageRow, 0)
	for _, m := range s.messages {
		if !keep(m) {
			continue
		}
		from, to := s.users[m.FromUsername], s.users[m.ToUsername]
		m = copyMessage(m)
		rows = append(rows, models.MessageRow{
			ID:            m.ID,
			FromUsername:  from.Username,
			FromFirstName: from.FirstName,
			FromLastName:  from.LastName,
			FromPhone:     from.Phone,
			ToUsername:    to.Username,
			ToFirstName:   to.FirstName,
			ToLastName:    to.LastName,
			ToPhone:       to.Phone,
			Body:          m.Body,
			SentAt:        m.SentAt,
			ReadAt:        m.ReadAt,
		})
	}
	return rows, nil
}

func copyUser(u models.User) models.User {
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		u.LastLoginAt = &t
	}
	return u
}

func copyMessage(m models.Message) models.Message {
	if m.ReadAt != nil {
		t := *m.ReadAt
		m.ReadAt = &t
	}
	return m
}
