package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/database"
	"github.com/thereayou/messagely/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister_StoresDigestAndTimestamps(t *testing.T) {
	store := database.NewMemoryStore()
	clock := newClock()
	im := NewIdentityManager(store, newHasher(t), WithClock(clock.Now))

	detail := register(t, im, "alice", "pw1")
	assert.Equal(t, "alice", detail.Username)
	assert.Equal(t, "Falice", detail.FirstName)
	assert.True(t, detail.JoinAt.Equal(clock.Now()))
	require.NotNil(t, detail.LastLoginAt)
	assert.True(t, detail.LastLoginAt.Equal(detail.JoinAt))

	stored, err := store.FindUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", stored.Password)
	assert.NotContains(t, stored.Password, "pw1")
	cost, err := bcrypt.Cost([]byte(stored.Password))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestRegister_DuplicateIsConflictAndKeepsFirstRecord(t *testing.T) {
	store := database.NewMemoryStore()
	im := NewIdentityManager(store, newHasher(t))
	ctx := context.Background()

	register(t, im, "alice", "first")

	_, err := im.Register(ctx, RegisterInput{Username: "alice", Password: "second", FirstName: "Other"})
	assert.ErrorIs(t, err, common.ErrConflict)

	ok, err := im.Authenticate(ctx, "alice", "first")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = im.Authenticate(ctx, "alice", "second")
	require.NoError(t, err)
	assert.False(t, ok)

	profile, err := im.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Falice", profile.FirstName)
}

func TestRegister_ConcurrentSameUsernameOneWins(t *testing.T) {
	im := NewIdentityManager(database.NewMemoryStore(), newHasher(t))
	ctx := context.Background()

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = im.Register(ctx, RegisterInput{Username: "race", Password: "pw"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, common.ErrConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestRegister_InvalidInput(t *testing.T) {
	im := NewIdentityManager(database.NewMemoryStore(), newHasher(t))

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "empty username", in: RegisterInput{Password: "pw"}},
		{name: "long username", in: RegisterInput{Username: strings.Repeat("u", 65), Password: "pw"}},
		{name: "padded username", in: RegisterInput{Username: " bob ", Password: "pw"}},
		{name: "empty password", in: RegisterInput{Username: "bob"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := im.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestRegister_InvalidatesUserList(t *testing.T) {
	store := database.NewMemoryStore()
	list := &recordingUserList{UserStore: store}
	im := NewIdentityManager(store, newHasher(t), WithUserList(list))

	register(t, im, "alice", "pw")
	_, err := im.Register(context.Background(), RegisterInput{Username: "alice", Password: "pw"})
	require.Error(t, err)

	assert.Equal(t, 1, list.invalidations)
}

func TestAuthenticate(t *testing.T) {
	im := NewIdentityManager(database.NewMemoryStore(), newHasher(t))
	ctx := context.Background()
	register(t, im, "alice", "pw1")

	for _, tt := range []struct {
		username, password string
		want               bool
	}{
		{"alice", "pw1", true},
		{"alice", "wrong", false},
		{"alice", "", false},
		{"alice", "PW1", false},
		{"ghost", "pw1", false},
	} {
		ok, err := im.Authenticate(ctx, tt.username, tt.password)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "%s/%s", tt.username, tt.password)
	}
}

func TestAuthenticate_UnknownUserStillSpendsAHash(t *testing.T) {
	h := &countingHasher{Hasher: newHasher(t)}
	im := NewIdentityManager(database.NewMemoryStore(), h)

	ok, err := im.Authenticate(context.Background(), "ghost", "pw")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, h.equalized)
	assert.Equal(t, 0, h.verified)
}

func TestAuthenticate_MalformedDigestIsFalse(t *testing.T) {
	store := database.NewMemoryStore()
	require.NoError(t, store.InsertUser(context.Background(), &models.User{Username: "legacy", Password: "not-bcrypt"}))
	im := NewIdentityManager(store, newHasher(t))

	ok, err := im.Authenticate(context.Background(), "legacy", "not-bcrypt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate_StoreErrorPropagates(t *testing.T) {
	store := &failingStore{MemoryStore: database.NewMemoryStore(), findErr: errStoreDown}
	im := NewIdentityManager(store, newHasher(t))

	_, err := im.Authenticate(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, errStoreDown)
}

func TestTouchLogin(t *testing.T) {
	store := database.NewMemoryStore()
	clock := newClock()
	im := NewIdentityManager(store, newHasher(t), WithClock(clock.Now))
	ctx := context.Background()
	register(t, im, "alice", "pw")

	clock.Advance(time.Hour)
	at, err := im.TouchLogin(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, at.Equal(clock.Now()))

	profile, err := im.GetProfile(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, profile.LastLoginAt)
	assert.True(t, profile.LastLoginAt.Equal(at))
	assert.True(t, profile.JoinAt.Before(at))
}

func TestTouchLogin_UnknownUserDoesNotCreate(t *testing.T) {
	store := database.NewMemoryStore()
	im := NewIdentityManager(store, newHasher(t))
	ctx := context.Background()

	_, err := im.TouchLogin(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.FindUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
	users, err := im.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGetProfile_HasNoPassword(t *testing.T) {
	im := NewIdentityManager(database.NewMemoryStore(), newHasher(t))
	register(t, im, "alice", "pw1")

	profile, err := im.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, profile.JoinAt.IsZero())
	assert.NotNil(t, profile.LastLoginAt)

	raw, err := json.Marshal(profile)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "$2a$")

	_, err = im.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListAll_Ordered(t *testing.T) {
	im := NewIdentityManager(database.NewMemoryStore(), newHasher(t))
	ctx := context.Background()

	empty, err := im.ListAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	for _, n := range []string{"mallory", "alice", "bob"} {
		register(t, im, n, "pw")
	}
	users, err := im.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.UserSummary{
		{Username: "alice", FirstName: "Falice", LastName: "Lalice"},
		{Username: "bob", FirstName: "Fbob", LastName: "Lbob"},
		{Username: "mallory", FirstName: "Fmallory", LastName: "Lmallory"},
	}, users)
}

func TestListAll_StoreError(t *testing.T) {
	store := &failingStore{MemoryStore: database.NewMemoryStore(), listErr: errStoreDown}
	im := NewIdentityManager(store, newHasher(t))

	_, err := im.ListAll(context.Background())
	assert.ErrorIs(t, err, errStoreDown)
}
