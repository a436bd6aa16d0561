package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// bcrypt only reads the first 72 bytes of its input.
const maxBcryptInput = 72

// PasswordHasher wraps bcrypt at a fixed cost. Concurrent hash operations are
// bounded so that a burst of logins cannot take every CPU.
type PasswordHasher struct {
	cost  int
	sem   *semaphore.Weighted
	dummy []byte
}

// NewPasswordHasher validates cost and bounds concurrent hashing to
// concurrency slots (runtime.NumCPU() when concurrency <= 0).
func NewPasswordHasher(cost, concurrency int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(base64.RawStdEncoding.EncodeToString(secret)), cost)
	if err != nil {
		return nil, err
	}

	return &PasswordHasher{cost: cost, sem: semaphore.NewWeighted(int64(concurrency)), dummy: dummy}, nil
}

func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt digest of plain. It only fails when ctx ends
// before a hashing slot frees up or the system RNG fails.
func (h *PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword(prepare(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest. A malformed digest or an
// ended ctx yields false.
func (h *PasswordHasher) Verify(ctx context.Context, plain, digest string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(digest), prepare(plain)) == nil
}

// Equalize spends the same work as a Verify against a real digest. Callers
// use it on lookup misses so an absent user costs as much as a wrong password.
func (h *PasswordHasher) Equalize(ctx context.Context, plain string) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer h.sem.Release(1)

	_ = bcrypt.CompareHashAndPassword(h.dummy, prepare(plain))
}

// prepare pre-hashes inputs bcrypt would otherwise reject or truncate.
func prepare(plain string) []byte {
	if len(plain) <= maxBcryptInput {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
