package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/models"
	"github.com/thereayou/messagely/pkg/auth"
)

func TestRequireAuthenticated(t *testing.T) {
	tokens := newTokens(t)
	g := NewGuard(tokens)

	tok, err := tokens.Generate("alice")
	require.NoError(t, err)

	principal, err := g.RequireAuthenticated(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal)

	other, err := auth.NewJWTManager("other-secret", 0)
	require.NoError(t, err)
	forged, err := other.Generate("alice")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"missing":      "",
		"malformed":    "garbage",
		"wrong secret": forged,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := g.RequireAuthenticated(token)
			assert.ErrorIs(t, err, common.ErrAuthentication)
		})
	}
}

func TestRequireSelf(t *testing.T) {
	g := NewGuard(newTokens(t))
	names := []string{"alice", "bob", "Alice", "alice ", ""}

	for _, a := range names {
		for _, b := range names {
			err := g.RequireSelf(a, b)
			if a == b && a != "" {
				assert.NoError(t, err, "%q vs %q", a, b)
			} else {
				assert.ErrorIs(t, err, common.ErrForbidden, "%q vs %q", a, b)
			}
		}
	}
}

func TestRequireMessageParty(t *testing.T) {
	g := NewGuard(newTokens(t))
	msg := &models.MessageDetail{
		ID:       1,
		FromUser: models.Counterpart{Username: "alice"},
		ToUser:   models.Counterpart{Username: "bob"},
	}

	assert.NoError(t, g.RequireMessageParty("alice", msg))
	assert.NoError(t, g.RequireMessageParty("bob", msg))
	assert.ErrorIs(t, g.RequireMessageParty("carol", msg), common.ErrForbidden)
	assert.ErrorIs(t, g.RequireMessageParty("", msg), common.ErrForbidden)
	assert.ErrorIs(t, g.RequireMessageParty("alice", nil), common.ErrForbidden)
}

func TestRequireRecipient(t *testing.T) {
	g := NewGuard(newTokens(t))
	msg := &models.MessageDetail{
		FromUser: models.Counterpart{Username: "alice"},
		ToUser:   models.Counterpart{Username: "bob"},
	}

	assert.NoError(t, g.RequireRecipient("bob", msg))
	assert.ErrorIs(t, g.RequireRecipient("alice", msg), common.ErrForbidden)
	assert.ErrorIs(t, g.RequireRecipient("carol", msg), common.ErrForbidden)
	assert.ErrorIs(t, g.RequireRecipient("bob", nil), common.ErrForbidden)
}
