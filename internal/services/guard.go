package services

import (
	"fmt"

	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/models"
)

// Guard decides whether a principal may touch a resource. Every check runs
// before the guarded operation reads any data for the response.
type Guard struct {
	tokens TokenService
}

func NewGuard(tokens TokenService) *Guard {
	return &Guard{tokens: tokens}
}

// RequireAuthenticated returns the principal bound into token.
func (g *Guard) RequireAuthenticated(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", common.ErrAuthentication)
	}
	principal, err := g.tokens.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrAuthentication, err)
	}
	return principal, nil
}

// RequireSelf allows a principal to act only on its own user record.
func (g *Guard) RequireSelf(principal, target string) error {
	if principal == "" || principal != target {
		return common.ErrForbidden
	}
	return nil
}

// RequireMessageParty allows the sender and the recipient of msg.
func (g *Guard) RequireMessageParty(principal string, msg *models.MessageDetail) error {
	if msg == nil || principal == "" {
		return common.ErrForbidden
	}
	if principal != msg.FromUser.Username && principal != msg.ToUser.Username {
		return common.ErrForbidden
	}
	return nil
}

// RequireRecipient allows only the recipient of msg.
func (g *Guard) RequireRecipient(principal string, msg *models.MessageDetail) error {
	if msg == nil || principal == "" || principal != msg.ToUser.Username {
		return common.ErrForbidden
	}
	return nil
}
