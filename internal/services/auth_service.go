package services

import (
	"context"
	"fmt"

	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/logging"
)

// AuthService turns registrations and logins into session tokens.
type AuthService struct {
	identity *IdentityManager
	tokens   TokenService
	log      logging.Logger
}

func NewAuthService(identity *IdentityManager, tokens TokenService, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &AuthService{identity: identity, tokens: tokens, log: log.With("module", "auth")}
}

// Register creates the account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	user, err := s.identity.Register(ctx, in)
	if err != nil {
		return "", err
	}
	return s.issue(user.Username)
}

// Login checks credentials, records the login time and returns a token. The
// timestamp is written before the token is handed out; if the write fails the
// login fails.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	ok, err := s.identity.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}
	if !ok {
		s.log.Warn(ctx, "login rejected", "username", username)
		return "", fmt.Errorf("%w: invalid username or password", common.ErrAuthentication)
	}

	if _, err := s.identity.TouchLogin(ctx, username); err != nil {
		return "", fmt.Errorf("record login: %w", err)
	}

	s.log.Info(ctx, "user logged in", "username", username)
	return s.issue(username)
}

func (s *AuthService) issue(username string) (string, error) {
	token, err := s.tokens.Generate(username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
