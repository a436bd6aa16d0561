package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	ErrEmptySecret  = errors.New("jwt secret is empty")
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// JWTManager выпускает и проверяет HS256 токены сессии. Личность передаётся
// только через subject (username).
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewJWTManager создаёт менеджер с секретом на всё время жизни процесса.
// При нулевом duration токены выпускаются без exp.
func NewJWTManager(secret string, duration time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &JWTManager{secretKey: []byte(secret), tokenDuration: duration, now: time.Now}, nil
}

// Generate создаёт подписанный JWT для principal
func (m *JWTManager) Generate(principal string) (string, error) {
	if principal == "" {
		return "", errors.New("empty principal")
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:  principal,
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if m.tokenDuration != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.tokenDuration))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Claims разбирает и проверяет токен, возвращает его claims
func (m *JWTManager) Claims(accessToken string) (*jwt.RegisteredClaims, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(accessToken, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify возвращает username из валидного токена
func (m *JWTManager) Verify(accessToken string) (string, error) {
	claims, err := m.Claims(accessToken)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Expiry возвращает время истечения токена (нулевое, если exp нет)
func (m *JWTManager) Expiry(accessToken string) (time.Time, error) {
	claims, err := m.Claims(accessToken)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// ExtractTokenFromHeader извлекает Bearer токен из заголовка Authorization
func ExtractTokenFromHeader(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid Authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
