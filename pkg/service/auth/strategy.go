package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the identity facts carried by a session token.
type Claims struct {
	UserID    uuid.UUID
	Email     string
	SessionID string
	ExpiresAt time.Time
}

// Strategy issues and reads session tokens.
type Strategy interface {
	GenerateToken(u *domain.User, sessionID string) (token string, expiresAt time.Time, err error)
	ParseToken(token string) (*Claims, error)
	ClaimsFromToken(token *jwt.Token) (*Claims, error)
	TTL() time.Duration
}

// JWTStrategy implements Strategy with HS256-signed JWTs.
type JWTStrategy struct {
	cfg *config.Jwt
	now func() time.Time
}

func NewJWTStrategy(cfg *config.Jwt) *JWTStrategy {
	return &JWTStrategy{cfg: cfg, now: time.Now}
}

func (s *JWTStrategy) TTL() time.Duration { return s.cfg.Expiry }

func (s *JWTStrategy) GenerateToken(u *domain.User, sessionID string) (string, time.Time, error) {
	expiresAt := s.now().Add(s.cfg.Expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID.String(),
		"email":   u.Email,
		"sid":     sessionID,
		"exp":     expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *JWTStrategy) ParseToken(raw string) (*Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return s.ClaimsFromToken(token)
}

// ClaimsFromToken reads the claims of an already verified token, such as
// the one the fiber JWT middleware stores in the request locals.
func (s *JWTStrategy) ClaimsFromToken(token *jwt.Token) (*Claims, error) {
	if token == nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	rawID, _ := mc["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed user id", domain.ErrUnauthorized)
	}
	sid, _ := mc["sid"].(string)
	if sid == "" {
		return nil, fmt.Errorf("%w: missing session id", domain.ErrUnauthorized)
	}
	email, _ := mc["email"].(string)
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", domain.ErrUnauthorized)
	}
	return &Claims{UserID: userID, Email: email, SessionID: sid, ExpiresAt: exp.Time}, nil
}

var _ Strategy = (*JWTStrategy)(nil)
