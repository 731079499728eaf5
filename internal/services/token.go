package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService interface {
	Issue(subject, role string) (string, time.Time, error)
	Verify(tokenString string) (*Claims, error)
	GetTTL() time.Duration
}

type tokenService struct {
	log          *logger.Logger
	jwtSecretKey string
	ttl          time.Duration
	now          func() time.Time
}

func NewTokenService(log *logger.Logger, jwtSecretKey string, ttl time.Duration) TokenService {
	serviceLog := log.With("service", "TokenService")
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &tokenService{
		log:          serviceLog,
		jwtSecretKey: jwtSecretKey,
		ttl:          ttl,
		now:          time.Now,
	}
}

func (ts *tokenService) Issue(subject, role string) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	role = strings.TrimSpace(role)
	if subject == "" || role == "" {
		return "", time.Time{}, fmt.Errorf("subject and role required")
	}
	now := ts.now()
	expiresAt := now.Add(ts.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(ts.jwtSecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	ts.log.Info("Issued token", "subject", subject, "role", role, "expires_at", expiresAt.UTC())
	return signed, expiresAt, nil
}

func (ts *tokenService) Verify(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrInvalidToken
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(ts.jwtSecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsedToken.Claims.(*Claims)
	if !ok || !parsedToken.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (ts *tokenService) GetTTL() time.Duration {
	return ts.ttl
}
