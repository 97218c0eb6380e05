package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contractflow/internal/config"
	"contractflow/internal/domain"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	minSecretLength = 32
)

// Claims is the payload of a session token.
type Claims struct {
	UserID   int64  `json:"uid"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	BranchID int64  `json:"branch_id"`
	jwtv5.RegisteredClaims
}

// Service issues and verifies HS256 session tokens. Revoked token ids are
// checked against the denylist on every request.
type Service struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	now      func() time.Time
	denylist domain.TokenDenylist
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg config.Config, denylist domain.TokenDenylist, opts ...Option) (*Service, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &Service{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(cfg.JWTIssuer),
		ttl:      ttl,
		now:      time.Now,
		denylist: denylist,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Issue(user domain.User) (string, domain.Principal, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     string(user.Role),
		BranchID: user.BranchID,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(expires),
		},
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.Principal{}, fmt.Errorf("sign token: %w", err)
	}
	return token, principalFromClaims(claims), nil
}

func (s *Service) Authenticate(ctx context.Context, bearerToken string) (domain.Principal, error) {
	if s == nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	tokenString := strings.TrimSpace(bearerToken)
	if tokenString == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	parserOpts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithTimeFunc(s.now),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuedAt(),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwtv5.WithIssuer(s.issuer))
	}
	claims := &Claims{}
	token, err := jwtv5.ParseWithClaims(tokenString, claims, func(*jwtv5.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil || !token.Valid {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	if claims.ID == "" || claims.UserID <= 0 || !domain.Role(claims.Role).Valid() {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return domain.Principal{}, fmt.Errorf("check token denylist: %w", err)
		}
		if revoked {
			return domain.Principal{}, domain.ErrUnauthorized
		}
	}
	return principalFromClaims(*claims), nil
}

func principalFromClaims(claims Claims) domain.Principal {
	principal := domain.Principal{
		Actor: domain.Actor{
			UserID:   claims.UserID,
			Email:    claims.Email,
			Role:     domain.Role(claims.Role),
			BranchID: claims.BranchID,
		},
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return principal
}

// IsUnauthorized reports whether err is a token rejection rather than an
// infrastructure failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

var (
	_ domain.TokenIssuer   = (*Service)(nil)
	_ domain.Authenticator = (*Service)(nil)
)
