package domain

import (
	"context"
	"time"
)

type Principal struct {
	Actor
	TokenID   string
	ExpiresAt time.Time
}

type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (Principal, error)
}

type TokenIssuer interface {
	Issue(user User) (token string, principal Principal, err error)
}

// TokenDenylist holds revoked token ids until their natural expiry.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RequestMeta is the network/client metadata recorded with audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
