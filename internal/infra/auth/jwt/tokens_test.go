package jwt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"contractflow/internal/config"
	"contractflow/internal/domain"
	"contractflow/internal/infra/denylist"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T, now *time.Time) (*Service, *denylist.Memory) {
	t.Helper()
	clock := func() time.Time { return *now }
	list := denylist.NewMemory(clock)
	svc, err := New(config.Config{JWTSecret: testSecret, JWTIssuer: "contractflow"}, list, WithClock(clock))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, list
}

func testUser() domain.User {
	return domain.User{ID: 7, Email: "m@jed.example", Role: domain.RoleManager, BranchID: 1}
}

func TestIssueAndAuthenticate(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, &now)

	token, issued, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.TokenID == "" || !issued.ExpiresAt.Equal(now.Add(DefaultTokenTTL)) {
		t.Fatalf("unexpected issued principal %+v", issued)
	}
	principal, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.UserID != 7 || principal.Role != domain.RoleManager || principal.BranchID != 1 || principal.TokenID != issued.TokenID {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, &now)
	token, _, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(DefaultTokenTTL + time.Second)
	if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc, list := newTestService(t, &now)
	token, issued, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := list.Revoke(context.Background(), issued.TokenID, issued.ExpiresAt); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), token); !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthenticateRejectsForeignTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, &now)

	claims := Claims{
		UserID:   1,
		Role:     string(domain.RoleAdmin),
		BranchID: 1,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        "x",
			Issuer:    "contractflow",
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(time.Hour)),
		},
	}
	forged, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(strings.Repeat("z", 32)))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims.Issuer = "someone-else"
	otherIssuer, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims.Issuer = "contractflow"
	claims.Role = "root"
	badRole, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	for name, token := range map[string]string{"forged": forged, "issuer": otherIssuer, "role": badRole, "garbage": "not-a-jwt", "empty": ""} {
		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
}

func TestNewRequiresLongSecret(t *testing.T) {
	if _, err := New(config.Config{JWTSecret: "short"}, nil); err == nil {
		t.Fatal("expected error for short secret")
	}
}
