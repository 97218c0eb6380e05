package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"contractflow/internal/domain"
	"contractflow/internal/infra/auth/rbac"
	"contractflow/internal/infra/db"

	"github.com/shopspring/decimal"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store     *db.Store
	clock     *testClock
	contracts *ContractService
	payments  *PaymentService
	notices   *NotificationService
	audit     *AuditService
	branches  map[string]domain.Branch
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := db.OpenTestStore(t)
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	guard := rbac.NewGuard()

	identity := &IdentityService{Store: store, Guard: guard, Clock: clock.Now}
	if _, err := identity.Bootstrap(context.Background(), "", "", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	branches, err := store.Branches().List(context.Background())
	if err != nil {
		t.Fatalf("list branches: %v", err)
	}
	byCode := make(map[string]domain.Branch, len(branches))
	for _, b := range branches {
		byCode[b.Code] = b
	}

	contracts := NewContractService(store, guard)
	contracts.Clock = clock.Now
	return &harness{
		store:     store,
		clock:     clock,
		contracts: contracts,
		payments:  &PaymentService{Store: store, Guard: guard, Clock: clock.Now},
		notices:   &NotificationService{Store: store, Clock: clock.Now},
		audit:     NewAuditService(store, guard),
		branches:  byCode,
	}
}

func (h *harness) user(t *testing.T, code string, role domain.Role, signature string) domain.Actor {
	t.Helper()
	u, err := h.store.Users().Create(context.Background(), domain.User{
		Email:         code + "." + string(role) + "@example.com",
		PasswordHash:  "unused",
		Role:          role,
		BranchID:      h.branches[code].ID,
		SignatureData: signature,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.Actor()
}

func (h *harness) auditCount(t *testing.T) int {
	t.Helper()
	chain, err := h.store.AuditLogs().ListChain(context.Background())
	if err != nil {
		t.Fatalf("list audit chain: %v", err)
	}
	return len(chain)
}

func (h *harness) lastAudit(t *testing.T) domain.AuditLog {
	t.Helper()
	chain, err := h.store.AuditLogs().ListChain(context.Background())
	if err != nil {
		t.Fatalf("list audit chain: %v", err)
	}
	if len(chain) == 0 {
		t.Fatal("expected audit entries")
	}
	return chain[len(chain)-1]
}

func agreementTerms() domain.ContractTerms {
	return domain.ContractTerms{
		ClientName:     "Al Noor Construction",
		ClientEmail:    "ops@alnoor.example",
		ContractType:   domain.ContractAgreement,
		Value:          decimal.RequireFromString("5000"),
		DurationMonths: 12,
	}
}

var testMeta = domain.RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test"}
