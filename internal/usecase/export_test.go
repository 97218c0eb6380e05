package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"contractflow/internal/domain"
	"contractflow/internal/infra/auth/rbac"

	"github.com/shopspring/decimal"
)

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryObjects) Put(_ context.Context, key, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *memoryObjects) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://objects.test/" + key + "?ttl=" + ttl.String(), nil
}

func TestExportService_WritesDossier(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")
	manager := h.user(t, "JED", domain.RoleManager, "")
	outsider := h.user(t, "MEC", domain.RoleEmployee, "")
	c := executedContract(t, h, employee, manager, 12)
	if _, err := h.payments.AddPayment(ctx, employee, c.ID, AddPaymentInput{
		Amount:  decimal.RequireFromString("2500"),
		DueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}, testMeta); err != nil {
		t.Fatalf("add payment: %v", err)
	}

	objects := &memoryObjects{}
	svc := &ExportService{Store: h.store, Guard: rbac.NewGuard(), Objects: objects, Clock: h.clock.Now}

	if _, err := svc.ExportContract(ctx, outsider, c.ID, testMeta); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden export across branches, got %v", err)
	}
	res, err := svc.ExportContract(ctx, employee, c.ID, testMeta)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(res.ObjectKey, "contracts/"+c.ContractNumber+"/dossier-") {
		t.Fatalf("unexpected object key %s", res.ObjectKey)
	}
	if !res.ExpiresAt.Equal(h.clock.Now().Add(DefaultExportURLTTL)) || !strings.Contains(res.URL, res.ObjectKey) {
		t.Fatalf("unexpected presigned result %+v", res)
	}
	if objects.types[res.ObjectKey] != "application/json" {
		t.Fatalf("unexpected content type %q", objects.types[res.ObjectKey])
	}

	var body struct {
		Contract   map[string]any      `json:"contract"`
		Workflow   domain.WorkflowView `json:"workflow"`
		Signatures []json.RawMessage   `json:"signatures"`
		Payments   []map[string]any    `json:"payments"`
		AuditTrail []struct {
			Seq        int64  `json:"seq"`
			ActionType string `json:"action_type"`
		} `json:"audit_trail"`
	}
	if err := json.Unmarshal(objects.objects[res.ObjectKey], &body); err != nil {
		t.Fatalf("decode dossier: %v", err)
	}
	if body.Contract["contract_number"] != c.ContractNumber || !body.Workflow.IsComplete {
		t.Fatalf("unexpected dossier contract %+v", body.Contract)
	}
	if len(body.Signatures) != 3 || len(body.Payments) != 1 {
		t.Fatalf("expected 3 signatures and 1 payment, got %d and %d", len(body.Signatures), len(body.Payments))
	}
	if len(body.AuditTrail) != 5 || body.AuditTrail[0].ActionType != string(domain.AuditCreate) {
		t.Fatalf("expected oldest-first contract trail, got %+v", body.AuditTrail)
	}
	if entry := h.lastAudit(t); entry.ActionType != domain.AuditExport {
		t.Fatalf("expected export audit entry, got %+v", entry)
	}
}

func TestExportService_Disabled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")
	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	svc := &ExportService{Store: h.store, Guard: rbac.NewGuard(), Clock: h.clock.Now}
	if _, err := svc.ExportContract(ctx, employee, c.ID, testMeta); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found when exports are disabled, got %v", err)
	}
}
