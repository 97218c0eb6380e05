package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"contractflow/internal/domain"

	"github.com/shopspring/decimal"
)

func TestContractWorkflow_JeddahScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")
	manager := h.user(t, "JED", domain.RoleManager, "data:image/png;base64,TUdS")

	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	if c.Status != domain.StatusDraft {
		t.Fatalf("expected draft, got %s", c.Status)
	}
	if !strings.HasPrefix(c.ContractNumber, "JED-2026-") || len(c.ContractNumber) != len("JED-2026-000000") {
		t.Fatalf("unexpected contract number %q", c.ContractNumber)
	}
	if got := h.auditCount(t); got != 1 {
		t.Fatalf("expected 1 audit row after create, got %d", got)
	}

	req, err := h.contracts.RequestSignature(ctx, employee, c.ID, testMeta)
	if err != nil {
		t.Fatalf("request signature: %v", err)
	}
	if len(req.SigningLink) != 32 {
		t.Fatalf("expected 32 character link, got %q", req.SigningLink)
	}
	if !req.ExpiresAt.Equal(h.clock.Now().Add(DefaultSigningLinkTTL)) {
		t.Fatalf("unexpected link expiry %s", req.ExpiresAt)
	}
	if req.Contract.Status != domain.StatusPendingClientSignature {
		t.Fatalf("expected pending_client_signature, got %s", req.Contract.Status)
	}

	h.clock.Advance(time.Hour)
	signed, err := h.contracts.SignAsClient(ctx, req.SigningLink, "data:image/png;base64,Q0xJRU5U", testMeta)
	if err != nil {
		t.Fatalf("client sign: %v", err)
	}
	if signed.Status != domain.StatusClientSigned || signed.ClientSignedAt == nil {
		t.Fatalf("expected client_signed with timestamp, got %+v", signed)
	}
	entry := h.lastAudit(t)
	if entry.ActionType != domain.AuditSign || entry.UserID != nil || entry.RecordID == nil || *entry.RecordID != c.ID {
		t.Fatalf("unexpected client sign audit entry: %+v", entry)
	}

	approved, err := h.contracts.ApproveAsEmployee(ctx, employee, c.ID, "data:image/png;base64,RU1Q", testMeta)
	if err != nil {
		t.Fatalf("employee approve: %v", err)
	}
	if approved.Status != domain.StatusEmployeeApproved || approved.EmployeeSignedAt == nil {
		t.Fatalf("expected employee_approved, got %+v", approved)
	}

	// Employees hold no seal.
	if _, err := h.contracts.SealAsManagement(ctx, employee, c.ID, "x", testMeta); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for employee seal, got %v", err)
	}

	// Empty payload falls back to the manager's stored signature.
	sealed, err := h.contracts.SealAsManagement(ctx, manager, c.ID, "", testMeta)
	if err != nil {
		t.Fatalf("management seal: %v", err)
	}
	if sealed.Status != domain.StatusFullyExecuted || !sealed.Locked() || sealed.ManagementApprovedAt == nil {
		t.Fatalf("expected locked fully_executed, got %+v", sealed)
	}
	if view := domain.WorkflowOf(sealed); !view.IsComplete {
		t.Fatalf("expected complete workflow, got %+v", view)
	}

	sigs, err := h.contracts.ListSignatures(ctx, manager, c.ID)
	if err != nil {
		t.Fatalf("list signatures: %v", err)
	}
	if len(sigs) != 3 {
		t.Fatalf("expected 3 signatures, got %d", len(sigs))
	}
	if sigs[2].SignatureType != domain.SignatureManagementSeal || sigs[2].SignatureData != "data:image/png;base64,TUdS" {
		t.Fatalf("expected seal with stored signature, got %+v", sigs[2])
	}

	newValue := decimal.RequireFromString("9000")
	_, err = h.contracts.UpdateTerms(ctx, manager, c.ID, domain.ContractPatch{Value: &newValue}, testMeta)
	if !errors.Is(err, domain.ErrForbidden) || !errors.Is(err, domain.ErrLocked) {
		t.Fatalf("expected locked forbidden error, got %v", err)
	}

	archived, err := h.contracts.ArchiveContract(ctx, manager, c.ID, testMeta)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.Status != domain.StatusArchived {
		t.Fatalf("expected archived, got %s", archived.Status)
	}

	if got := h.auditCount(t); got != 6 {
		t.Fatalf("expected 6 audit rows, got %d", got)
	}
	report, err := VerifyAuditChain(ctx, h.store.AuditLogs())
	if err != nil {
		t.Fatalf("verify chain: %v", err)
	}
	if report.Entries != 6 {
		t.Fatalf("expected 6 verified entries, got %d", report.Entries)
	}

	creatorInbox, err := h.notices.List(ctx, employee, false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(creatorInbox) != 2 {
		t.Fatalf("expected client-signed and executed notices for creator, got %d", len(creatorInbox))
	}
	managerInbox, err := h.notices.List(ctx, manager, true)
	if err != nil {
		t.Fatalf("list manager notifications: %v", err)
	}
	if len(managerInbox) != 1 || managerInbox[0].Type != domain.NotifySignatureRequired {
		t.Fatalf("expected seal request for manager, got %+v", managerInbox)
	}
}

func TestContractWorkflow_StatusNeverSkipsSteps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "sig")
	manager := h.user(t, "JED", domain.RoleManager, "sig")

	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	if _, err := h.contracts.ApproveAsEmployee(ctx, employee, c.ID, "sig", testMeta); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state approving draft, got %v", err)
	}
	if _, err := h.contracts.SealAsManagement(ctx, manager, c.ID, "sig", testMeta); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state sealing draft, got %v", err)
	}
	if _, err := h.contracts.ArchiveContract(ctx, manager, c.ID, testMeta); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state archiving draft, got %v", err)
	}
	if _, err := h.contracts.RequestSignature(ctx, employee, c.ID, testMeta); err != nil {
		t.Fatalf("request signature: %v", err)
	}
	if _, err := h.contracts.RequestSignature(ctx, employee, c.ID, testMeta); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state on second request, got %v", err)
	}
	if got := h.auditCount(t); got != 2 {
		t.Fatalf("rejected calls must not audit, got %d rows", got)
	}
}

func TestContractWorkflow_ExpiredLink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "MEC", domain.RoleEmployee, "")

	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	req, err := h.contracts.RequestSignature(ctx, employee, c.ID, testMeta)
	if err != nil {
		t.Fatalf("request signature: %v", err)
	}
	before := h.auditCount(t)

	h.clock.Advance(DefaultSigningLinkTTL)
	if _, err := h.contracts.SignAsClient(ctx, req.SigningLink, "sig", testMeta); !errors.Is(err, domain.ErrExpiredLink) {
		t.Fatalf("expected expired link, got %v", err)
	}
	if _, err := h.contracts.PublicContract(ctx, req.SigningLink); !errors.Is(err, domain.ErrExpiredLink) {
		t.Fatalf("expected expired link on public read, got %v", err)
	}
	got, err := h.contracts.GetContract(ctx, employee, c.ID)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if got.Status != domain.StatusPendingClientSignature || got.ClientSignedAt != nil {
		t.Fatalf("expected unchanged pending contract, got %+v", got)
	}
	if after := h.auditCount(t); after != before {
		t.Fatalf("expired signing must not audit, got %d rows, want %d", after, before)
	}
}

func TestContractWorkflow_ClientSignatureValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.contracts.SignAsClient(ctx, "missing-link", "sig", testMeta); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown link, got %v", err)
	}
	if _, err := h.contracts.SignAsClient(ctx, "missing-link", "  ", testMeta); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation for empty payload, got %v", err)
	}
}

func TestContractWorkflow_ConcurrentClientSigning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "AHS", domain.RoleEmployee, "")
	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	req, err := h.contracts.RequestSignature(ctx, employee, c.ID, testMeta)
	if err != nil {
		t.Fatalf("request signature: %v", err)
	}

	const signers = 4
	var wg sync.WaitGroup
	errs := make([]error, signers)
	for i := 0; i < signers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.contracts.SignAsClient(ctx, req.SigningLink, "sig", testMeta)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		default:
			t.Fatalf("unexpected signing error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful signing, got %d", successes)
	}
	sigs, err := h.store.Signatures().ListByContract(ctx, c.ID)
	if err != nil {
		t.Fatalf("list signatures: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected one signature row, got %d", len(sigs))
	}
}

func TestContractWorkflow_BranchIsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	jeddah := h.user(t, "JED", domain.RoleEmployee, "")
	makkah := h.user(t, "MEC", domain.RoleManager, "")
	admin := h.user(t, "HAL", domain.RoleAdmin, "")

	c, err := h.contracts.CreateContract(ctx, jeddah, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	if _, err := h.contracts.GetContract(ctx, makkah, c.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden cross-branch read, got %v", err)
	}
	if _, err := h.contracts.GetContract(ctx, admin, c.ID); err != nil {
		t.Fatalf("expected admin read, got %v", err)
	}
	_, err = h.contracts.CreateContract(ctx, jeddah, CreateContractInput{Terms: agreementTerms(), BranchID: h.branches["MEC"].ID}, testMeta)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden create in foreign branch, got %v", err)
	}

	page, err := h.contracts.ListContracts(ctx, makkah, domain.ContractFilter{}, testMeta)
	if err != nil {
		t.Fatalf("list contracts: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected Makkah manager to see no Jeddah contracts, got %d", page.Total)
	}
	before := h.auditCount(t)
	page, err = h.contracts.ListContracts(ctx, admin, domain.ContractFilter{Query: "noor"}, testMeta)
	if err != nil {
		t.Fatalf("search contracts: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected admin search hit, got %d", page.Total)
	}
	if entry := h.lastAudit(t); h.auditCount(t) != before+1 || entry.ActionType != domain.AuditSearch {
		t.Fatalf("expected search to be audited, got %+v", entry)
	}
}

func TestContractWorkflow_CreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")

	cases := map[string]func(*domain.ContractTerms){
		"zero value":     func(terms *domain.ContractTerms) { terms.Value = decimal.Zero },
		"zero duration":  func(terms *domain.ContractTerms) { terms.DurationMonths = 0 },
		"blank client":   func(terms *domain.ContractTerms) { terms.ClientName = "  " },
		"unknown type":   func(terms *domain.ContractTerms) { terms.ContractType = "lease" },
		"negative value": func(terms *domain.ContractTerms) { terms.Value = decimal.RequireFromString("-1") },
	}
	for name, mutate := range cases {
		terms := agreementTerms()
		mutate(&terms)
		if _, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: terms}, testMeta); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if got := h.auditCount(t); got != 0 {
		t.Fatalf("expected no audit rows, got %d", got)
	}
}

func TestContractWorkflow_NumberCollisionRetries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")

	var attempts []int
	h.contracts.NewNumber = func(code string, now time.Time, attempt int) (string, error) {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return code + "-2026-000001", nil
		}
		return code + "-2026-000777", nil
	}
	first, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if first.ContractNumber != "JED-2026-000001" {
		t.Fatalf("unexpected first number %s", first.ContractNumber)
	}
	attempts = nil
	second, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ContractNumber != "JED-2026-000777" {
		t.Fatalf("expected retried number, got %s", second.ContractNumber)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %v", attempts)
	}
	if got := h.auditCount(t); got != 2 {
		t.Fatalf("collisions must not leave audit rows, got %d", got)
	}
}

func TestContractWorkflow_NumberCollisionExhausted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")
	h.contracts.NumberAttempts = 3
	calls := 0
	h.contracts.NewNumber = func(code string, now time.Time, attempt int) (string, error) {
		calls++
		return code + "-2026-424242", nil
	}
	if _, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta); err != nil {
		t.Fatalf("create first: %v", err)
	}
	calls = 0
	_, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict after exhausting attempts, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestContractWorkflow_ResetToDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "sig")
	manager := h.user(t, "JED", domain.RoleManager, "sig")
	admin := h.user(t, "JED", domain.RoleAdmin, "sig")

	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.contracts.ResetToDraft(ctx, admin, c.ID, "typo", testMeta); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state resetting draft, got %v", err)
	}
	req, err := h.contracts.RequestSignature(ctx, employee, c.ID, testMeta)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := h.contracts.SignAsClient(ctx, req.SigningLink, "client", testMeta); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := h.contracts.ResetToDraft(ctx, manager, c.ID, "wrong price", testMeta); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for manager reset, got %v", err)
	}
	if _, err := h.contracts.ResetToDraft(ctx, admin, c.ID, "", testMeta); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation without reason, got %v", err)
	}

	reset, err := h.contracts.ResetToDraft(ctx, admin, c.ID, "wrong price", testMeta)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.Status != domain.StatusDraft || reset.SigningLink != "" || reset.ClientSignedAt != nil || reset.SignatureRound != 2 {
		t.Fatalf("unexpected reset contract: %+v", reset)
	}
	entry := h.lastAudit(t)
	if entry.ActionType != domain.AuditUpdate || !strings.Contains(entry.Description, "wrong price") || len(entry.OldValues) == 0 {
		t.Fatalf("unexpected reset audit entry: %+v", entry)
	}
	if _, err := h.contracts.PublicContract(ctx, req.SigningLink); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected old link to be gone, got %v", err)
	}

	// The next round signs again without colliding with round one.
	req, err = h.contracts.RequestSignature(ctx, employee, c.ID, testMeta)
	if err != nil {
		t.Fatalf("request round two: %v", err)
	}
	if _, err := h.contracts.SignAsClient(ctx, req.SigningLink, "client-2", testMeta); err != nil {
		t.Fatalf("sign round two: %v", err)
	}
	if _, err := h.contracts.ApproveAsEmployee(ctx, employee, c.ID, "", testMeta); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := h.contracts.SealAsManagement(ctx, manager, c.ID, "", testMeta); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := h.contracts.ResetToDraft(ctx, admin, c.ID, "too late", testMeta); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state resetting executed contract, got %v", err)
	}
}

func TestContractWorkflow_EditRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")
	admin := h.user(t, "MEC", domain.RoleAdmin, "")

	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	months := 24
	updated, err := h.contracts.UpdateTerms(ctx, employee, c.ID, domain.ContractPatch{DurationMonths: &months}, testMeta)
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if updated.DurationMonths != 24 {
		t.Fatalf("expected 24 months, got %d", updated.DurationMonths)
	}
	entry := h.lastAudit(t)
	if entry.ActionType != domain.AuditUpdate || len(entry.OldValues) == 0 || len(entry.NewValues) == 0 {
		t.Fatalf("expected update audit with snapshots, got %+v", entry)
	}

	zero := 0
	if _, err := h.contracts.UpdateTerms(ctx, employee, c.ID, domain.ContractPatch{DurationMonths: &zero}, testMeta); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := h.contracts.UpdateTerms(ctx, employee, c.ID, domain.ContractPatch{}, testMeta); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty patch, got %v", err)
	}

	if _, err := h.contracts.RequestSignature(ctx, employee, c.ID, testMeta); err != nil {
		t.Fatalf("request: %v", err)
	}
	name := "Al Noor Holding"
	if _, err := h.contracts.UpdateTerms(ctx, employee, c.ID, domain.ContractPatch{ClientName: &name}, testMeta); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state editing pending contract, got %v", err)
	}
	updated, err = h.contracts.UpdateTerms(ctx, admin, c.ID, domain.ContractPatch{ClientName: &name}, testMeta)
	if err != nil {
		t.Fatalf("admin edit: %v", err)
	}
	if updated.ClientName != name || updated.Status != domain.StatusPendingClientSignature {
		t.Fatalf("unexpected admin edit result: %+v", updated)
	}
}

func TestContractWorkflow_ApproveNeedsSignature(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "HAL", domain.RoleEmployee, "")
	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	req, err := h.contracts.RequestSignature(ctx, employee, c.ID, testMeta)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := h.contracts.SignAsClient(ctx, req.SigningLink, "client", testMeta); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := h.contracts.ApproveAsEmployee(ctx, employee, c.ID, "", testMeta); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation without any signature, got %v", err)
	}
	got, err := h.contracts.GetContract(ctx, employee, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusClientSigned {
		t.Fatalf("expected client_signed, got %s", got.Status)
	}
}

func TestContractWorkflow_DeleteRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")
	admin := h.user(t, "JED", domain.RoleAdmin, "")

	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.contracts.DeleteContract(ctx, employee, c.ID, testMeta); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden delete for employee, got %v", err)
	}
	if err := h.contracts.DeleteContract(ctx, admin, c.ID, testMeta); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := h.contracts.GetContract(ctx, admin, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	entry := h.lastAudit(t)
	if entry.ActionType != domain.AuditDelete || entry.RecordID == nil || *entry.RecordID != c.ID {
		t.Fatalf("unexpected delete audit entry: %+v", entry)
	}
}

func TestContractWorkflow_EmployeesActOnOwnDraftsOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	creator := h.user(t, "JED", domain.RoleEmployee, "")
	manager := h.user(t, "JED", domain.RoleManager, "")
	other, err := h.store.Users().Create(ctx, domain.User{
		Email:        "colleague@jed.example",
		PasswordHash: "unused",
		Role:         domain.RoleEmployee,
		BranchID:     h.branches["JED"].ID,
	})
	if err != nil {
		t.Fatalf("create colleague: %v", err)
	}
	colleague := other.Actor()

	c, err := h.contracts.CreateContract(ctx, creator, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := h.auditCount(t)

	one := decimal.NewFromInt(1)
	_, err = h.contracts.UpdateTerms(ctx, colleague, c.ID, domain.ContractPatch{Value: &one}, testMeta)
	var accessErr *domain.AccessError
	if !errors.As(err, &accessErr) || accessErr.Code != domain.AccessNotCreator || !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected NOT_CREATOR for colleague edit, got %v", err)
	}
	if _, err := h.contracts.RequestSignature(ctx, colleague, c.ID, testMeta); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden signature request by colleague, got %v", err)
	}
	got, err := h.contracts.GetContract(ctx, creator, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusDraft || !got.Value.Equal(decimal.RequireFromString("5000")) {
		t.Fatalf("contract changed by colleague: %+v", got)
	}
	if h.auditCount(t) != before {
		t.Fatal("refused actions must not be audited as mutations")
	}

	months := 18
	if _, err := h.contracts.UpdateTerms(ctx, manager, c.ID, domain.ContractPatch{DurationMonths: &months}, testMeta); err != nil {
		t.Fatalf("manager edit: %v", err)
	}
	if _, err := h.contracts.RequestSignature(ctx, manager, c.ID, testMeta); err != nil {
		t.Fatalf("manager request: %v", err)
	}
}
