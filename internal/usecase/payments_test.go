package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"contractflow/internal/domain"

	"github.com/shopspring/decimal"
)

func TestPayments_DerivedStatusAndMarkPaid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")
	outsider := h.user(t, "AHS", domain.RoleEmployee, "")

	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	p, err := h.payments.AddPayment(ctx, employee, c.ID, AddPaymentInput{
		Amount:        decimal.RequireFromString("1250.005"),
		DueDate:       time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC),
		PaymentMethod: domain.PaymentBankTransfer,
	}, testMeta)
	if err != nil {
		t.Fatalf("add payment: %v", err)
	}
	if p.Status != domain.PaymentPending || !p.DueDate.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected payment: %+v", p)
	}
	if p.Amount.StringFixed(2) != "1250.01" {
		t.Fatalf("expected amount rounded to 2 places, got %s", p.Amount)
	}

	// Still pending on the due date itself.
	h.clock.Advance(4 * 24 * time.Hour)
	list, err := h.payments.ListPayments(ctx, employee, c.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(list) != 1 || list[0].Status != domain.PaymentPending {
		t.Fatalf("expected pending on due date, got %+v", list)
	}

	h.clock.Advance(24 * time.Hour)
	list, err = h.payments.ListPayments(ctx, employee, c.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if list[0].Status != domain.PaymentOverdue {
		t.Fatalf("expected derived overdue, got %s", list[0].Status)
	}

	if _, err := h.payments.MarkPaid(ctx, outsider, p.ID, MarkPaidInput{}, testMeta); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for other branch, got %v", err)
	}
	paid, err := h.payments.MarkPaid(ctx, employee, p.ID, MarkPaidInput{PaymentMethod: domain.PaymentCash}, testMeta)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != domain.PaymentPaid || paid.PaidDate == nil || paid.PaymentMethod != domain.PaymentCash {
		t.Fatalf("unexpected paid payment: %+v", paid)
	}
	if _, err := h.payments.MarkPaid(ctx, employee, p.ID, MarkPaidInput{}, testMeta); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict paying twice, got %v", err)
	}
	entry := h.lastAudit(t)
	if entry.TableName != domain.TablePayments || entry.ActionType != domain.AuditUpdate {
		t.Fatalf("unexpected payment audit entry: %+v", entry)
	}
}

func TestPayments_AddValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "MEC", domain.RoleEmployee, "")
	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]AddPaymentInput{
		"zero amount":    {Amount: decimal.Zero, DueDate: due},
		"missing due":    {Amount: decimal.RequireFromString("10")},
		"unknown method": {Amount: decimal.RequireFromString("10"), DueDate: due, PaymentMethod: "barter"},
	}
	for name, in := range cases {
		if _, err := h.payments.AddPayment(ctx, employee, c.ID, in, testMeta); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, err := h.payments.AddPayment(ctx, employee, 9999, cases["zero amount"], testMeta); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown contract, got %v", err)
	}
}

func TestPayments_SyncOverdueIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "JED", domain.RoleEmployee, "")
	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	for _, day := range []int{2, 20} {
		if _, err := h.payments.AddPayment(ctx, employee, c.ID, AddPaymentInput{
			Amount:  decimal.RequireFromString("100"),
			DueDate: time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
		}, testMeta); err != nil {
			t.Fatalf("add payment: %v", err)
		}
	}

	h.clock.Advance(3 * 24 * time.Hour)
	res, err := h.payments.SyncOverdue(ctx)
	if err != nil {
		t.Fatalf("sync overdue: %v", err)
	}
	if res.Scanned != 1 || res.Affected != 1 {
		t.Fatalf("expected one overdue payment, got %+v", res)
	}
	before := h.auditCount(t)
	res, err = h.payments.SyncOverdue(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if res.Affected != 0 || h.auditCount(t) != before {
		t.Fatalf("expected idempotent second sync, got %+v", res)
	}
	entry := h.lastAudit(t)
	if entry.UserID != nil || entry.Description != "payment overdue" {
		t.Fatalf("expected system audit entry, got %+v", entry)
	}

	inbox, err := h.notices.List(ctx, employee, true)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(inbox) != 1 || inbox[0].Type != domain.NotifyPaymentOverdue || inbox[0].PaymentID == nil {
		t.Fatalf("expected one overdue notice, got %+v", inbox)
	}
}

func TestPayments_RemindDueOncePerPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	employee := h.user(t, "HAL", domain.RoleEmployee, "")
	c, err := h.contracts.CreateContract(ctx, employee, CreateContractInput{Terms: agreementTerms()}, testMeta)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	soon, err := h.payments.AddPayment(ctx, employee, c.ID, AddPaymentInput{
		Amount:  decimal.RequireFromString("500"),
		DueDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	}, testMeta)
	if err != nil {
		t.Fatalf("add payment: %v", err)
	}
	if _, err := h.payments.AddPayment(ctx, employee, c.ID, AddPaymentInput{
		Amount:  decimal.RequireFromString("500"),
		DueDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}, testMeta); err != nil {
		t.Fatalf("add payment: %v", err)
	}

	for i := 0; i < 2; i++ {
		res, err := h.payments.RemindDue(ctx, 7*24*time.Hour)
		if err != nil {
			t.Fatalf("remind: %v", err)
		}
		want := 1
		if i == 1 {
			want = 0
		}
		if res.Scanned != 1 || res.Affected != want {
			t.Fatalf("run %d: unexpected result %+v", i, res)
		}
	}
	inbox, err := h.notices.List(ctx, employee, false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(inbox) != 1 || inbox[0].PaymentID == nil || *inbox[0].PaymentID != soon.ID {
		t.Fatalf("expected a single reminder for the near payment, got %+v", inbox)
	}
}
