package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contractflow/internal/domain"
	"contractflow/pkg/logger"

	"github.com/shopspring/decimal"
)

// PaymentService tracks installments. Stored statuses are a cache: every
// read derives the status from the due and paid dates.
type PaymentService struct {
	Store domain.Store
	Guard domain.AccessGuard
	Clock Clock
}

type AddPaymentInput struct {
	Amount        decimal.Decimal
	DueDate       time.Time
	PaymentMethod domain.PaymentMethod
	Notes         string
}

type MarkPaidInput struct {
	// PaidDate defaults to today.
	PaidDate      *time.Time
	PaymentMethod domain.PaymentMethod
}

type SweepResult struct {
	Scanned  int `json:"scanned"`
	Affected int `json:"affected"`
}

func (s *PaymentService) AddPayment(ctx context.Context, actor domain.Actor, contractID int64, in AddPaymentInput, meta domain.RequestMeta) (domain.Payment, error) {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return domain.Payment{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpPaymentWrite, c.BranchID); err != nil {
		return domain.Payment{}, err
	}
	if !in.Amount.IsPositive() {
		return domain.Payment{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if in.DueDate.IsZero() {
		return domain.Payment{}, fmt.Errorf("%w: due_date is required", domain.ErrValidation)
	}
	if !in.PaymentMethod.Valid() {
		return domain.Payment{}, fmt.Errorf("%w: unknown payment_method %q", domain.ErrValidation, in.PaymentMethod)
	}
	now := nowFrom(s.Clock)

	var created domain.Payment
	err = s.Store.WithinTx(ctx, func(tx domain.Repositories) error {
		p, err := tx.Payments().Create(ctx, domain.Payment{
			ContractID:    c.ID,
			Amount:        in.Amount.Round(2),
			DueDate:       domain.Date(in.DueDate),
			Status:        domain.PaymentPending,
			PaymentMethod: in.PaymentMethod,
			Notes:         strings.TrimSpace(in.Notes),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return err
		}
		created = p.WithDerivedStatus(now)
		return recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditCreate,
			Table:       domain.TablePayments,
			RecordID:    int64Ptr(p.ID),
			BranchID:    int64Ptr(c.BranchID),
			New:         created.Snapshot(),
			Description: "payment scheduled for " + c.ContractNumber,
			Meta:        meta,
			At:          now,
		})
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return created, nil
}

func (s *PaymentService) MarkPaid(ctx context.Context, actor domain.Actor, paymentID int64, in MarkPaidInput, meta domain.RequestMeta) (domain.Payment, error) {
	p, err := s.Store.Payments().Get(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	c, err := s.Store.Contracts().Get(ctx, p.ContractID)
	if err != nil {
		return domain.Payment{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpPaymentWrite, c.BranchID); err != nil {
		return domain.Payment{}, err
	}
	if !in.PaymentMethod.Valid() {
		return domain.Payment{}, fmt.Errorf("%w: unknown payment_method %q", domain.ErrValidation, in.PaymentMethod)
	}
	now := nowFrom(s.Clock)
	paidDate := now
	if in.PaidDate != nil {
		paidDate = *in.PaidDate
	}

	var updated domain.Payment
	err = s.Store.WithinTx(ctx, func(tx domain.Repositories) error {
		ok, err := tx.Payments().MarkPaid(ctx, p.ID, paidDate, in.PaymentMethod)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: payment is already paid", domain.ErrConflict)
		}
		after, err := tx.Payments().Get(ctx, p.ID)
		if err != nil {
			return err
		}
		updated = after.WithDerivedStatus(now)
		return recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditUpdate,
			Table:       domain.TablePayments,
			RecordID:    int64Ptr(p.ID),
			BranchID:    int64Ptr(c.BranchID),
			Old:         p.WithDerivedStatus(now).Snapshot(),
			New:         updated.Snapshot(),
			Description: "payment recorded for " + c.ContractNumber,
			Meta:        meta,
			At:          now,
		})
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return updated, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, actor domain.Actor, contractID int64) ([]domain.Payment, error) {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.Guard, actor, domain.OpContractView, c.BranchID); err != nil {
		return nil, err
	}
	payments, err := s.Store.Payments().ListByContract(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	now := nowFrom(s.Clock)
	for i := range payments {
		payments[i] = payments[i].WithDerivedStatus(now)
	}
	return payments, nil
}

// SyncOverdue persists the overdue status of payments whose due date has
// passed and tells each contract creator once.
func (s *PaymentService) SyncOverdue(ctx context.Context) (SweepResult, error) {
	now := nowFrom(s.Clock)
	due, err := s.Store.Payments().ListUnpaidDueBefore(ctx, now, domain.PaymentPending)
	if err != nil {
		return SweepResult{}, err
	}
	result := SweepResult{Scanned: len(due)}
	for _, p := range due {
		changed := false
		err := s.Store.WithinTx(ctx, func(tx domain.Repositories) error {
			ok, err := tx.Payments().SetStatus(ctx, p.ID, domain.PaymentPending, domain.PaymentOverdue)
			if err != nil || !ok {
				return err
			}
			c, err := tx.Contracts().Get(ctx, p.ContractID)
			if err != nil {
				return err
			}
			after := p
			after.Status = domain.PaymentOverdue
			if err := recordAudit(ctx, tx.AuditLogs(), auditInput{
				Action:      domain.AuditUpdate,
				Table:       domain.TablePayments,
				RecordID:    int64Ptr(p.ID),
				BranchID:    int64Ptr(c.BranchID),
				Old:         p.Snapshot(),
				New:         after.Snapshot(),
				Description: "payment overdue",
				At:          now,
			}); err != nil {
				return err
			}
			changed = true
			return notify(ctx, tx, domain.Notification{
				UserID:     c.CreatedBy,
				Type:       domain.NotifyPaymentOverdue,
				Title:      "Payment overdue",
				Message:    fmt.Sprintf("Payment of %s on contract %s was due %s.", p.Amount.StringFixed(2), c.ContractNumber, p.DueDate.Format(time.DateOnly)),
				ContractID: int64Ptr(c.ID),
				PaymentID:  int64Ptr(p.ID),
				CreatedAt:  now,
			})
		})
		if err != nil {
			return result, fmt.Errorf("payment %d: %w", p.ID, err)
		}
		if changed {
			result.Affected++
		}
	}
	logger.Info(ctx, "overdue payments synced", "scanned", result.Scanned, "affected", result.Affected)
	return result, nil
}

// RemindDue notifies contract creators about unpaid payments falling due
// within the window. Each payment is reminded at most once.
func (s *PaymentService) RemindDue(ctx context.Context, within time.Duration) (SweepResult, error) {
	now := nowFrom(s.Clock)
	upcoming, err := s.Store.Payments().ListUnpaidDueBetween(ctx, now, now.Add(within))
	if err != nil {
		return SweepResult{}, err
	}
	result := SweepResult{Scanned: len(upcoming)}
	for _, p := range upcoming {
		c, err := s.Store.Contracts().Get(ctx, p.ContractID)
		if err != nil {
			return result, err
		}
		exists, err := s.Store.Notifications().Exists(ctx, c.CreatedBy, domain.NotifyPaymentDue, int64Ptr(c.ID), int64Ptr(p.ID))
		if err != nil {
			return result, err
		}
		if exists {
			continue
		}
		if err := notify(ctx, s.Store, domain.Notification{
			UserID:     c.CreatedBy,
			Type:       domain.NotifyPaymentDue,
			Title:      "Payment due",
			Message:    fmt.Sprintf("Payment of %s on contract %s is due %s.", p.Amount.StringFixed(2), c.ContractNumber, p.DueDate.Format(time.DateOnly)),
			ContractID: int64Ptr(c.ID),
			PaymentID:  int64Ptr(p.ID),
			CreatedAt:  now,
		}); err != nil {
			return result, err
		}
		result.Affected++
	}
	logger.Info(ctx, "payment reminders sent", "scanned", result.Scanned, "affected", result.Affected)
	return result, nil
}
