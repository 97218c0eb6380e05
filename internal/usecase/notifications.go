package usecase

import (
	"context"
	"fmt"
	"time"

	"contractflow/internal/domain"
	"contractflow/pkg/logger"
)

type NotificationService struct {
	Store domain.Store
	Clock Clock
}

func (s *NotificationService) List(ctx context.Context, actor domain.Actor, unreadOnly bool) ([]domain.Notification, error) {
	return s.Store.Notifications().ListByUser(ctx, actor.UserID, unreadOnly)
}

// MarkRead flags one of the actor's notifications. Notifications owned by
// someone else are reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, notificationID int64) error {
	ok, err := s.Store.Notifications().MarkRead(ctx, notificationID, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %d: %w", notificationID, domain.ErrNotFound)
	}
	return nil
}

// NotifyExpiring warns creators of executed contracts whose term, counted
// from the management seal, ends within the window.
func (s *NotificationService) NotifyExpiring(ctx context.Context, within time.Duration) (SweepResult, error) {
	now := nowFrom(s.Clock)
	horizon := now.Add(within)
	contracts, err := s.Store.Contracts().ListExpiring(ctx, domain.StatusFullyExecuted)
	if err != nil {
		return SweepResult{}, err
	}
	result := SweepResult{Scanned: len(contracts)}
	for _, c := range contracts {
		end, ok := ContractEndDate(c)
		if !ok || end.Before(now) || end.After(horizon) {
			continue
		}
		exists, err := s.Store.Notifications().Exists(ctx, c.CreatedBy, domain.NotifyContractExpiring, int64Ptr(c.ID), nil)
		if err != nil {
			return result, err
		}
		if exists {
			continue
		}
		if err := notify(ctx, s.Store, domain.Notification{
			UserID:     c.CreatedBy,
			Type:       domain.NotifyContractExpiring,
			Title:      "Contract expiring",
			Message:    fmt.Sprintf("Contract %s with %s ends on %s.", c.ContractNumber, c.ClientName, end.Format(time.DateOnly)),
			ContractID: int64Ptr(c.ID),
			CreatedAt:  now,
		}); err != nil {
			return result, err
		}
		result.Affected++
	}
	logger.Info(ctx, "expiring contracts notified", "scanned", result.Scanned, "affected", result.Affected)
	return result, nil
}

// ContractEndDate is the management seal date plus the contract duration.
func ContractEndDate(c domain.Contract) (time.Time, bool) {
	if c.ManagementApprovedAt == nil || c.DurationMonths <= 0 {
		return time.Time{}, false
	}
	return c.ManagementApprovedAt.UTC().AddDate(0, c.DurationMonths, 0), true
}
