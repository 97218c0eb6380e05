package db

import (
	"context"

	"contractflow/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if r.db == nil {
		return domain.Notification{}, errDBUnavailable
	}
	model := NotificationModel{
		UserID:     n.UserID,
		Type:       string(n.Type),
		Title:      n.Title,
		Message:    n.Message,
		ContractID: n.ContractID,
		PaymentID:  n.PaymentID,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return domain.Notification{}, translateError(err, "create notification")
	}
	return notificationFromModel(model), nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]domain.Notification, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var models []NotificationModel
	if err := q.Order("created_at DESC").Order("id DESC").Limit(200).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(models))
	for _, model := range models {
		out = append(out, notificationFromModel(model))
	}
	return out, nil
}

// MarkRead flags a notification owned by userID. It reports false when no
// such notification exists for that user.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *NotificationRepository) Exists(ctx context.Context, userID int64, kind domain.NotificationType, contractID, paymentID *int64) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Model(&NotificationModel{}).
		Where("user_id = ? AND type = ?", userID, string(kind))
	if contractID != nil {
		q = q.Where("contract_id = ?", *contractID)
	} else {
		q = q.Where("contract_id IS NULL")
	}
	if paymentID != nil {
		q = q.Where("payment_id = ?", *paymentID)
	} else {
		q = q.Where("payment_id IS NULL")
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func notificationFromModel(m NotificationModel) domain.Notification {
	return domain.Notification{
		ID:         m.ID,
		UserID:     m.UserID,
		Type:       domain.NotificationType(m.Type),
		Title:      m.Title,
		Message:    m.Message,
		ContractID: m.ContractID,
		PaymentID:  m.PaymentID,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}
