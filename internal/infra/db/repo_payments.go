package db

import (
	"context"
	"time"

	"contractflow/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	if r.db == nil {
		return domain.Payment{}, errDBUnavailable
	}
	model := paymentModelFromDomain(p)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return domain.Payment{}, translateError(err, "create payment")
	}
	return paymentFromModel(model), nil
}

func (r *PaymentRepository) Get(ctx context.Context, id int64) (domain.Payment, error) {
	if r.db == nil {
		return domain.Payment{}, errDBUnavailable
	}
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return domain.Payment{}, translateError(err, "payment")
	}
	return paymentFromModel(model), nil
}

func (r *PaymentRepository) ListByContract(ctx context.Context, contractID int64) ([]domain.Payment, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []PaymentModel
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("due_date ASC").Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return paymentsFromModels(models), nil
}

func (r *PaymentRepository) ListUnpaidDueBefore(ctx context.Context, day time.Time, status domain.PaymentStatus) ([]domain.Payment, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []PaymentModel
	if err := r.db.WithContext(ctx).
		Where("paid_date IS NULL AND status = ? AND due_date < ?", string(status), domain.Date(day)).
		Order("due_date ASC").Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return paymentsFromModels(models), nil
}

func (r *PaymentRepository) ListUnpaidDueBetween(ctx context.Context, from, to time.Time) ([]domain.Payment, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []PaymentModel
	if err := r.db.WithContext(ctx).
		Where("paid_date IS NULL AND due_date >= ? AND due_date <= ?", domain.Date(from), domain.Date(to)).
		Order("due_date ASC").Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return paymentsFromModels(models), nil
}

func (r *PaymentRepository) MarkPaid(ctx context.Context, id int64, paidDate time.Time, method domain.PaymentMethod) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	updates := map[string]any{
		"paid_date":  domain.Date(paidDate),
		"status":     string(domain.PaymentPaid),
		"updated_at": time.Now().UTC(),
	}
	if method != "" {
		updates["payment_method"] = string(method)
	}
	res := r.db.WithContext(ctx).Model(&PaymentModel{}).
		Where("id = ? AND paid_date IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return false, translateError(res.Error, "mark payment paid")
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentRepository) SetStatus(ctx context.Context, id int64, from, to domain.PaymentStatus) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&PaymentModel{}).
		Where("id = ? AND status = ? AND paid_date IS NULL", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, translateError(res.Error, "update payment status")
	}
	return res.RowsAffected == 1, nil
}

func paymentModelFromDomain(p domain.Payment) PaymentModel {
	var method *string
	if p.PaymentMethod != "" {
		v := string(p.PaymentMethod)
		method = &v
	}
	var paid *time.Time
	if p.PaidDate != nil {
		d := domain.Date(*p.PaidDate)
		paid = &d
	}
	status := p.Status
	if status == "" {
		status = domain.PaymentPending
	}
	return PaymentModel{
		ID:            p.ID,
		ContractID:    p.ContractID,
		Amount:        p.Amount,
		DueDate:       domain.Date(p.DueDate),
		PaidDate:      paid,
		Status:        string(status),
		PaymentMethod: method,
		Notes:         stringPtrIfNotEmpty(p.Notes),
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

func paymentFromModel(m PaymentModel) domain.Payment {
	return domain.Payment{
		ID:            m.ID,
		ContractID:    m.ContractID,
		Amount:        m.Amount,
		DueDate:       domain.Date(m.DueDate),
		PaidDate:      utcPtr(m.PaidDate),
		Status:        domain.PaymentStatus(m.Status),
		PaymentMethod: domain.PaymentMethod(stringValue(m.PaymentMethod)),
		Notes:         stringValue(m.Notes),
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

func paymentsFromModels(models []PaymentModel) []domain.Payment {
	out := make([]domain.Payment, 0, len(models))
	for _, model := range models {
		out = append(out, paymentFromModel(model))
	}
	return out
}
