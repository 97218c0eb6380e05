package db

import (
	"context"
	"strings"
	"time"

	"contractflow/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, c domain.Contract) (domain.Contract, error) {
	if r.db == nil {
		return domain.Contract{}, errDBUnavailable
	}
	model := contractModelFromDomain(c)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return domain.Contract{}, translateError(err, "create contract")
	}
	return contractFromModel(model), nil
}

func (r *ContractRepository) Get(ctx context.Context, id int64) (domain.Contract, error) {
	if r.db == nil {
		return domain.Contract{}, errDBUnavailable
	}
	var model ContractModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return domain.Contract{}, translateError(err, "contract")
	}
	return contractFromModel(model), nil
}

func (r *ContractRepository) GetBySigningLink(ctx context.Context, link string) (domain.Contract, error) {
	if r.db == nil {
		return domain.Contract{}, errDBUnavailable
	}
	if link == "" {
		return domain.Contract{}, domain.ErrNotFound
	}
	var model ContractModel
	if err := r.db.WithContext(ctx).Where("signing_link = ?", link).Take(&model).Error; err != nil {
		return domain.Contract{}, translateError(err, "signing link")
	}
	return contractFromModel(model), nil
}

func (r *ContractRepository) List(ctx context.Context, filter domain.ContractFilter) (domain.ContractPage, error) {
	if r.db == nil {
		return domain.ContractPage{}, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Model(&ContractModel{})
	if filter.BranchID != nil {
		q = q.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.ContractType != "" {
		q = q.Where("contract_type = ?", string(filter.ContractType))
	}
	if filter.CreatedBy != nil {
		q = q.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.ClientName != "" {
		q = q.Where("LOWER(client_name) LIKE ?", likePattern(filter.ClientName))
	}
	if filter.ContractNumber != "" {
		q = q.Where("contract_number LIKE ?", likePattern(filter.ContractNumber))
	}
	if filter.CreatedFrom != nil {
		q = q.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		q = q.Where("created_at < ?", filter.CreatedTo.UTC())
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		q = q.Where("(LOWER(client_name) LIKE ? OR LOWER(contract_number) LIKE ? OR LOWER(COALESCE(client_email, '')) LIKE ?)", pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return domain.ContractPage{}, err
	}
	var models []ContractModel
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(clampLimit(filter.Limit, 20, 200)).
		Offset(max(filter.Offset, 0)).
		Find(&models).Error; err != nil {
		return domain.ContractPage{}, err
	}
	items := make([]domain.Contract, 0, len(models))
	for _, model := range models {
		items = append(items, contractFromModel(model))
	}
	return domain.ContractPage{Items: items, Total: total}, nil
}

// Transition is the compare-and-swap at the heart of the workflow: the row
// changes only while it still has the expected status, and each workflow
// timestamp is written only if it was never set in the current round.
func (r *ContractRepository) Transition(ctx context.Context, change domain.StatusChange) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	at := change.At.UTC()
	updates := map[string]any{
		"status":     string(change.To),
		"updated_at": at,
	}
	q := r.db.WithContext(ctx).Model(&ContractModel{}).
		Where("id = ? AND status = ?", change.ContractID, string(change.From))

	if change.SigningLink != "" {
		updates["signing_link"] = change.SigningLink
		updates["link_expires_at"] = utcPtr(change.LinkExpiresAt)
	}
	if change.RequireLink != "" {
		q = q.Where("signing_link = ? AND link_expires_at > ?", change.RequireLink, at)
	}
	if change.StampClientSigned {
		updates["client_signed_at"] = at
		q = q.Where("client_signed_at IS NULL")
	}
	if change.StampEmployeeSigned {
		updates["employee_signed_at"] = at
		q = q.Where("employee_signed_at IS NULL")
	}
	if change.StampManagementApproved {
		updates["management_approved_at"] = at
		q = q.Where("management_approved_at IS NULL")
	}
	if change.Lock {
		updates["locked_at"] = at
		q = q.Where("locked_at IS NULL")
	}
	if change.ResetWorkflow {
		updates["signing_link"] = nil
		updates["link_expires_at"] = nil
		updates["client_signed_at"] = nil
		updates["employee_signed_at"] = nil
		updates["management_approved_at"] = nil
		updates["signature_round"] = gorm.Expr("signature_round + 1")
		q = q.Where("locked_at IS NULL")
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, translateError(res.Error, "transition contract")
	}
	return res.RowsAffected == 1, nil
}

func (r *ContractRepository) UpdateTerms(ctx context.Context, id int64, expected domain.ContractStatus, terms domain.ContractTerms, at time.Time) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&ContractModel{}).
		Where("id = ? AND status = ? AND locked_at IS NULL", id, string(expected)).
		Updates(map[string]any{
			"client_name":          terms.ClientName,
			"client_phone":         stringPtrIfNotEmpty(terms.ClientPhone),
			"client_email":         stringPtrIfNotEmpty(terms.ClientEmail),
			"contract_type":        string(terms.ContractType),
			"value":                terms.Value,
			"duration_months":      terms.DurationMonths,
			"services_description": stringPtrIfNotEmpty(terms.ServicesDescription),
			"terms_and_conditions": stringPtrIfNotEmpty(terms.TermsAndConditions),
			"updated_at":           at.UTC(),
		})
	if res.Error != nil {
		return false, translateError(res.Error, "update contract")
	}
	return res.RowsAffected == 1, nil
}

func (r *ContractRepository) Delete(ctx context.Context, id int64) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Where("id = ? AND locked_at IS NULL", id).Delete(&ContractModel{})
	if res.Error != nil {
		return translateError(res.Error, "delete contract")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ContractRepository) ListExpiring(ctx context.Context, status domain.ContractStatus) ([]domain.Contract, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ContractModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND management_approved_at IS NOT NULL", string(status)).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Contract, 0, len(models))
	for _, model := range models {
		out = append(out, contractFromModel(model))
	}
	return out, nil
}

func likePattern(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.NewReplacer("%", "", "_", "").Replace(value)
	return "%" + value + "%"
}

func contractModelFromDomain(c domain.Contract) ContractModel {
	round := c.SignatureRound
	if round <= 0 {
		round = 1
	}
	return ContractModel{
		ID:                   c.ID,
		ContractNumber:       c.ContractNumber,
		ClientName:           c.ClientName,
		ClientPhone:          stringPtrIfNotEmpty(c.ClientPhone),
		ClientEmail:          stringPtrIfNotEmpty(c.ClientEmail),
		ContractType:         string(c.ContractType),
		BranchID:             c.BranchID,
		Value:                c.Value,
		DurationMonths:       c.DurationMonths,
		Status:               string(c.Status),
		SigningLink:          stringPtrIfNotEmpty(c.SigningLink),
		LinkExpiresAt:        utcPtr(c.LinkExpiresAt),
		LockedAt:             utcPtr(c.LockedAt),
		ClientSignedAt:       utcPtr(c.ClientSignedAt),
		EmployeeSignedAt:     utcPtr(c.EmployeeSignedAt),
		ManagementApprovedAt: utcPtr(c.ManagementApprovedAt),
		SignatureRound:       round,
		CreatedBy:            c.CreatedBy,
		CreatedAt:            c.CreatedAt.UTC(),
		UpdatedAt:            c.UpdatedAt.UTC(),
		ServicesDescription:  stringPtrIfNotEmpty(c.ServicesDescription),
		TermsAndConditions:   stringPtrIfNotEmpty(c.TermsAndConditions),
	}
}

func contractFromModel(m ContractModel) domain.Contract {
	return domain.Contract{
		ID:                   m.ID,
		ContractNumber:       m.ContractNumber,
		ClientName:           m.ClientName,
		ClientPhone:          stringValue(m.ClientPhone),
		ClientEmail:          stringValue(m.ClientEmail),
		ContractType:         domain.ContractType(m.ContractType),
		BranchID:             m.BranchID,
		CreatedBy:            m.CreatedBy,
		Value:                m.Value,
		DurationMonths:       m.DurationMonths,
		Status:               domain.ContractStatus(m.Status),
		SigningLink:          stringValue(m.SigningLink),
		LinkExpiresAt:        utcPtr(m.LinkExpiresAt),
		ClientSignedAt:       utcPtr(m.ClientSignedAt),
		EmployeeSignedAt:     utcPtr(m.EmployeeSignedAt),
		ManagementApprovedAt: utcPtr(m.ManagementApprovedAt),
		LockedAt:             utcPtr(m.LockedAt),
		SignatureRound:       m.SignatureRound,
		ServicesDescription:  stringValue(m.ServicesDescription),
		TermsAndConditions:   stringValue(m.TermsAndConditions),
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
	}
}
