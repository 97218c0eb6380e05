package db

import (
	"context"

	"contractflow/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SignatureRepository struct {
	db *gorm.DB
}

func NewSignatureRepository(db *gorm.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

// Create inserts a signature. A second signature of the same type in the
// same round violates ux_signatures_contract_type_round and surfaces as
// domain.ErrConflict.
func (r *SignatureRepository) Create(ctx context.Context, s domain.Signature) (domain.Signature, error) {
	if r.db == nil {
		return domain.Signature{}, errDBUnavailable
	}
	model := SignatureModel{
		ContractID:    s.ContractID,
		UserID:        s.UserID,
		SignatureType: string(s.SignatureType),
		Round:         s.Round,
		SignatureData: s.SignatureData,
		SignedAt:      s.SignedAt.UTC(),
		IPAddress:     stringPtrIfNotEmpty(s.IPAddress),
	}
	if model.Round <= 0 {
		model.Round = 1
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return domain.Signature{}, translateError(err, "create signature")
	}
	return signatureFromModel(model), nil
}

func (r *SignatureRepository) ListByContract(ctx context.Context, contractID int64) ([]domain.Signature, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SignatureModel
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("round ASC").Order("signed_at ASC").Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Signature, 0, len(models))
	for _, model := range models {
		out = append(out, signatureFromModel(model))
	}
	return out, nil
}

func signatureFromModel(m SignatureModel) domain.Signature {
	return domain.Signature{
		ID:            m.ID,
		ContractID:    m.ContractID,
		UserID:        m.UserID,
		SignatureType: domain.SignatureType(m.SignatureType),
		SignatureData: m.SignatureData,
		Round:         m.Round,
		SignedAt:      m.SignedAt.UTC(),
		IPAddress:     stringValue(m.IPAddress),
	}
}
