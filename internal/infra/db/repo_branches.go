package db

import (
	"context"
	"strings"

	"contractflow/internal/domain"

	"gorm.io/gorm"
)

type BranchRepository struct {
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

func (r *BranchRepository) Create(ctx context.Context, b domain.Branch) (domain.Branch, error) {
	if r.db == nil {
		return domain.Branch{}, errDBUnavailable
	}
	model := BranchModel{
		Code:      strings.ToUpper(strings.TrimSpace(b.Code)),
		Name:      b.Name,
		Address:   stringPtrIfNotEmpty(b.Address),
		CreatedAt: b.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Branch{}, translateError(err, "create branch")
	}
	return branchFromModel(model), nil
}

func (r *BranchRepository) Get(ctx context.Context, id int64) (domain.Branch, error) {
	if r.db == nil {
		return domain.Branch{}, errDBUnavailable
	}
	var model BranchModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return domain.Branch{}, translateError(err, "branch")
	}
	return branchFromModel(model), nil
}

func (r *BranchRepository) List(ctx context.Context) ([]domain.Branch, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []BranchModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Branch, 0, len(models))
	for _, model := range models {
		out = append(out, branchFromModel(model))
	}
	return out, nil
}

func branchFromModel(m BranchModel) domain.Branch {
	return domain.Branch{
		ID:        m.ID,
		Code:      m.Code,
		Name:      m.Name,
		Address:   stringValue(m.Address),
		CreatedAt: m.CreatedAt.UTC(),
	}
}
