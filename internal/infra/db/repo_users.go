package db

import (
	"context"
	"strings"

	"contractflow/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if r.db == nil {
		return domain.User{}, errDBUnavailable
	}
	model := UserModel{
		Email:         normalizeEmail(u.Email),
		PasswordHash:  u.PasswordHash,
		Role:          string(u.Role),
		BranchID:      u.BranchID,
		SignatureData: stringPtrIfNotEmpty(u.SignatureData),
		CreatedAt:     u.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return domain.User{}, translateError(err, "create user")
	}
	return userFromModel(model), nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (domain.User, error) {
	if r.db == nil {
		return domain.User{}, errDBUnavailable
	}
	var model UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return domain.User{}, translateError(err, "user")
	}
	return userFromModel(model), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if r.db == nil {
		return domain.User{}, errDBUnavailable
	}
	var model UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&model).Error; err != nil {
		return domain.User{}, translateError(err, "user")
	}
	return userFromModel(model), nil
}

func (r *UserRepository) ListByBranchRole(ctx context.Context, branchID int64, role domain.Role) ([]domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []UserModel
	if err := r.db.WithContext(ctx).
		Where("branch_id = ? AND role = ?", branchID, string(role)).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(models))
	for _, model := range models {
		out = append(out, userFromModel(model))
	}
	return out, nil
}

func (r *UserRepository) SetSignature(ctx context.Context, id int64, data string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", id).
		Update("signature_data", stringPtrIfNotEmpty(data))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&UserModel{}).Where("role = ?", string(role)).Count(&count).Error
	return count, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:            m.ID,
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		Role:          domain.Role(m.Role),
		BranchID:      m.BranchID,
		SignatureData: stringValue(m.SignatureData),
		CreatedAt:     m.CreatedAt.UTC(),
	}
}
