package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contractflow/internal/domain"
	cryptoinfra "contractflow/internal/infra/crypto"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append assigns the next global sequence number, links the entry to its
// predecessor and inserts it. When r is bound to an open transaction the
// entry commits or rolls back with the caller's writes.
func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditLog) (domain.AuditLog, error) {
	if r.db == nil {
		return domain.AuditLog{}, errDBUnavailable
	}
	if !entry.ActionType.Valid() {
		return domain.AuditLog{}, fmt.Errorf("unknown action_type %q: %w", entry.ActionType, domain.ErrValidation)
	}
	if entry.TableName == "" {
		return domain.AuditLog{}, fmt.Errorf("table_name is required: %w", domain.ErrValidation)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Microsecond)

	var err error
	if entry.OldValues, err = canonicalOrNil(entry.OldValues); err != nil {
		return domain.AuditLog{}, fmt.Errorf("old_values: %w", err)
	}
	if entry.NewValues, err = canonicalOrNil(entry.NewValues); err != nil {
		return domain.AuditLog{}, fmt.Errorf("new_values: %w", err)
	}
	if entry.PayloadHash, err = cryptoinfra.AuditPayloadHash(entry); err != nil {
		return domain.AuditLog{}, err
	}

	var out domain.AuditLog
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, prevHash, err := nextAuditSeq(ctx, tx)
		if err != nil {
			return err
		}
		entry.Seq = seq
		entry.PrevHash = prevHash
		if entry.EntryHash, err = cryptoinfra.AuditEntryHash(entry); err != nil {
			return err
		}
		model := auditLogModelFromDomain(entry)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		entry.ID = model.ID
		out = entry
		return nil
	})
	if err != nil {
		return domain.AuditLog{}, err
	}
	return out, nil
}

func (r *AuditLogRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Model(&AuditLogModel{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.BranchID != nil {
		q = q.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.RecordID != nil {
		q = q.Where("record_id = ?", *filter.RecordID)
	}
	if filter.TableName != "" {
		q = q.Where("table_name = ?", filter.TableName)
	}
	if filter.ActionType != "" {
		q = q.Where("action_type = ?", string(filter.ActionType))
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", filter.Since.UTC())
	}
	if filter.Until != nil {
		q = q.Where("created_at < ?", filter.Until.UTC())
	}
	var models []AuditLogModel
	if err := q.Order("seq DESC").
		Limit(clampLimit(filter.Limit, 50, 500)).
		Offset(max(filter.Offset, 0)).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return auditLogsFromModels(models)
}

// ListChain returns every entry in sequence order.
func (r *AuditLogRepository) ListChain(ctx context.Context) ([]domain.AuditLog, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AuditLogModel
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return auditLogsFromModels(models)
}

// nextAuditSeq bumps the single counter row first so that concurrent
// appenders queue on its row lock before reading the previous hash.
func nextAuditSeq(ctx context.Context, tx *gorm.DB) (int64, string, error) {
	res := tx.WithContext(ctx).Exec("UPDATE audit_seq SET seq = seq + 1 WHERE id = 1")
	if res.Error != nil {
		return 0, "", res.Error
	}
	if res.RowsAffected == 0 {
		return 0, "", errors.New("audit sequence is not initialized")
	}
	var seq int64
	if err := tx.WithContext(ctx).Raw("SELECT seq FROM audit_seq WHERE id = 1").Scan(&seq).Error; err != nil {
		return 0, "", err
	}

	prevHash := cryptoinfra.ZeroHash
	if seq > 1 {
		var prev AuditLogModel
		if err := tx.WithContext(ctx).Where("seq = ?", seq-1).Take(&prev).Error; err != nil {
			return 0, "", fmt.Errorf("load audit seq %d: %w", seq-1, err)
		}
		prevHash = prev.EntryHash
	}
	if prevHash == "" {
		return 0, "", fmt.Errorf("missing entry hash for audit seq %d", seq-1)
	}
	return seq, prevHash, nil
}

func canonicalOrNil(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	canonical, err := cryptoinfra.CanonicalizeJSON(raw)
	if err != nil {
		return nil, err
	}
	if string(canonical) == "null" {
		return nil, nil
	}
	return canonical, nil
}

func auditLogModelFromDomain(entry domain.AuditLog) AuditLogModel {
	model := AuditLogModel{
		Seq:         entry.Seq,
		UserID:      entry.UserID,
		ActionType:  string(entry.ActionType),
		Table:       entry.TableName,
		RecordID:    entry.RecordID,
		BranchID:    entry.BranchID,
		IPAddress:   stringPtrIfNotEmpty(entry.IPAddress),
		UserAgent:   stringPtrIfNotEmpty(entry.UserAgent),
		Description: stringPtrIfNotEmpty(entry.Description),
		PayloadHash: entry.PayloadHash,
		PrevHash:    entry.PrevHash,
		EntryHash:   entry.EntryHash,
		CreatedAt:   entry.CreatedAt,
	}
	if len(entry.OldValues) > 0 {
		model.OldValues = datatypes.JSON(entry.OldValues)
	}
	if len(entry.NewValues) > 0 {
		model.NewValues = datatypes.JSON(entry.NewValues)
	}
	return model
}

func auditLogsFromModels(models []AuditLogModel) ([]domain.AuditLog, error) {
	out := make([]domain.AuditLog, 0, len(models))
	for _, model := range models {
		oldValues, err := canonicalOrNil(json.RawMessage(model.OldValues))
		if err != nil {
			return nil, fmt.Errorf("audit seq %d old_values: %w", model.Seq, err)
		}
		newValues, err := canonicalOrNil(json.RawMessage(model.NewValues))
		if err != nil {
			return nil, fmt.Errorf("audit seq %d new_values: %w", model.Seq, err)
		}
		out = append(out, domain.AuditLog{
			ID:          model.ID,
			Seq:         model.Seq,
			UserID:      model.UserID,
			ActionType:  domain.AuditAction(model.ActionType),
			TableName:   model.Table,
			RecordID:    model.RecordID,
			OldValues:   oldValues,
			NewValues:   newValues,
			BranchID:    model.BranchID,
			IPAddress:   stringValue(model.IPAddress),
			UserAgent:   stringValue(model.UserAgent),
			Description: stringValue(model.Description),
			PayloadHash: model.PayloadHash,
			PrevHash:    model.PrevHash,
			EntryHash:   model.EntryHash,
			CreatedAt:   model.CreatedAt.UTC(),
		})
	}
	return out, nil
}
