package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contractflow/internal/domain"
	"contractflow/pkg/logger"
)

const DefaultExportURLTTL = 15 * time.Minute

// ExportService writes contract dossiers to object storage.
type ExportService struct {
	Store   domain.Store
	Guard   domain.AccessGuard
	Objects ObjectStore
	URLTTL  time.Duration
	Clock   Clock
}

type ExportResult struct {
	ObjectKey string    `json:"object_key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type dossier struct {
	Version     string              `json:"version"`
	GeneratedAt string              `json:"generated_at"`
	Contract    map[string]any      `json:"contract"`
	Workflow    domain.WorkflowView `json:"workflow"`
	Signatures  []dossierSignature  `json:"signatures"`
	Payments    []map[string]any    `json:"payments"`
	AuditTrail  []dossierAuditEntry `json:"audit_trail"`
}

type dossierSignature struct {
	Snapshot      map[string]any `json:"meta"`
	SignatureData string         `json:"signature_data"`
}

type dossierAuditEntry struct {
	Seq         int64           `json:"seq"`
	ActionType  string          `json:"action_type"`
	UserID      *int64          `json:"user_id,omitempty"`
	Description string          `json:"description,omitempty"`
	OldValues   json.RawMessage `json:"old_values,omitempty"`
	NewValues   json.RawMessage `json:"new_values,omitempty"`
	EntryHash   string          `json:"entry_hash"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (s *ExportService) ExportContract(ctx context.Context, actor domain.Actor, contractID int64, meta domain.RequestMeta) (ExportResult, error) {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return ExportResult{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpContractExport, c.BranchID); err != nil {
		return ExportResult{}, err
	}
	if s.Objects == nil {
		return ExportResult{}, fmt.Errorf("export disabled: %w", domain.ErrNotFound)
	}
	now := nowFrom(s.Clock)

	body, err := s.buildDossier(ctx, c, now)
	if err != nil {
		return ExportResult{}, err
	}
	key := fmt.Sprintf("contracts/%s/dossier-%s.json", c.ContractNumber, now.Format("20060102T150405.000000Z"))
	if err := s.Objects.Put(ctx, key, "application/json", body); err != nil {
		return ExportResult{}, fmt.Errorf("upload dossier: %w", err)
	}
	ttl := s.URLTTL
	if ttl <= 0 {
		ttl = DefaultExportURLTTL
	}
	url, err := s.Objects.PresignGet(ctx, key, ttl)
	if err != nil {
		return ExportResult{}, fmt.Errorf("presign dossier: %w", err)
	}
	if err := recordAudit(ctx, s.Store.AuditLogs(), auditInput{
		Actor:       &actor,
		Action:      domain.AuditExport,
		Table:       domain.TableContracts,
		RecordID:    int64Ptr(c.ID),
		BranchID:    int64Ptr(c.BranchID),
		New:         map[string]any{"object_key": key, "bytes": len(body)},
		Description: "dossier exported",
		Meta:        meta,
		At:          now,
	}); err != nil {
		return ExportResult{}, err
	}
	logger.Info(ctx, "dossier exported", "contract_id", c.ID, "object_key", key)
	return ExportResult{ObjectKey: key, URL: url, ExpiresAt: now.Add(ttl)}, nil
}

func (s *ExportService) buildDossier(ctx context.Context, c domain.Contract, now time.Time) ([]byte, error) {
	sigs, err := s.Store.Signatures().ListByContract(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.Store.Payments().ListByContract(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	trail, err := s.Store.AuditLogs().List(ctx, domain.AuditFilter{
		RecordID:  int64Ptr(c.ID),
		TableName: domain.TableContracts,
		Limit:     500,
	})
	if err != nil {
		return nil, err
	}

	d := dossier{
		Version:     "1",
		GeneratedAt: now.Format(time.RFC3339Nano),
		Contract:    c.Snapshot(),
		Workflow:    domain.WorkflowOf(c),
		Signatures:  make([]dossierSignature, 0, len(sigs)),
		Payments:    make([]map[string]any, 0, len(payments)),
		AuditTrail:  make([]dossierAuditEntry, 0, len(trail)),
	}
	for _, sig := range sigs {
		d.Signatures = append(d.Signatures, dossierSignature{Snapshot: sig.Snapshot(), SignatureData: sig.SignatureData})
	}
	for _, p := range payments {
		d.Payments = append(d.Payments, p.WithDerivedStatus(now).Snapshot())
	}
	// List returns newest first; the dossier reads oldest first.
	for i := len(trail) - 1; i >= 0; i-- {
		e := trail[i]
		d.AuditTrail = append(d.AuditTrail, dossierAuditEntry{
			Seq:         e.Seq,
			ActionType:  string(e.ActionType),
			UserID:      e.UserID,
			Description: e.Description,
			OldValues:   e.OldValues,
			NewValues:   e.NewValues,
			EntryHash:   e.EntryHash,
			CreatedAt:   e.CreatedAt,
		})
	}
	return json.MarshalIndent(d, "", "  ")
}
