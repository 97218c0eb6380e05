package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contractflow/internal/domain"
	cryptoinfra "contractflow/internal/infra/crypto"
)

type auditInput struct {
	Actor       *domain.Actor
	Action      domain.AuditAction
	Table       string
	RecordID    *int64
	BranchID    *int64
	Old         map[string]any
	New         map[string]any
	Description string
	Meta        domain.RequestMeta
	At          time.Time
}

// recordAudit appends one audit row through repo, which callers bind to the
// transaction carrying the audited mutation.
func recordAudit(ctx context.Context, repo domain.AuditLogRepository, in auditInput) error {
	if repo == nil {
		return errors.New("audit repository required")
	}
	entry := domain.AuditLog{
		ActionType:  in.Action,
		TableName:   in.Table,
		RecordID:    in.RecordID,
		BranchID:    in.BranchID,
		IPAddress:   in.Meta.IPAddress,
		UserAgent:   in.Meta.UserAgent,
		Description: in.Description,
		CreatedAt:   in.At,
	}
	if in.Actor != nil && in.Actor.UserID != 0 {
		userID := in.Actor.UserID
		entry.UserID = &userID
	}
	var err error
	if entry.OldValues, err = snapshotJSON(in.Old); err != nil {
		return fmt.Errorf("audit old_values: %w", err)
	}
	if entry.NewValues, err = snapshotJSON(in.New); err != nil {
		return fmt.Errorf("audit new_values: %w", err)
	}
	if _, err := repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func snapshotJSON(snapshot map[string]any) (json.RawMessage, error) {
	if snapshot == nil {
		return nil, nil
	}
	return json.Marshal(snapshot)
}

func int64Ptr(v int64) *int64 {
	return &v
}

// ChainError describes the first audit entry that fails verification.
type ChainError struct {
	Seq    int64
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("audit chain %s at seq %d", e.Reason, e.Seq)
}

type ChainReport struct {
	Entries  int    `json:"entries"`
	HeadSeq  int64  `json:"head_seq"`
	HeadHash string `json:"head_hash"`
}

// VerifyAuditChain walks the whole chain in sequence order and recomputes
// every hash. The first broken link is returned as a *ChainError.
func VerifyAuditChain(ctx context.Context, repo domain.AuditLogRepository) (ChainReport, error) {
	if repo == nil {
		return ChainReport{}, errors.New("audit repository required")
	}
	entries, err := repo.ListChain(ctx)
	if err != nil {
		return ChainReport{}, err
	}

	report := ChainReport{HeadHash: cryptoinfra.ZeroHash}
	expectedSeq := int64(1)
	prevHash := cryptoinfra.ZeroHash
	for _, entry := range entries {
		if entry.Seq != expectedSeq {
			return report, &ChainError{Seq: entry.Seq, Reason: fmt.Sprintf("seq mismatch: expected %d", expectedSeq)}
		}
		if entry.PrevHash != prevHash {
			return report, &ChainError{Seq: entry.Seq, Reason: "prev hash mismatch"}
		}
		if entry.CreatedAt.IsZero() {
			return report, &ChainError{Seq: entry.Seq, Reason: "missing created_at"}
		}
		payloadHash, err := cryptoinfra.AuditPayloadHash(entry)
		if err != nil {
			return report, &ChainError{Seq: entry.Seq, Reason: "payload hash compute failed: " + err.Error()}
		}
		if payloadHash != entry.PayloadHash {
			return report, &ChainError{Seq: entry.Seq, Reason: "payload hash mismatch"}
		}
		entryHash, err := cryptoinfra.AuditEntryHash(entry)
		if err != nil {
			return report, &ChainError{Seq: entry.Seq, Reason: "entry hash compute failed: " + err.Error()}
		}
		if entryHash != entry.EntryHash {
			return report, &ChainError{Seq: entry.Seq, Reason: "entry hash mismatch"}
		}
		prevHash = entry.EntryHash
		report.Entries++
		report.HeadSeq = entry.Seq
		report.HeadHash = entry.EntryHash
		expectedSeq++
	}
	return report, nil
}

type AuditService struct {
	Store domain.Store
	Guard domain.AccessGuard
}

func NewAuditService(store domain.Store, guard domain.AccessGuard) *AuditService {
	return &AuditService{Store: store, Guard: guard}
}

// List returns audit entries newest first. Managers only see their branch.
func (s *AuditService) List(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]domain.AuditLog, error) {
	branchID := actor.BranchID
	if actor.IsAdmin() && filter.BranchID != nil {
		branchID = *filter.BranchID
	}
	if err := authorize(s.Guard, actor, domain.OpAuditRead, branchID); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		filter.BranchID = int64Ptr(actor.BranchID)
	}
	return s.Store.AuditLogs().List(ctx, filter)
}

// Verify checks the chain on behalf of an administrator.
func (s *AuditService) Verify(ctx context.Context, actor domain.Actor) (ChainReport, error) {
	if !actor.IsAdmin() {
		return ChainReport{}, &domain.AccessError{Code: domain.AccessRoleNotPermitted, Operation: domain.OpAuditRead}
	}
	return VerifyAuditChain(ctx, s.Store.AuditLogs())
}

func authorize(guard domain.AccessGuard, actor domain.Actor, op domain.Operation, branchID int64) error {
	if guard == nil {
		return errors.New("access guard required")
	}
	return guard.Check(actor.Request(op, branchID))
}
