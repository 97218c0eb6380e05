package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contractflow/internal/domain"
	"contractflow/pkg/logger"
)

const (
	DefaultSigningLinkTTL         = 168 * time.Hour
	DefaultContractNumberAttempts = 5
)

// ContractService runs the contract signature workflow. Every mutation is a
// single conditional update committed together with its signature, audit
// row and notifications.
type ContractService struct {
	Store          domain.Store
	Guard          domain.AccessGuard
	Clock          Clock
	LinkTTL        time.Duration
	NumberAttempts int
	NewLink        LinkGenerator
	NewNumber      NumberGenerator
}

func NewContractService(store domain.Store, guard domain.AccessGuard) *ContractService {
	return &ContractService{
		Store:          store,
		Guard:          guard,
		LinkTTL:        DefaultSigningLinkTTL,
		NumberAttempts: DefaultContractNumberAttempts,
		NewLink:        NewSigningLink,
		NewNumber:      NewContractNumber,
	}
}

type CreateContractInput struct {
	Terms domain.ContractTerms
	// BranchID defaults to the actor's branch.
	BranchID int64
}

type SignatureRequest struct {
	Contract    domain.Contract
	SigningLink string
	ExpiresAt   time.Time
}

func (s *ContractService) CreateContract(ctx context.Context, actor domain.Actor, in CreateContractInput, meta domain.RequestMeta) (domain.Contract, error) {
	branchID := actor.BranchID
	if in.BranchID != 0 {
		branchID = in.BranchID
	}
	if err := authorize(s.Guard, actor, domain.OpContractCreate, branchID); err != nil {
		return domain.Contract{}, err
	}
	terms := normalizeTerms(in.Terms)
	if err := terms.Validate(); err != nil {
		return domain.Contract{}, err
	}
	branch, err := s.Store.Branches().Get(ctx, branchID)
	if err != nil {
		return domain.Contract{}, err
	}

	attempts := s.NumberAttempts
	if attempts <= 0 {
		attempts = DefaultContractNumberAttempts
	}
	newNumber := s.NewNumber
	if newNumber == nil {
		newNumber = NewContractNumber
	}
	for attempt := 0; attempt < attempts; attempt++ {
		now := nowFrom(s.Clock)
		number, err := newNumber(branch.Code, now, attempt)
		if err != nil {
			return domain.Contract{}, err
		}
		var created domain.Contract
		err = s.Store.WithinTx(ctx, func(tx domain.Repositories) error {
			c, err := tx.Contracts().Create(ctx, domain.Contract{
				ContractNumber:      number,
				ClientName:          terms.ClientName,
				ClientPhone:         terms.ClientPhone,
				ClientEmail:         terms.ClientEmail,
				ContractType:        terms.ContractType,
				BranchID:            branch.ID,
				CreatedBy:           actor.UserID,
				Value:               terms.Value,
				DurationMonths:      terms.DurationMonths,
				Status:              domain.StatusDraft,
				SignatureRound:      1,
				ServicesDescription: terms.ServicesDescription,
				TermsAndConditions:  terms.TermsAndConditions,
				CreatedAt:           now,
				UpdatedAt:           now,
			})
			if err != nil {
				return err
			}
			created = c
			return recordAudit(ctx, tx.AuditLogs(), auditInput{
				Actor:       &actor,
				Action:      domain.AuditCreate,
				Table:       domain.TableContracts,
				RecordID:    int64Ptr(c.ID),
				BranchID:    int64Ptr(c.BranchID),
				New:         c.Snapshot(),
				Description: "contract created",
				Meta:        meta,
				At:          now,
			})
		})
		if errors.Is(err, domain.ErrConflict) {
			logger.Warn(ctx, "contract number collision", "contract_number", number, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return domain.Contract{}, err
		}
		logger.Info(ctx, "contract created", "contract_id", created.ID, "contract_number", created.ContractNumber)
		return created, nil
	}
	return domain.Contract{}, fmt.Errorf("%w: no free contract number after %d attempts", domain.ErrConflict, attempts)
}

func (s *ContractService) RequestSignature(ctx context.Context, actor domain.Actor, contractID int64, meta domain.RequestMeta) (SignatureRequest, error) {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return SignatureRequest{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpContractRequestSignature, c.BranchID); err != nil {
		return SignatureRequest{}, err
	}
	if err := requireCreator(actor, c, domain.OpContractRequestSignature); err != nil {
		return SignatureRequest{}, err
	}
	t, err := domain.CheckTransition(c.Status, domain.EventRequestSignature)
	if err != nil {
		return SignatureRequest{}, err
	}
	if !c.Value.IsPositive() || c.DurationMonths <= 0 {
		return SignatureRequest{}, fmt.Errorf("%w: value and duration_months must be positive before signing", domain.ErrValidation)
	}
	newLink := s.NewLink
	if newLink == nil {
		newLink = NewSigningLink
	}
	link, err := newLink()
	if err != nil {
		return SignatureRequest{}, err
	}
	ttl := s.LinkTTL
	if ttl <= 0 {
		ttl = DefaultSigningLinkTTL
	}
	now := nowFrom(s.Clock)
	expires := now.Add(ttl)

	updated, err := s.transition(ctx, c, domain.StatusChange{
		ContractID:    c.ID,
		From:          t.From,
		To:            t.To,
		At:            now,
		SigningLink:   link,
		LinkExpiresAt: &expires,
	}, func(tx domain.Repositories, after domain.Contract) error {
		return recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditUpdate,
			Table:       domain.TableContracts,
			RecordID:    int64Ptr(c.ID),
			BranchID:    int64Ptr(c.BranchID),
			Old:         c.Snapshot(),
			New:         after.Snapshot(),
			Description: "client signature requested",
			Meta:        meta,
			At:          now,
		})
	})
	if err != nil {
		return SignatureRequest{}, err
	}
	return SignatureRequest{Contract: updated, SigningLink: link, ExpiresAt: expires}, nil
}

// SignAsClient records the client's signature through the signing link.
// No user is attached: the link itself is the credential.
func (s *ContractService) SignAsClient(ctx context.Context, link, payload string, meta domain.RequestMeta) (domain.Contract, error) {
	if strings.TrimSpace(payload) == "" {
		return domain.Contract{}, fmt.Errorf("%w: signature payload is required", domain.ErrValidation)
	}
	c, err := s.Store.Contracts().GetBySigningLink(ctx, link)
	if err != nil {
		return domain.Contract{}, err
	}
	t, err := domain.CheckTransition(c.Status, domain.EventClientSign)
	if err != nil {
		return domain.Contract{}, err
	}
	now := nowFrom(s.Clock)
	if c.LinkExpired(now) {
		return domain.Contract{}, domain.ErrExpiredLink
	}

	return s.transition(ctx, c, domain.StatusChange{
		ContractID:        c.ID,
		From:              t.From,
		To:                t.To,
		At:                now,
		RequireLink:       link,
		StampClientSigned: true,
	}, func(tx domain.Repositories, after domain.Contract) error {
		sig, err := tx.Signatures().Create(ctx, domain.Signature{
			ContractID:    c.ID,
			SignatureType: domain.SignatureClient,
			SignatureData: payload,
			Round:         c.SignatureRound,
			SignedAt:      now,
			IPAddress:     meta.IPAddress,
		})
		if err != nil {
			return err
		}
		if err := recordAudit(ctx, tx.AuditLogs(), auditInput{
			Action:      domain.AuditSign,
			Table:       domain.TableContracts,
			RecordID:    int64Ptr(c.ID),
			BranchID:    int64Ptr(c.BranchID),
			Old:         c.Snapshot(),
			New:         withSignature(after.Snapshot(), sig),
			Description: "client signed via link",
			Meta:        meta,
			At:          now,
		}); err != nil {
			return err
		}
		return notify(ctx, tx, domain.Notification{
			UserID:     c.CreatedBy,
			Type:       domain.NotifyContractSigned,
			Title:      "Client signed contract",
			Message:    fmt.Sprintf("Contract %s was signed by %s.", c.ContractNumber, c.ClientName),
			ContractID: int64Ptr(c.ID),
			CreatedAt:  now,
		})
	})
}

func (s *ContractService) ApproveAsEmployee(ctx context.Context, actor domain.Actor, contractID int64, payload string, meta domain.RequestMeta) (domain.Contract, error) {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return domain.Contract{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpContractApprove, c.BranchID); err != nil {
		return domain.Contract{}, err
	}
	t, err := domain.CheckTransition(c.Status, domain.EventEmployeeApprove)
	if err != nil {
		return domain.Contract{}, err
	}
	data, err := s.signaturePayload(ctx, actor, payload)
	if err != nil {
		return domain.Contract{}, err
	}
	now := nowFrom(s.Clock)

	return s.transition(ctx, c, domain.StatusChange{
		ContractID:          c.ID,
		From:                t.From,
		To:                  t.To,
		At:                  now,
		StampEmployeeSigned: true,
	}, func(tx domain.Repositories, after domain.Contract) error {
		sig, err := tx.Signatures().Create(ctx, domain.Signature{
			ContractID:    c.ID,
			UserID:        int64Ptr(actor.UserID),
			SignatureType: domain.SignatureEmployee,
			SignatureData: data,
			Round:         c.SignatureRound,
			SignedAt:      now,
			IPAddress:     meta.IPAddress,
		})
		if err != nil {
			return err
		}
		if err := recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditApprove,
			Table:       domain.TableContracts,
			RecordID:    int64Ptr(c.ID),
			BranchID:    int64Ptr(c.BranchID),
			Old:         c.Snapshot(),
			New:         withSignature(after.Snapshot(), sig),
			Description: "employee approved",
			Meta:        meta,
			At:          now,
		}); err != nil {
			return err
		}
		managers, err := tx.Users().ListByBranchRole(ctx, c.BranchID, domain.RoleManager)
		if err != nil {
			return err
		}
		for _, m := range managers {
			if err := notify(ctx, tx, domain.Notification{
				UserID:     m.ID,
				Type:       domain.NotifySignatureRequired,
				Title:      "Management seal required",
				Message:    fmt.Sprintf("Contract %s is awaiting the management seal.", c.ContractNumber),
				ContractID: int64Ptr(c.ID),
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// SealAsManagement applies the final seal and locks the contract terms.
func (s *ContractService) SealAsManagement(ctx context.Context, actor domain.Actor, contractID int64, payload string, meta domain.RequestMeta) (domain.Contract, error) {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return domain.Contract{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpContractSeal, c.BranchID); err != nil {
		return domain.Contract{}, err
	}
	t, err := domain.CheckTransition(c.Status, domain.EventManagementSeal)
	if err != nil {
		return domain.Contract{}, err
	}
	data, err := s.signaturePayload(ctx, actor, payload)
	if err != nil {
		return domain.Contract{}, err
	}
	now := nowFrom(s.Clock)

	return s.transition(ctx, c, domain.StatusChange{
		ContractID:              c.ID,
		From:                    t.From,
		To:                      t.To,
		At:                      now,
		StampManagementApproved: true,
		Lock:                    true,
	}, func(tx domain.Repositories, after domain.Contract) error {
		sig, err := tx.Signatures().Create(ctx, domain.Signature{
			ContractID:    c.ID,
			UserID:        int64Ptr(actor.UserID),
			SignatureType: domain.SignatureManagementSeal,
			SignatureData: data,
			Round:         c.SignatureRound,
			SignedAt:      now,
			IPAddress:     meta.IPAddress,
		})
		if err != nil {
			return err
		}
		if err := recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditApprove,
			Table:       domain.TableContracts,
			RecordID:    int64Ptr(c.ID),
			BranchID:    int64Ptr(c.BranchID),
			Old:         c.Snapshot(),
			New:         withSignature(after.Snapshot(), sig),
			Description: "management seal applied",
			Meta:        meta,
			At:          now,
		}); err != nil {
			return err
		}
		return notify(ctx, tx, domain.Notification{
			UserID:     c.CreatedBy,
			Type:       domain.NotifyContractSigned,
			Title:      "Contract fully executed",
			Message:    fmt.Sprintf("Contract %s carries all signatures and is now locked.", c.ContractNumber),
			ContractID: int64Ptr(c.ID),
			CreatedAt:  now,
		})
	})
}

func (s *ContractService) ArchiveContract(ctx context.Context, actor domain.Actor, contractID int64, meta domain.RequestMeta) (domain.Contract, error) {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return domain.Contract{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpContractArchive, c.BranchID); err != nil {
		return domain.Contract{}, err
	}
	t, err := domain.CheckTransition(c.Status, domain.EventArchive)
	if err != nil {
		return domain.Contract{}, err
	}
	now := nowFrom(s.Clock)

	return s.transition(ctx, c, domain.StatusChange{
		ContractID: c.ID,
		From:       t.From,
		To:         t.To,
		At:         now,
	}, func(tx domain.Repositories, after domain.Contract) error {
		return recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditUpdate,
			Table:       domain.TableContracts,
			RecordID:    int64Ptr(c.ID),
			BranchID:    int64Ptr(c.BranchID),
			Old:         c.Snapshot(),
			New:         after.Snapshot(),
			Description: "contract archived",
			Meta:        meta,
			At:          now,
		})
	})
}

// ResetToDraft is the administrator's way back from an unlocked in-flight
// contract. It opens a new signature round.
func (s *ContractService) ResetToDraft(ctx context.Context, actor domain.Actor, contractID int64, reason string, meta domain.RequestMeta) (domain.Contract, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Contract{}, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return domain.Contract{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpContractRollback, c.BranchID); err != nil {
		return domain.Contract{}, err
	}
	t, err := domain.CheckTransition(c.Status, domain.EventResetToDraft)
	if err != nil {
		return domain.Contract{}, err
	}
	now := nowFrom(s.Clock)

	return s.transition(ctx, c, domain.StatusChange{
		ContractID:    c.ID,
		From:          t.From,
		To:            t.To,
		At:            now,
		ResetWorkflow: true,
	}, func(tx domain.Repositories, after domain.Contract) error {
		return recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditUpdate,
			Table:       domain.TableContracts,
			RecordID:    int64Ptr(c.ID),
			BranchID:    int64Ptr(c.BranchID),
			Old:         c.Snapshot(),
			New:         after.Snapshot(),
			Description: "reset to draft: " + reason,
			Meta:        meta,
			At:          now,
		})
	})
}

func (s *ContractService) UpdateTerms(ctx context.Context, actor domain.Actor, contractID int64, patch domain.ContractPatch, meta domain.RequestMeta) (domain.Contract, error) {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return domain.Contract{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpContractEdit, c.BranchID); err != nil {
		return domain.Contract{}, err
	}
	if err := requireCreator(actor, c, domain.OpContractEdit); err != nil {
		return domain.Contract{}, err
	}
	if c.Locked() {
		return domain.Contract{}, lockedError(c)
	}
	if !actor.IsAdmin() && c.Status != domain.StatusDraft {
		return domain.Contract{}, fmt.Errorf("%w: only draft contracts can be edited, contract is %s", domain.ErrInvalidState, c.Status)
	}
	if patch.Empty() {
		return domain.Contract{}, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	terms := normalizeTerms(patch.Apply(c))
	if err := terms.Validate(); err != nil {
		return domain.Contract{}, err
	}
	now := nowFrom(s.Clock)

	var updated domain.Contract
	err = s.Store.WithinTx(ctx, func(tx domain.Repositories) error {
		ok, err := tx.Contracts().UpdateTerms(ctx, c.ID, c.Status, terms, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := tx.Contracts().Get(ctx, c.ID)
			if err != nil {
				return err
			}
			if current.Locked() {
				return lockedError(current)
			}
			return fmt.Errorf("%w: contract changed concurrently, now %s", domain.ErrInvalidState, current.Status)
		}
		if updated, err = tx.Contracts().Get(ctx, c.ID); err != nil {
			return err
		}
		return recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditUpdate,
			Table:       domain.TableContracts,
			RecordID:    int64Ptr(c.ID),
			BranchID:    int64Ptr(c.BranchID),
			Old:         c.Snapshot(),
			New:         updated.Snapshot(),
			Description: "contract terms updated",
			Meta:        meta,
			At:          now,
		})
	})
	if err != nil {
		return domain.Contract{}, err
	}
	return updated, nil
}

// DeleteContract removes an unlocked contract together with its signatures,
// payments and notifications. The audit trail keeps the final snapshot.
func (s *ContractService) DeleteContract(ctx context.Context, actor domain.Actor, contractID int64, meta domain.RequestMeta) error {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return err
	}
	if err := authorize(s.Guard, actor, domain.OpContractDelete, c.BranchID); err != nil {
		return err
	}
	if c.Locked() {
		return lockedError(c)
	}
	now := nowFrom(s.Clock)
	return s.Store.WithinTx(ctx, func(tx domain.Repositories) error {
		if err := tx.Contracts().Delete(ctx, c.ID); err != nil {
			return err
		}
		return recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditDelete,
			Table:       domain.TableContracts,
			RecordID:    int64Ptr(c.ID),
			BranchID:    int64Ptr(c.BranchID),
			Old:         c.Snapshot(),
			Description: "contract deleted",
			Meta:        meta,
			At:          now,
		})
	})
}

func (s *ContractService) GetContract(ctx context.Context, actor domain.Actor, contractID int64) (domain.Contract, error) {
	c, err := s.Store.Contracts().Get(ctx, contractID)
	if err != nil {
		return domain.Contract{}, err
	}
	if err := authorize(s.Guard, actor, domain.OpContractView, c.BranchID); err != nil {
		return domain.Contract{}, err
	}
	return c, nil
}

// ListContracts scopes non-admin callers to their own branch. Free-text
// searches are audited.
func (s *ContractService) ListContracts(ctx context.Context, actor domain.Actor, filter domain.ContractFilter, meta domain.RequestMeta) (domain.ContractPage, error) {
	if !actor.IsAdmin() {
		if filter.BranchID != nil && *filter.BranchID != actor.BranchID {
			return domain.ContractPage{}, &domain.AccessError{Code: domain.AccessBranchMismatch, Operation: domain.OpContractView}
		}
		filter.BranchID = int64Ptr(actor.BranchID)
	}
	scope := actor.BranchID
	if filter.BranchID != nil {
		scope = *filter.BranchID
	}
	if err := authorize(s.Guard, actor, domain.OpContractView, scope); err != nil {
		return domain.ContractPage{}, err
	}
	page, err := s.Store.Contracts().List(ctx, filter)
	if err != nil {
		return domain.ContractPage{}, err
	}
	if strings.TrimSpace(filter.Query) != "" {
		search := map[string]any{"query": filter.Query, "results": page.Total}
		if filter.BranchID != nil {
			search["branch_id"] = *filter.BranchID
		}
		if filter.Status != "" {
			search["status"] = string(filter.Status)
		}
		if err := recordAudit(ctx, s.Store.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditSearch,
			Table:       domain.TableContracts,
			BranchID:    filter.BranchID,
			New:         search,
			Description: "contract search",
			Meta:        meta,
			At:          nowFrom(s.Clock),
		}); err != nil {
			return domain.ContractPage{}, err
		}
	}
	return page, nil
}

func (s *ContractService) ListSignatures(ctx context.Context, actor domain.Actor, contractID int64) ([]domain.Signature, error) {
	if _, err := s.GetContract(ctx, actor, contractID); err != nil {
		return nil, err
	}
	return s.Store.Signatures().ListByContract(ctx, contractID)
}

// PublicContract is the read behind the client signing page.
func (s *ContractService) PublicContract(ctx context.Context, link string) (domain.Contract, error) {
	c, err := s.Store.Contracts().GetBySigningLink(ctx, link)
	if err != nil {
		return domain.Contract{}, err
	}
	if c.LinkExpired(nowFrom(s.Clock)) {
		return domain.Contract{}, domain.ErrExpiredLink
	}
	return c, nil
}

// transition applies change inside a transaction, reloads the row and runs
// effects against the same transaction. A change that matches no row is
// classified against the current state of the contract.
func (s *ContractService) transition(ctx context.Context, before domain.Contract, change domain.StatusChange, effects func(tx domain.Repositories, after domain.Contract) error) (domain.Contract, error) {
	var after domain.Contract
	err := s.Store.WithinTx(ctx, func(tx domain.Repositories) error {
		ok, err := tx.Contracts().Transition(ctx, change)
		if err != nil {
			return err
		}
		if !ok {
			return classifyMiss(ctx, tx, change)
		}
		if after, err = tx.Contracts().Get(ctx, change.ContractID); err != nil {
			return err
		}
		return effects(tx, after)
	})
	if err != nil {
		return domain.Contract{}, err
	}
	logger.Info(ctx, "contract transition",
		"contract_id", before.ID,
		"from", string(change.From),
		"to", string(change.To),
	)
	return after, nil
}

func classifyMiss(ctx context.Context, tx domain.Repositories, change domain.StatusChange) error {
	current, err := tx.Contracts().Get(ctx, change.ContractID)
	if err != nil {
		return err
	}
	if current.Status != change.From {
		return fmt.Errorf("%w: contract is now %s", domain.ErrInvalidState, current.Status)
	}
	if change.RequireLink != "" {
		if current.SigningLink != change.RequireLink {
			return fmt.Errorf("%w: signing link was replaced", domain.ErrNotFound)
		}
		if current.LinkExpired(change.At) {
			return domain.ErrExpiredLink
		}
	}
	if change.Lock || change.ResetWorkflow {
		if current.Locked() {
			return lockedError(current)
		}
	}
	return fmt.Errorf("%w: workflow step already recorded", domain.ErrInvalidState)
}

// signaturePayload falls back to the actor's stored signature.
func (s *ContractService) signaturePayload(ctx context.Context, actor domain.Actor, payload string) (string, error) {
	if strings.TrimSpace(payload) != "" {
		return payload, nil
	}
	user, err := s.Store.Users().Get(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(user.SignatureData) == "" {
		return "", fmt.Errorf("%w: signature payload is required and no stored signature exists", domain.ErrValidation)
	}
	return user.SignatureData, nil
}

// requireCreator limits employees to contracts they created. Managers and
// admins act on any contract the guard lets them reach.
func requireCreator(actor domain.Actor, c domain.Contract, op domain.Operation) error {
	if actor.Role == domain.RoleEmployee && c.CreatedBy != actor.UserID {
		return &domain.AccessError{Code: domain.AccessNotCreator, Operation: op}
	}
	return nil
}

func lockedError(c domain.Contract) error {
	return fmt.Errorf("%w: %w: contract %s", domain.ErrForbidden, domain.ErrLocked, c.ContractNumber)
}

func normalizeTerms(t domain.ContractTerms) domain.ContractTerms {
	t.ClientName = strings.TrimSpace(t.ClientName)
	t.ClientPhone = strings.TrimSpace(t.ClientPhone)
	t.ClientEmail = strings.TrimSpace(t.ClientEmail)
	t.Value = t.Value.Round(2)
	return t
}

func withSignature(snapshot map[string]any, sig domain.Signature) map[string]any {
	snapshot["signature"] = sig.Snapshot()
	return snapshot
}

func notify(ctx context.Context, tx domain.Repositories, n domain.Notification) error {
	if n.UserID == 0 {
		return nil
	}
	_, err := tx.Notifications().Create(ctx, n)
	return err
}
