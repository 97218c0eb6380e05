package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"contractflow/internal/domain"
	"contractflow/pkg/logger"
)

const minPasswordLength = 8

type IdentityService struct {
	Store    domain.Store
	Guard    domain.AccessGuard
	Hasher   PasswordHasher
	Issuer   domain.TokenIssuer
	Denylist domain.TokenDenylist
	Clock    Clock
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

type CreateUserInput struct {
	Email    string
	Password string
	Role     domain.Role
	BranchID int64
}

type BootstrapResult struct {
	BranchesCreated int
	AdminCreated    bool
}

func (s *IdentityService) Login(ctx context.Context, email, password string, meta domain.RequestMeta) (LoginResult, error) {
	if s.Hasher == nil || s.Issuer == nil {
		return LoginResult{}, errors.New("identity service not configured")
	}
	user, err := s.Store.Users().GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return LoginResult{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !s.Hasher.Verify(user.PasswordHash, password) {
		logger.Warn(ctx, "login rejected", "user_id", user.ID)
		return LoginResult{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	token, principal, err := s.Issuer.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	actor := user.Actor()
	if err := recordAudit(ctx, s.Store.AuditLogs(), auditInput{
		Actor:       &actor,
		Action:      domain.AuditLogin,
		Table:       domain.TableUsers,
		RecordID:    int64Ptr(user.ID),
		BranchID:    int64Ptr(user.BranchID),
		Description: "login",
		Meta:        meta,
		At:          nowFrom(s.Clock),
	}); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: principal.ExpiresAt, User: user}, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *IdentityService) Logout(ctx context.Context, principal domain.Principal, meta domain.RequestMeta) error {
	if s.Denylist == nil {
		return errors.New("token denylist required")
	}
	if principal.TokenID == "" {
		return fmt.Errorf("%w: token has no id", domain.ErrUnauthorized)
	}
	if err := s.Denylist.Revoke(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		return err
	}
	return recordAudit(ctx, s.Store.AuditLogs(), auditInput{
		Actor:       &principal.Actor,
		Action:      domain.AuditLogout,
		Table:       domain.TableUsers,
		RecordID:    int64Ptr(principal.UserID),
		BranchID:    int64Ptr(principal.BranchID),
		Description: "logout",
		Meta:        meta,
		At:          nowFrom(s.Clock),
	})
}

func (s *IdentityService) Me(ctx context.Context, actor domain.Actor) (domain.User, error) {
	return s.Store.Users().Get(ctx, actor.UserID)
}

func (s *IdentityService) CreateUser(ctx context.Context, actor domain.Actor, in CreateUserInput, meta domain.RequestMeta) (domain.User, error) {
	if err := authorize(s.Guard, actor, domain.OpUserManage, in.BranchID); err != nil {
		return domain.User{}, err
	}
	user, err := s.newUser(ctx, in)
	if err != nil {
		return domain.User{}, err
	}
	return s.insertUser(ctx, &actor, user, "user created", meta)
}

// ProvisionUser creates an account from the operator CLI. The audit entry
// is recorded as a system action.
func (s *IdentityService) ProvisionUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return domain.User{}, err
	}
	return s.insertUser(ctx, nil, user, "user provisioned", domain.RequestMeta{})
}

func (s *IdentityService) insertUser(ctx context.Context, actor *domain.Actor, user domain.User, description string, meta domain.RequestMeta) (domain.User, error) {
	var created domain.User
	err := s.Store.WithinTx(ctx, func(tx domain.Repositories) error {
		u, err := tx.Users().Create(ctx, user)
		if err != nil {
			return err
		}
		created = u
		return recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       actor,
			Action:      domain.AuditCreate,
			Table:       domain.TableUsers,
			RecordID:    int64Ptr(u.ID),
			BranchID:    int64Ptr(u.BranchID),
			New:         u.Snapshot(),
			Description: description,
			Meta:        meta,
			At:          user.CreatedAt,
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return created, nil
}

// SetSignature stores the drawn signature used when approve or seal
// requests carry no payload.
func (s *IdentityService) SetSignature(ctx context.Context, actor domain.Actor, data string, meta domain.RequestMeta) error {
	if strings.TrimSpace(data) == "" {
		return fmt.Errorf("%w: signature data is required", domain.ErrValidation)
	}
	return s.Store.WithinTx(ctx, func(tx domain.Repositories) error {
		before, err := tx.Users().Get(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if err := tx.Users().SetSignature(ctx, actor.UserID, data); err != nil {
			return err
		}
		after := before
		after.SignatureData = data
		return recordAudit(ctx, tx.AuditLogs(), auditInput{
			Actor:       &actor,
			Action:      domain.AuditUpdate,
			Table:       domain.TableUsers,
			RecordID:    int64Ptr(actor.UserID),
			BranchID:    int64Ptr(before.BranchID),
			Old:         before.Snapshot(),
			New:         after.Snapshot(),
			Description: "stored signature updated",
			Meta:        meta,
			At:          nowFrom(s.Clock),
		})
	})
}

func (s *IdentityService) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return s.Store.Branches().List(ctx)
}

// Bootstrap creates the default branches that are missing and, when a
// password is supplied and no administrator exists yet, the first admin.
func (s *IdentityService) Bootstrap(ctx context.Context, adminEmail, adminPassword, adminBranchCode string) (BootstrapResult, error) {
	var result BootstrapResult
	existing, err := s.Store.Branches().List(ctx)
	if err != nil {
		return result, err
	}
	byCode := make(map[string]domain.Branch, len(existing))
	for _, b := range existing {
		byCode[b.Code] = b
	}
	for _, b := range domain.DefaultBranches {
		if _, ok := byCode[b.Code]; ok {
			continue
		}
		created, err := s.Store.Branches().Create(ctx, b)
		if err != nil {
			return result, fmt.Errorf("seed branch %s: %w", b.Code, err)
		}
		byCode[created.Code] = created
		result.BranchesCreated++
	}

	if adminPassword == "" {
		return result, nil
	}
	admins, err := s.Store.Users().CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return result, err
	}
	if admins > 0 {
		return result, nil
	}
	branch, ok := byCode[strings.ToUpper(adminBranchCode)]
	if !ok {
		return result, fmt.Errorf("%w: unknown branch code %q", domain.ErrValidation, adminBranchCode)
	}
	user, err := s.newUser(ctx, CreateUserInput{
		Email:    adminEmail,
		Password: adminPassword,
		Role:     domain.RoleAdmin,
		BranchID: branch.ID,
	})
	if err != nil {
		return result, err
	}
	if _, err := s.insertUser(ctx, nil, user, "administrator seeded", domain.RequestMeta{}); err != nil {
		return result, err
	}
	result.AdminCreated = true
	return result, nil
}

func (s *IdentityService) newUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	if s.Hasher == nil {
		return domain.User{}, errors.New("password hasher required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid email", domain.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	if !in.Role.Valid() {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, in.Role)
	}
	if _, err := s.Store.Branches().Get(ctx, in.BranchID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: unknown branch %d", domain.ErrValidation, in.BranchID)
		}
		return domain.User{}, err
	}
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		BranchID:     in.BranchID,
		CreatedAt:    nowFrom(s.Clock),
	}, nil
}
