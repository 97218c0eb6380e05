// Package app wires configuration into the store, guard and services shared
// by the server and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contractflow/internal/config"
	"contractflow/internal/domain"
	jwtauth "contractflow/internal/infra/auth/jwt"
	"contractflow/internal/infra/auth/rbac"
	cryptoinfra "contractflow/internal/infra/crypto"
	"contractflow/internal/infra/db"
	"contractflow/internal/infra/denylist"
	httpinfra "contractflow/internal/infra/http"
	"contractflow/internal/infra/objstore"
	"contractflow/internal/infra/policyopa"
	"contractflow/internal/infra/ratelimit"
	"contractflow/internal/usecase"
	"contractflow/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	GuardRBAC = "rbac"
	GuardOPA  = "opa"
)

type App struct {
	Config     config.Config
	Store      *db.Store
	Guard      domain.AccessGuard
	GuardKind  string
	PolicyHash string

	Contracts     *usecase.ContractService
	Payments      *usecase.PaymentService
	Notifications *usecase.NotificationService
	Identity      *usecase.IdentityService
	Audit         *usecase.AuditService

	redis *redis.Client
}

// New opens the store and builds the services. Network-facing pieces
// (tokens, redis, object storage) are added by Server.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	store, err := db.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	guard, kind, hash, err := newGuard(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	contracts := usecase.NewContractService(store, guard)
	if cfg.SigningLinkTTL > 0 {
		contracts.LinkTTL = cfg.SigningLinkTTL
	}
	if cfg.ContractNumberAttempts > 0 {
		contracts.NumberAttempts = cfg.ContractNumberAttempts
	}

	return &App{
		Config:        cfg,
		Store:         store,
		Guard:         guard,
		GuardKind:     kind,
		PolicyHash:    hash,
		Contracts:     contracts,
		Payments:      &usecase.PaymentService{Store: store, Guard: guard},
		Notifications: &usecase.NotificationService{Store: store},
		Identity: &usecase.IdentityService{
			Store:  store,
			Guard:  guard,
			Hasher: cryptoinfra.NewPasswordHasher(cfg.BcryptCost),
		},
		Audit: usecase.NewAuditService(store, guard),
	}, nil
}

func newGuard(ctx context.Context, cfg config.Config) (domain.AccessGuard, string, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.GuardEngine)) {
	case GuardRBAC, "":
		return rbac.NewGuard(), GuardRBAC, "", nil
	case GuardOPA:
		var (
			guard *policyopa.Guard
			err   error
		)
		if cfg.PolicyBundlePath != "" {
			guard, err = policyopa.NewGuardFromDir(ctx, cfg.PolicyBundlePath)
		} else {
			guard, err = policyopa.NewGuard(ctx)
		}
		if err != nil {
			return nil, "", "", fmt.Errorf("load guard policy: %w", err)
		}
		return guard, GuardOPA, guard.PolicyHash(), nil
	default:
		return nil, "", "", fmt.Errorf("unsupported GUARD_ENGINE %q", cfg.GuardEngine)
	}
}

// Server builds the HTTP server. Redis backs the rate limiter and the
// token denylist when REDIS_ADDR is set; otherwise both stay in process.
func (a *App) Server(ctx context.Context) (*httpinfra.Server, error) {
	cfg := a.Config

	var (
		revoked domain.TokenDenylist
		limiter domain.RateLimiter
	)
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		redisDenylist, err := denylist.NewRedis(a.redis, nil)
		if err != nil {
			return nil, err
		}
		redisLimiter, err := ratelimit.NewRedis(a.redis, nil)
		if err != nil {
			return nil, err
		}
		revoked, limiter = redisDenylist, redisLimiter
	} else {
		revoked = denylist.NewMemory(nil)
		limiter = ratelimit.NewMemory(nil, cfg.RateLimitMaxKeys)
	}

	tokens, err := jwtauth.New(cfg, revoked)
	if err != nil {
		return nil, err
	}
	a.Identity.Issuer = tokens
	a.Identity.Denylist = revoked

	var export *usecase.ExportService
	if cfg.ExportEnabled() {
		objects, err := objstore.NewMinio(cfg)
		if err != nil {
			return nil, err
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		export = &usecase.ExportService{
			Store:   a.Store,
			Guard:   a.Guard,
			Objects: objects,
			URLTTL:  cfg.ExportURLTTL,
		}
	}

	return httpinfra.NewServer(cfg, httpinfra.ServerDeps{
		Contracts:     a.Contracts,
		Payments:      a.Payments,
		Notifications: a.Notifications,
		Identity:      a.Identity,
		Audit:         a.Audit,
		Export:        export,
		Authenticator: tokens,
		RateLimiter:   limiter,
		DB:            a.Store,
		GuardKind:     a.GuardKind,
		PolicyHash:    a.PolicyHash,
	}), nil
}

// Seed creates the default branches and, when a password is configured,
// the first administrator.
func (a *App) Seed(ctx context.Context, email, password, branch string) (usecase.BootstrapResult, error) {
	return a.Identity.Bootstrap(ctx, email, password, branch)
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
