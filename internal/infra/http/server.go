package http

import (
	"context"
	"net/http"
	"time"

	"contractflow/internal/config"
	"contractflow/internal/domain"
	"contractflow/internal/usecase"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ServerDeps struct {
	Contracts     *usecase.ContractService
	Payments      *usecase.PaymentService
	Notifications *usecase.NotificationService
	Identity      *usecase.IdentityService
	Audit         *usecase.AuditService
	Export        *usecase.ExportService
	Authenticator domain.Authenticator
	RateLimiter   domain.RateLimiter
	DB            Pinger
	GuardKind     string
	PolicyHash    string
}

type Server struct {
	cfg config.Config
	r   *gin.Engine

	contracts     *usecase.ContractService
	payments      *usecase.PaymentService
	notifications *usecase.NotificationService
	identity      *usecase.IdentityService
	audit         *usecase.AuditService
	export        *usecase.ExportService

	authenticator domain.Authenticator
	db            Pinger
	guardKind     string
	policyHash    string

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitPublic     int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(requestID(), requestLogger(), recovery())

	s := &Server{
		cfg:                 cfg,
		r:                   r,
		contracts:           deps.Contracts,
		payments:            deps.Payments,
		notifications:       deps.Notifications,
		identity:            deps.Identity,
		audit:               deps.Audit,
		export:              deps.Export,
		authenticator:       deps.Authenticator,
		db:                  deps.DB,
		guardKind:           deps.GuardKind,
		policyHash:          deps.PolicyHash,
		rateLimiter:         deps.RateLimiter,
		rateLimitRequests:   cfg.RateLimitRequests,
		rateLimitPublic:     cfg.RateLimitLoginRequests,
		rateLimitWindow:     cfg.RateLimitWindow(),
		rateLimitFailClosed: cfg.RateLimitFailClosed,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)

	v1 := s.r.Group("/v1")

	public := v1.Group("", s.limitByClientIP())
	public.POST("/auth/login", s.handleLogin)
	public.GET("/sign/:link", s.handlePublicContract)
	public.POST("/sign/:link", s.handleClientSign)

	authed := v1.Group("", s.requireAuth(), s.limitByUser())
	authed.POST("/auth/logout", s.handleLogout)
	authed.GET("/auth/me", s.handleMe)
	authed.PUT("/auth/me/signature", s.handleSetSignature)
	authed.GET("/branches", s.handleListBranches)
	authed.POST("/users", s.handleCreateUser)

	authed.POST("/contracts", s.handleCreateContract)
	authed.GET("/contracts", s.handleListContracts)
	authed.GET("/contracts/:id", s.handleGetContract)
	authed.PATCH("/contracts/:id", s.handleUpdateContract)
	authed.DELETE("/contracts/:id", s.handleDeleteContract)
	authed.POST("/contracts/:id/signature-request", s.handleRequestSignature)
	authed.POST("/contracts/:id/approve", s.handleApprove)
	authed.POST("/contracts/:id/seal", s.handleSeal)
	authed.POST("/contracts/:id/archive", s.handleArchive)
	authed.POST("/contracts/:id/reset", s.handleReset)
	authed.GET("/contracts/:id/signatures", s.handleListSignatures)
	authed.POST("/contracts/:id/export", s.handleExport)
	authed.GET("/contracts/:id/payments", s.handleListPayments)
	authed.POST("/contracts/:id/payments", s.handleAddPayment)
	authed.POST("/payments/:id/pay", s.handleMarkPaid)

	authed.GET("/notifications", s.handleListNotifications)
	authed.POST("/notifications/:id/read", s.handleMarkNotificationRead)

	authed.GET("/audit", s.handleListAudit)
	authed.GET("/audit/verify", s.handleVerifyAudit)

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	status, code := "ok", http.StatusOK
	dbMode := "no-db"
	if s.db != nil {
		dbMode = s.cfg.DBDriver
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	body := gin.H{"status": status, "db": dbMode, "guard": s.guardKind}
	if s.policyHash != "" {
		body["policy_hash"] = s.policyHash
	}
	c.JSON(code, body)
}
