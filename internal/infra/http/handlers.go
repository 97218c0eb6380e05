package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"contractflow/internal/domain"
	"contractflow/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type contractResponse struct {
	ID                   int64      `json:"id"`
	ContractNumber       string     `json:"contract_number"`
	ClientName           string     `json:"client_name"`
	ClientPhone          string     `json:"client_phone,omitempty"`
	ClientEmail          string     `json:"client_email,omitempty"`
	ContractType         string     `json:"contract_type"`
	BranchID             int64      `json:"branch_id"`
	CreatedBy            int64      `json:"created_by"`
	Value                string     `json:"value"`
	DurationMonths       int        `json:"duration_months"`
	Status               string     `json:"status"`
	SigningLink          string     `json:"signing_link,omitempty"`
	LinkExpiresAt        *time.Time `json:"link_expires_at,omitempty"`
	ClientSignedAt       *time.Time `json:"client_signed_at,omitempty"`
	EmployeeSignedAt     *time.Time `json:"employee_signed_at,omitempty"`
	ManagementApprovedAt *time.Time `json:"management_approved_at,omitempty"`
	LockedAt             *time.Time `json:"locked_at,omitempty"`
	SignatureRound       int        `json:"signature_round"`
	ServicesDescription  string     `json:"services_description,omitempty"`
	TermsAndConditions   string     `json:"terms_and_conditions,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Workflow *domain.WorkflowView `json:"workflow,omitempty"`
}

func toContractResponse(c domain.Contract) contractResponse {
	return contractResponse{
		ID:                   c.ID,
		ContractNumber:       c.ContractNumber,
		ClientName:           c.ClientName,
		ClientPhone:          c.ClientPhone,
		ClientEmail:          c.ClientEmail,
		ContractType:         string(c.ContractType),
		BranchID:             c.BranchID,
		CreatedBy:            c.CreatedBy,
		Value:                c.Value.StringFixed(2),
		DurationMonths:       c.DurationMonths,
		Status:               string(c.Status),
		SigningLink:          c.SigningLink,
		LinkExpiresAt:        c.LinkExpiresAt,
		ClientSignedAt:       c.ClientSignedAt,
		EmployeeSignedAt:     c.EmployeeSignedAt,
		ManagementApprovedAt: c.ManagementApprovedAt,
		LockedAt:             c.LockedAt,
		SignatureRound:       c.SignatureRound,
		ServicesDescription:  c.ServicesDescription,
		TermsAndConditions:   c.TermsAndConditions,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

// publicContractResponse is what the client sees on the signing page.
// Internal ids, the creator and the link itself stay hidden.
type publicContractResponse struct {
	ContractNumber      string     `json:"contract_number"`
	ClientName          string     `json:"client_name"`
	ContractType        string     `json:"contract_type"`
	Value               string     `json:"value"`
	DurationMonths      int        `json:"duration_months"`
	Status              string     `json:"status"`
	ServicesDescription string     `json:"services_description,omitempty"`
	TermsAndConditions  string     `json:"terms_and_conditions,omitempty"`
	LinkExpiresAt       *time.Time `json:"link_expires_at,omitempty"`
	ClientSignedAt      *time.Time `json:"client_signed_at,omitempty"`
}

func toPublicContractResponse(c domain.Contract) publicContractResponse {
	return publicContractResponse{
		ContractNumber:      c.ContractNumber,
		ClientName:          c.ClientName,
		ContractType:        string(c.ContractType),
		Value:               c.Value.StringFixed(2),
		DurationMonths:      c.DurationMonths,
		Status:              string(c.Status),
		ServicesDescription: c.ServicesDescription,
		TermsAndConditions:  c.TermsAndConditions,
		LinkExpiresAt:       c.LinkExpiresAt,
		ClientSignedAt:      c.ClientSignedAt,
	}
}

type userResponse struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	BranchID     int64     `json:"branch_id"`
	HasSignature bool      `json:"has_signature"`
	CreatedAt    time.Time `json:"created_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Role:         string(u.Role),
		BranchID:     u.BranchID,
		HasSignature: u.SignatureData != "",
		CreatedAt:    u.CreatedAt,
	}
}

type signatureResponse struct {
	ID            int64     `json:"id"`
	ContractID    int64     `json:"contract_id"`
	UserID        *int64    `json:"user_id,omitempty"`
	SignatureType string    `json:"signature_type"`
	SignatureData string    `json:"signature_data"`
	Round         int       `json:"round"`
	SignedAt      time.Time `json:"signed_at"`
	IPAddress     string    `json:"ip_address,omitempty"`
}

type paymentResponse struct {
	ID            int64      `json:"id"`
	ContractID    int64      `json:"contract_id"`
	Amount        string     `json:"amount"`
	DueDate       string     `json:"due_date"`
	PaidDate      *string    `json:"paid_date,omitempty"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func toPaymentResponse(p domain.Payment) paymentResponse {
	out := paymentResponse{
		ID:            p.ID,
		ContractID:    p.ContractID,
		Amount:        p.Amount.StringFixed(2),
		DueDate:       domain.Date(p.DueDate).Format(time.DateOnly),
		Status:        string(p.Status),
		PaymentMethod: string(p.PaymentMethod),
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
	}
	if p.PaidDate != nil {
		paid := domain.Date(*p.PaidDate).Format(time.DateOnly)
		out.PaidDate = &paid
	}
	if !p.UpdatedAt.IsZero() {
		updated := p.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}

type notificationResponse struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	ContractID *int64    `json:"contract_id,omitempty"`
	PaymentID  *int64    `json:"payment_id,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

type auditResponse struct {
	Seq         int64     `json:"seq"`
	UserID      *int64    `json:"user_id,omitempty"`
	ActionType  string    `json:"action_type"`
	TableName   string    `json:"table_name"`
	RecordID    *int64    `json:"record_id,omitempty"`
	OldValues   any       `json:"old_values,omitempty"`
	NewValues   any       `json:"new_values,omitempty"`
	BranchID    *int64    `json:"branch_id,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Description string    `json:"description,omitempty"`
	EntryHash   string    `json:"entry_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAuditResponse(entry domain.AuditLog) auditResponse {
	out := auditResponse{
		Seq:         entry.Seq,
		UserID:      entry.UserID,
		ActionType:  string(entry.ActionType),
		TableName:   entry.TableName,
		RecordID:    entry.RecordID,
		BranchID:    entry.BranchID,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		Description: entry.Description,
		EntryHash:   entry.EntryHash,
		CreatedAt:   entry.CreatedAt,
	}
	if len(entry.OldValues) > 0 {
		out.OldValues = entry.OldValues
	}
	if len(entry.NewValues) > 0 {
		out.NewValues = entry.NewValues
	}
	return out
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signatureRequest struct {
	SignatureData string `json:"signature_data"`
}

type resetRequest struct {
	Reason string `json:"reason"`
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	BranchID int64  `json:"branch_id"`
}

type createContractRequest struct {
	ClientName          string          `json:"client_name"`
	ClientPhone         string          `json:"client_phone"`
	ClientEmail         string          `json:"client_email"`
	ContractType        string          `json:"contract_type"`
	Value               decimal.Decimal `json:"value"`
	DurationMonths      int             `json:"duration_months"`
	ServicesDescription string          `json:"services_description"`
	TermsAndConditions  string          `json:"terms_and_conditions"`
	BranchID            int64           `json:"branch_id"`
}

type updateContractRequest struct {
	ClientName          *string          `json:"client_name"`
	ClientPhone         *string          `json:"client_phone"`
	ClientEmail         *string          `json:"client_email"`
	ContractType        *string          `json:"contract_type"`
	Value               *decimal.Decimal `json:"value"`
	DurationMonths      *int             `json:"duration_months"`
	ServicesDescription *string          `json:"services_description"`
	TermsAndConditions  *string          `json:"terms_and_conditions"`
}

func (r updateContractRequest) patch() domain.ContractPatch {
	p := domain.ContractPatch{
		ClientName:          r.ClientName,
		ClientPhone:         r.ClientPhone,
		ClientEmail:         r.ClientEmail,
		Value:               r.Value,
		DurationMonths:      r.DurationMonths,
		ServicesDescription: r.ServicesDescription,
		TermsAndConditions:  r.TermsAndConditions,
	}
	if r.ContractType != nil {
		t := domain.ContractType(*r.ContractType)
		p.ContractType = &t
	}
	return p
}

type addPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	DueDate       string          `json:"due_date"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
}

type markPaidRequest struct {
	PaidDate      string `json:"paid_date"`
	PaymentMethod string `json:"payment_method"`
}

// bindJSON decodes the request body. An empty body is accepted when the
// payload is optional.
func bindJSON(c *gin.Context, dst any, optional bool) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", domain.ErrValidation, name)
	}
	return id, nil
}

func queryInt64(c *gin.Context, key string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", domain.ErrValidation, key)
	}
	return &v, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v, err := queryInt64(c, key)
	if err != nil || v == nil {
		return 0, err
	}
	if *v < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", domain.ErrValidation, key)
	}
	return int(*v), nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", domain.ErrValidation, key)
	}
	return &t, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeError(c, err)
		return
	}
	res, err := s.identity.Login(c.Request.Context(), req.Email, req.Password, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      res.Token,
		"token_type": "Bearer",
		"expires_at": res.ExpiresAt,
		"user":       toUserResponse(res.User),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	principal, _ := getPrincipal(c)
	if err := s.identity.Logout(c.Request.Context(), principal, requestMeta(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.identity.Me(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) handleSetSignature(c *gin.Context) {
	var req signatureRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeError(c, err)
		return
	}
	if err := s.identity.SetSignature(c.Request.Context(), actor(c), req.SignatureData, requestMeta(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListBranches(c *gin.Context) {
	branches, err := s.identity.ListBranches(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]gin.H, 0, len(branches))
	for _, b := range branches {
		items = append(items, gin.H{"id": b.ID, "code": b.Code, "name": b.Name, "address": b.Address})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeError(c, err)
		return
	}
	user, err := s.identity.CreateUser(c.Request.Context(), actor(c), usecase.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		BranchID: req.BranchID,
	}, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleCreateContract(c *gin.Context) {
	var req createContractRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeError(c, err)
		return
	}
	created, err := s.contracts.CreateContract(c.Request.Context(), actor(c), usecase.CreateContractInput{
		Terms: domain.ContractTerms{
			ClientName:          req.ClientName,
			ClientPhone:         req.ClientPhone,
			ClientEmail:         req.ClientEmail,
			ContractType:        domain.ContractType(req.ContractType),
			Value:               req.Value,
			DurationMonths:      req.DurationMonths,
			ServicesDescription: req.ServicesDescription,
			TermsAndConditions:  req.TermsAndConditions,
		},
		BranchID: req.BranchID,
	}, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toContractResponse(created))
}

func (s *Server) handleListContracts(c *gin.Context) {
	filter, err := contractFilterFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	page, err := s.contracts.ListContracts(c.Request.Context(), actor(c), filter, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]contractResponse, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, toContractResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": page.Total})
}

func contractFilterFromQuery(c *gin.Context) (domain.ContractFilter, error) {
	filter := domain.ContractFilter{
		Status:         domain.ContractStatus(strings.TrimSpace(c.Query("status"))),
		ContractType:   domain.ContractType(strings.TrimSpace(c.Query("contract_type"))),
		ClientName:     strings.TrimSpace(c.Query("client_name")),
		ContractNumber: strings.TrimSpace(c.Query("contract_number")),
		Query:          strings.TrimSpace(c.Query("q")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}
	if filter.ContractType != "" && !filter.ContractType.Valid() {
		return filter, fmt.Errorf("%w: unknown contract_type %q", domain.ErrValidation, filter.ContractType)
	}
	var err error
	if filter.BranchID, err = queryInt64(c, "branch_id"); err != nil {
		return filter, err
	}
	if filter.CreatedBy, err = queryInt64(c, "created_by"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom, err = queryTime(c, "created_from"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = queryTime(c, "created_to"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (s *Server) handleGetContract(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	contract, err := s.contracts.GetContract(c.Request.Context(), actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	out := toContractResponse(contract)
	workflow := domain.WorkflowOf(contract)
	out.Workflow = &workflow
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleUpdateContract(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var req updateContractRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeError(c, err)
		return
	}
	updated, err := s.contracts.UpdateTerms(c.Request.Context(), actor(c), id, req.patch(), requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(updated))
}

func (s *Server) handleDeleteContract(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.contracts.DeleteContract(c.Request.Context(), actor(c), id, requestMeta(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRequestSignature(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	req, err := s.contracts.RequestSignature(c.Request.Context(), actor(c), id, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contract":     toContractResponse(req.Contract),
		"signing_link": req.SigningLink,
		"expires_at":   req.ExpiresAt,
	})
}

func (s *Server) handleApprove(c *gin.Context) {
	s.handleStaffSignature(c, s.contracts.ApproveAsEmployee)
}

func (s *Server) handleSeal(c *gin.Context) {
	s.handleStaffSignature(c, s.contracts.SealAsManagement)
}

type staffSignFunc func(ctx context.Context, actor domain.Actor, contractID int64, payload string, meta domain.RequestMeta) (domain.Contract, error)

// handleStaffSignature serves approve and seal. The body is optional: an
// empty signature falls back to the one stored on the user.
func (s *Server) handleStaffSignature(c *gin.Context, sign staffSignFunc) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var req signatureRequest
	if err := bindJSON(c, &req, true); err != nil {
		writeError(c, err)
		return
	}
	updated, err := sign(c.Request.Context(), actor(c), id, req.SignatureData, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(updated))
}

func (s *Server) handleArchive(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	archived, err := s.contracts.ArchiveContract(c.Request.Context(), actor(c), id, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(archived))
}

func (s *Server) handleReset(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var req resetRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeError(c, err)
		return
	}
	reset, err := s.contracts.ResetToDraft(c.Request.Context(), actor(c), id, req.Reason, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(reset))
}

func (s *Server) handleListSignatures(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	signatures, err := s.contracts.ListSignatures(c.Request.Context(), actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]signatureResponse, 0, len(signatures))
	for _, sig := range signatures {
		items = append(items, signatureResponse{
			ID:            sig.ID,
			ContractID:    sig.ContractID,
			UserID:        sig.UserID,
			SignatureType: string(sig.SignatureType),
			SignatureData: sig.SignatureData,
			Round:         sig.Round,
			SignedAt:      sig.SignedAt,
			IPAddress:     sig.IPAddress,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleExport(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if s.export == nil {
		writeError(c, fmt.Errorf("%w: export disabled", domain.ErrNotFound))
		return
	}
	res, err := s.export.ExportContract(c.Request.Context(), actor(c), id, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListPayments(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	payments, err := s.payments.ListPayments(c.Request.Context(), actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, toPaymentResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleAddPayment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var req addPaymentRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeError(c, err)
		return
	}
	in := usecase.AddPaymentInput{
		Amount:        req.Amount,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
	}
	if req.DueDate != "" {
		due, err := parseDate(req.DueDate)
		if err != nil {
			writeError(c, fmt.Errorf("%w: invalid due_date", domain.ErrValidation))
			return
		}
		in.DueDate = due
	}
	created, err := s.payments.AddPayment(c.Request.Context(), actor(c), id, in, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaymentResponse(created))
}

func (s *Server) handleMarkPaid(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var req markPaidRequest
	if err := bindJSON(c, &req, true); err != nil {
		writeError(c, err)
		return
	}
	in := usecase.MarkPaidInput{PaymentMethod: domain.PaymentMethod(req.PaymentMethod)}
	if req.PaidDate != "" {
		paid, err := parseDate(req.PaidDate)
		if err != nil {
			writeError(c, fmt.Errorf("%w: invalid paid_date", domain.ErrValidation))
			return
		}
		in.PaidDate = &paid
	}
	updated, err := s.payments.MarkPaid(c.Request.Context(), actor(c), id, in, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(updated))
}

func (s *Server) handleListNotifications(c *gin.Context) {
	unread := strings.EqualFold(c.Query("unread"), "true")
	notes, err := s.notifications.List(c.Request.Context(), actor(c), unread)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]notificationResponse, 0, len(notes))
	for _, n := range notes {
		items = append(items, notificationResponse{
			ID:         n.ID,
			Type:       string(n.Type),
			Title:      n.Title,
			Message:    n.Message,
			ContractID: n.ContractID,
			PaymentID:  n.PaymentID,
			Read:       n.Read,
			CreatedAt:  n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.notifications.MarkRead(c.Request.Context(), actor(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListAudit(c *gin.Context) {
	filter, err := auditFilterFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	entries, err := s.audit.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]auditResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toAuditResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func auditFilterFromQuery(c *gin.Context) (domain.AuditFilter, error) {
	filter := domain.AuditFilter{
		TableName:  strings.TrimSpace(c.Query("table_name")),
		ActionType: domain.AuditAction(strings.TrimSpace(c.Query("action_type"))),
	}
	if filter.ActionType != "" && !filter.ActionType.Valid() {
		return filter, fmt.Errorf("%w: unknown action_type %q", domain.ErrValidation, filter.ActionType)
	}
	var err error
	if filter.UserID, err = queryInt64(c, "user_id"); err != nil {
		return filter, err
	}
	if filter.BranchID, err = queryInt64(c, "branch_id"); err != nil {
		return filter, err
	}
	if filter.RecordID, err = queryInt64(c, "record_id"); err != nil {
		return filter, err
	}
	if filter.Since, err = queryTime(c, "since"); err != nil {
		return filter, err
	}
	if filter.Until, err = queryTime(c, "until"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (s *Server) handleVerifyAudit(c *gin.Context) {
	report, err := s.audit.Verify(c.Request.Context(), actor(c))
	var chainErr *usecase.ChainError
	if errors.As(err, &chainErr) {
		c.JSON(http.StatusOK, gin.H{
			"valid":       false,
			"entries":     report.Entries,
			"failed_seq":  chainErr.Seq,
			"fail_reason": chainErr.Reason,
		})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"entries":   report.Entries,
		"head_seq":  report.HeadSeq,
		"head_hash": report.HeadHash,
	})
}

func (s *Server) handlePublicContract(c *gin.Context) {
	contract, err := s.contracts.PublicContract(c.Request.Context(), c.Param("link"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublicContractResponse(contract))
}

func (s *Server) handleClientSign(c *gin.Context) {
	var req signatureRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeError(c, err)
		return
	}
	signed, err := s.contracts.SignAsClient(c.Request.Context(), c.Param("link"), req.SignatureData, requestMeta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublicContractResponse(signed))
}
