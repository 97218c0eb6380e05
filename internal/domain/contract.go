package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ContractStatus string

const (
	StatusDraft                  ContractStatus = "draft"
	StatusPendingClientSignature ContractStatus = "pending_client_signature"
	StatusClientSigned           ContractStatus = "client_signed"
	StatusEmployeeApproved       ContractStatus = "employee_approved"
	StatusFullyExecuted          ContractStatus = "fully_executed"
	StatusArchived               ContractStatus = "archived"
)

var statusRank = map[ContractStatus]int{
	StatusDraft:                  0,
	StatusPendingClientSignature: 1,
	StatusClientSigned:           2,
	StatusEmployeeApproved:       3,
	StatusFullyExecuted:          4,
	StatusArchived:               5,
}

func (s ContractStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank orders statuses along the forward path of the workflow.
func (s ContractStatus) Rank() int {
	rank, ok := statusRank[s]
	if !ok {
		return -1
	}
	return rank
}

type ContractType string

const (
	ContractAgreement                ContractType = "agreement"
	ContractConcreteSupervision      ContractType = "concrete_supervision"
	ContractComprehensiveSupervision ContractType = "comprehensive_supervision"
)

func (t ContractType) Valid() bool {
	switch t {
	case ContractAgreement, ContractConcreteSupervision, ContractComprehensiveSupervision:
		return true
	}
	return false
}

type Contract struct {
	ID                   int64
	ContractNumber       string
	ClientName           string
	ClientPhone          string
	ClientEmail          string
	ContractType         ContractType
	BranchID             int64
	CreatedBy            int64
	Value                decimal.Decimal
	DurationMonths       int
	Status               ContractStatus
	SigningLink          string
	LinkExpiresAt        *time.Time
	ClientSignedAt       *time.Time
	EmployeeSignedAt     *time.Time
	ManagementApprovedAt *time.Time
	LockedAt             *time.Time
	SignatureRound       int
	ServicesDescription  string
	TermsAndConditions   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (c Contract) Locked() bool {
	return c.LockedAt != nil
}

// LinkExpired reports whether the signing link can no longer be used at now.
func (c Contract) LinkExpired(now time.Time) bool {
	return c.LinkExpiresAt == nil || !now.Before(*c.LinkExpiresAt)
}

// Snapshot is the audit representation of a contract row.
func (c Contract) Snapshot() map[string]any {
	out := map[string]any{
		"id":              c.ID,
		"contract_number": c.ContractNumber,
		"client_name":     c.ClientName,
		"contract_type":   string(c.ContractType),
		"branch_id":       c.BranchID,
		"created_by":      c.CreatedBy,
		"value":           c.Value.StringFixed(2),
		"duration_months": c.DurationMonths,
		"status":          string(c.Status),
		"signature_round": c.SignatureRound,
	}
	if c.ClientPhone != "" {
		out["client_phone"] = c.ClientPhone
	}
	if c.ClientEmail != "" {
		out["client_email"] = c.ClientEmail
	}
	if c.ServicesDescription != "" {
		out["services_description"] = c.ServicesDescription
	}
	if c.TermsAndConditions != "" {
		out["terms_and_conditions"] = c.TermsAndConditions
	}
	putTime(out, "link_expires_at", c.LinkExpiresAt)
	putTime(out, "client_signed_at", c.ClientSignedAt)
	putTime(out, "employee_signed_at", c.EmployeeSignedAt)
	putTime(out, "management_approved_at", c.ManagementApprovedAt)
	putTime(out, "locked_at", c.LockedAt)
	return out
}

func putTime(out map[string]any, key string, t *time.Time) {
	if t != nil {
		out[key] = t.UTC().Format(time.RFC3339Nano)
	}
}

type ContractTerms struct {
	ClientName          string
	ClientPhone         string
	ClientEmail         string
	ContractType        ContractType
	Value               decimal.Decimal
	DurationMonths      int
	ServicesDescription string
	TermsAndConditions  string
}

func (t ContractTerms) Validate() error {
	if strings.TrimSpace(t.ClientName) == "" {
		return fmt.Errorf("%w: client_name is required", ErrValidation)
	}
	if !t.ContractType.Valid() {
		return fmt.Errorf("%w: unknown contract_type %q", ErrValidation, t.ContractType)
	}
	if !t.Value.IsPositive() {
		return fmt.Errorf("%w: value must be positive", ErrValidation)
	}
	if t.DurationMonths <= 0 {
		return fmt.Errorf("%w: duration_months must be positive", ErrValidation)
	}
	return nil
}

// ContractPatch carries optional term changes; nil fields are left untouched.
type ContractPatch struct {
	ClientName          *string
	ClientPhone         *string
	ClientEmail         *string
	ContractType        *ContractType
	Value               *decimal.Decimal
	DurationMonths      *int
	ServicesDescription *string
	TermsAndConditions  *string
}

func (p ContractPatch) Empty() bool {
	return p.ClientName == nil && p.ClientPhone == nil && p.ClientEmail == nil &&
		p.ContractType == nil && p.Value == nil && p.DurationMonths == nil &&
		p.ServicesDescription == nil && p.TermsAndConditions == nil
}

// Apply returns the terms of c with the patch applied.
func (p ContractPatch) Apply(c Contract) ContractTerms {
	terms := ContractTerms{
		ClientName:          c.ClientName,
		ClientPhone:         c.ClientPhone,
		ClientEmail:         c.ClientEmail,
		ContractType:        c.ContractType,
		Value:               c.Value,
		DurationMonths:      c.DurationMonths,
		ServicesDescription: c.ServicesDescription,
		TermsAndConditions:  c.TermsAndConditions,
	}
	if p.ClientName != nil {
		terms.ClientName = *p.ClientName
	}
	if p.ClientPhone != nil {
		terms.ClientPhone = *p.ClientPhone
	}
	if p.ClientEmail != nil {
		terms.ClientEmail = *p.ClientEmail
	}
	if p.ContractType != nil {
		terms.ContractType = *p.ContractType
	}
	if p.Value != nil {
		terms.Value = *p.Value
	}
	if p.DurationMonths != nil {
		terms.DurationMonths = *p.DurationMonths
	}
	if p.ServicesDescription != nil {
		terms.ServicesDescription = *p.ServicesDescription
	}
	if p.TermsAndConditions != nil {
		terms.TermsAndConditions = *p.TermsAndConditions
	}
	return terms
}

type ContractFilter struct {
	BranchID       *int64
	Status         ContractStatus
	ContractType   ContractType
	ClientName     string
	ContractNumber string
	CreatedBy      *int64
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Query          string
	Limit          int
	Offset         int
}

type ContractPage struct {
	Items []Contract
	Total int64
}
