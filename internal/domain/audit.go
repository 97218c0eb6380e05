package domain

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditLogin   AuditAction = "login"
	AuditLogout  AuditAction = "logout"
	AuditSign    AuditAction = "sign"
	AuditApprove AuditAction = "approve"
	AuditExport  AuditAction = "export"
	AuditSearch  AuditAction = "search"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreate, AuditUpdate, AuditDelete, AuditLogin, AuditLogout,
		AuditSign, AuditApprove, AuditExport, AuditSearch:
		return true
	}
	return false
}

const (
	AuditChainVersion = "contractflow_audit_v1"

	TableContracts     = "contracts"
	TableSignatures    = "signatures"
	TablePayments      = "payments"
	TableUsers         = "users"
	TableNotifications = "notifications"
)

type AuditLog struct {
	ID          int64
	Seq         int64
	UserID      *int64
	ActionType  AuditAction
	TableName   string
	RecordID    *int64
	OldValues   json.RawMessage
	NewValues   json.RawMessage
	BranchID    *int64
	IPAddress   string
	UserAgent   string
	Description string
	PayloadHash string
	PrevHash    string
	EntryHash   string
	CreatedAt   time.Time
}

type AuditFilter struct {
	UserID     *int64
	BranchID   *int64
	RecordID   *int64
	TableName  string
	ActionType AuditAction
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}
