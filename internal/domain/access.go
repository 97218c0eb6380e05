package domain

import "fmt"

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type Operation string

const (
	OpContractView             Operation = "contract:view"
	OpContractCreate           Operation = "contract:create"
	OpContractEdit             Operation = "contract:edit"
	OpContractRequestSignature Operation = "contract:request_signature"
	OpContractApprove          Operation = "contract:approve"
	OpContractSeal             Operation = "contract:seal"
	OpContractArchive          Operation = "contract:archive"
	OpContractRollback         Operation = "contract:rollback"
	OpContractDelete           Operation = "contract:delete"
	OpContractExport           Operation = "contract:export"
	OpPaymentWrite             Operation = "payment:write"
	OpAuditRead                Operation = "audit:read"
	OpUserManage               Operation = "user:manage"
)

// Operations lists every operation the guard knows about.
func Operations() []Operation {
	return []Operation{
		OpContractView, OpContractCreate, OpContractEdit, OpContractRequestSignature,
		OpContractApprove, OpContractSeal, OpContractArchive, OpContractRollback,
		OpContractDelete, OpContractExport, OpPaymentWrite, OpAuditRead, OpUserManage,
	}
}

// Actor is the identity facts the workflow needs about a caller.
type Actor struct {
	UserID   int64
	Email    string
	Role     Role
	BranchID int64
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type AccessRequest struct {
	Role             Role
	ActorBranchID    int64
	ContractBranchID int64
	Operation        Operation
}

func (a Actor) Request(op Operation, contractBranchID int64) AccessRequest {
	return AccessRequest{
		Role:             a.Role,
		ActorBranchID:    a.BranchID,
		ContractBranchID: contractBranchID,
		Operation:        op,
	}
}

// AccessGuard decides whether a request is allowed. Implementations must be
// pure functions of the request.
type AccessGuard interface {
	Check(req AccessRequest) error
}

const (
	AccessRoleNotPermitted = "ROLE_NOT_PERMITTED"
	AccessBranchMismatch   = "BRANCH_MISMATCH"
	AccessUnknownOperation = "UNKNOWN_OPERATION"
	AccessNotCreator       = "NOT_CREATOR"
)

type AccessError struct {
	Code      string
	Operation Operation
}

func (e *AccessError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("forbidden: %s (%s)", e.Operation, e.Code)
}

func (e *AccessError) Unwrap() error {
	return ErrForbidden
}
