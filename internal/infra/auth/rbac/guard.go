package rbac

import (
	"errors"

	"contractflow/internal/domain"
)

type rule struct {
	roles []domain.Role
	// branchScoped operations require the contract to belong to the actor's
	// branch unless the actor is an admin.
	branchScoped bool
}

var anyRole = []domain.Role{domain.RoleEmployee, domain.RoleManager, domain.RoleAdmin}

var rules = map[domain.Operation]rule{
	domain.OpContractView:             {roles: anyRole, branchScoped: true},
	domain.OpContractCreate:           {roles: anyRole, branchScoped: true},
	domain.OpContractEdit:             {roles: anyRole, branchScoped: true},
	domain.OpContractRequestSignature: {roles: anyRole, branchScoped: true},
	domain.OpContractApprove:          {roles: anyRole, branchScoped: true},
	domain.OpPaymentWrite:             {roles: anyRole, branchScoped: true},
	domain.OpContractExport:           {roles: anyRole, branchScoped: true},
	domain.OpContractSeal:             {roles: []domain.Role{domain.RoleManager, domain.RoleAdmin}, branchScoped: true},
	domain.OpContractArchive:          {roles: []domain.Role{domain.RoleManager, domain.RoleAdmin}, branchScoped: true},
	domain.OpAuditRead:                {roles: []domain.Role{domain.RoleManager, domain.RoleAdmin}, branchScoped: true},
	domain.OpContractRollback:         {roles: []domain.Role{domain.RoleAdmin}},
	domain.OpContractDelete:           {roles: []domain.Role{domain.RoleAdmin}},
	domain.OpUserManage:               {roles: []domain.Role{domain.RoleAdmin}},
}

// Guard is the rule-table access guard.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

func (g *Guard) Check(req domain.AccessRequest) error {
	r, ok := rules[req.Operation]
	if !ok {
		return &domain.AccessError{Code: domain.AccessUnknownOperation, Operation: req.Operation}
	}
	if !hasRole(r.roles, req.Role) {
		return &domain.AccessError{Code: domain.AccessRoleNotPermitted, Operation: req.Operation}
	}
	if req.Role == domain.RoleAdmin {
		return nil
	}
	if r.branchScoped && req.ActorBranchID != req.ContractBranchID {
		return &domain.AccessError{Code: domain.AccessBranchMismatch, Operation: req.Operation}
	}
	return nil
}

func hasRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func IsAccessError(err error) (*domain.AccessError, bool) {
	var accessErr *domain.AccessError
	if errors.As(err, &accessErr) {
		return accessErr, true
	}
	return nil, false
}

var _ domain.AccessGuard = (*Guard)(nil)
