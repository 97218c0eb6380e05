package domain

import (
	"fmt"
	"time"
)

type ContractEvent string

const (
	EventRequestSignature ContractEvent = "request_signature"
	EventClientSign       ContractEvent = "client_sign"
	EventEmployeeApprove  ContractEvent = "employee_approve"
	EventManagementSeal   ContractEvent = "management_seal"
	EventArchive          ContractEvent = "archive"
	EventResetToDraft     ContractEvent = "reset_to_draft"
)

type Transition struct {
	Event ContractEvent
	From  ContractStatus
	To    ContractStatus
}

var forwardTransitions = map[ContractEvent]Transition{
	EventRequestSignature: {EventRequestSignature, StatusDraft, StatusPendingClientSignature},
	EventClientSign:       {EventClientSign, StatusPendingClientSignature, StatusClientSigned},
	EventEmployeeApprove:  {EventEmployeeApprove, StatusClientSigned, StatusEmployeeApproved},
	EventManagementSeal:   {EventManagementSeal, StatusEmployeeApproved, StatusFullyExecuted},
	EventArchive:          {EventArchive, StatusFullyExecuted, StatusArchived},
}

// CheckTransition validates that event may fire from the given status.
func CheckTransition(from ContractStatus, event ContractEvent) (Transition, error) {
	if event == EventResetToDraft {
		if !CanResetToDraft(from) {
			return Transition{}, fmt.Errorf("%w: cannot reset %s contract to draft", ErrInvalidState, from)
		}
		return Transition{Event: event, From: from, To: StatusDraft}, nil
	}
	t, ok := forwardTransitions[event]
	if !ok {
		return Transition{}, fmt.Errorf("%w: unknown event %q", ErrInvalidState, event)
	}
	if t.From != from {
		return Transition{}, fmt.Errorf("%w: %s requires status %s, contract is %s", ErrInvalidState, event, t.From, from)
	}
	return t, nil
}

// CanResetToDraft reports whether the admin override may roll a contract
// back. Locked and archived contracts are never revived.
func CanResetToDraft(status ContractStatus) bool {
	switch status {
	case StatusPendingClientSignature, StatusClientSigned, StatusEmployeeApproved:
		return true
	}
	return false
}

// StatusChange is a conditional update of a single contract row. The update
// applies only while the row is still in From (and, for client signing, while
// the link matches and has not expired).
type StatusChange struct {
	ContractID int64
	From       ContractStatus
	To         ContractStatus
	At         time.Time

	SigningLink   string
	LinkExpiresAt *time.Time

	StampClientSigned       bool
	StampEmployeeSigned     bool
	StampManagementApproved bool
	Lock                    bool

	// RequireLink restricts the update to rows carrying this signing link
	// with link_expires_at after At.
	RequireLink string
	// ResetWorkflow clears the link and workflow timestamps and opens a new
	// signature round.
	ResetWorkflow bool
}

type WorkflowStep struct {
	Step        string     `json:"step"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type WorkflowView struct {
	ContractID  int64          `json:"contract_id"`
	Steps       []WorkflowStep `json:"steps"`
	CurrentStep int            `json:"current_step"`
	IsComplete  bool           `json:"is_complete"`
}

func WorkflowOf(c Contract) WorkflowView {
	steps := []WorkflowStep{
		{Step: "client_sign", Completed: c.ClientSignedAt != nil, CompletedAt: c.ClientSignedAt},
		{Step: "employee_approve", Completed: c.EmployeeSignedAt != nil, CompletedAt: c.EmployeeSignedAt},
		{Step: "management_seal", Completed: c.ManagementApprovedAt != nil, CompletedAt: c.ManagementApprovedAt},
	}
	current := len(steps)
	for i, step := range steps {
		if !step.Completed {
			current = i
			break
		}
	}
	return WorkflowView{
		ContractID:  c.ID,
		Steps:       steps,
		CurrentStep: current,
		IsComplete:  current == len(steps),
	}
}
