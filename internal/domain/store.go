package domain

import (
	"context"
	"time"
)

type ContractRepository interface {
	Create(ctx context.Context, c Contract) (Contract, error)
	Get(ctx context.Context, id int64) (Contract, error)
	GetBySigningLink(ctx context.Context, link string) (Contract, error)
	List(ctx context.Context, filter ContractFilter) (ContractPage, error)
	// Transition applies change atomically and reports whether a row matched.
	Transition(ctx context.Context, change StatusChange) (bool, error)
	// UpdateTerms rewrites commercial terms of an unlocked contract that is
	// still in expected status. It reports whether a row matched.
	UpdateTerms(ctx context.Context, id int64, expected ContractStatus, terms ContractTerms, at time.Time) (bool, error)
	Delete(ctx context.Context, id int64) error
	ListExpiring(ctx context.Context, status ContractStatus) ([]Contract, error)
}

type SignatureRepository interface {
	Create(ctx context.Context, s Signature) (Signature, error)
	ListByContract(ctx context.Context, contractID int64) ([]Signature, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p Payment) (Payment, error)
	Get(ctx context.Context, id int64) (Payment, error)
	ListByContract(ctx context.Context, contractID int64) ([]Payment, error)
	// ListUnpaidDueBefore returns unpaid payments due strictly before day.
	ListUnpaidDueBefore(ctx context.Context, day time.Time, status PaymentStatus) ([]Payment, error)
	ListUnpaidDueBetween(ctx context.Context, from, to time.Time) ([]Payment, error)
	MarkPaid(ctx context.Context, id int64, paidDate time.Time, method PaymentMethod) (bool, error)
	SetStatus(ctx context.Context, id int64, from, to PaymentStatus) (bool, error)
}

type AuditLogRepository interface {
	Append(ctx context.Context, entry AuditLog) (AuditLog, error)
	List(ctx context.Context, filter AuditFilter) ([]AuditLog, error)
	ListChain(ctx context.Context) ([]AuditLog, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID int64) (bool, error)
	Exists(ctx context.Context, userID int64, kind NotificationType, contractID, paymentID *int64) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	ListByBranchRole(ctx context.Context, branchID int64, role Role) ([]User, error)
	SetSignature(ctx context.Context, id int64, data string) error
	CountByRole(ctx context.Context, role Role) (int64, error)
}

type BranchRepository interface {
	Create(ctx context.Context, b Branch) (Branch, error)
	Get(ctx context.Context, id int64) (Branch, error)
	List(ctx context.Context) ([]Branch, error)
}

// Repositories is a set of repositories bound to one connection or
// transaction.
type Repositories interface {
	Contracts() ContractRepository
	Signatures() SignatureRepository
	Payments() PaymentRepository
	AuditLogs() AuditLogRepository
	Notifications() NotificationRepository
	Users() UserRepository
	Branches() BranchRepository
}

// Store is the persistence handle threaded through the services. WithinTx
// runs fn against repositories bound to a single transaction; fn's error
// rolls everything back.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
}
