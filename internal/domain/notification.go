package domain

import "time"

type NotificationType string

const (
	NotifyPaymentDue        NotificationType = "payment_due"
	NotifyContractExpiring  NotificationType = "contract_expiring"
	NotifySignatureRequired NotificationType = "signature_required"
	NotifyContractSigned    NotificationType = "contract_signed"
	NotifyPaymentOverdue    NotificationType = "payment_overdue"
)

type Notification struct {
	ID         int64
	UserID     int64
	Type       NotificationType
	Title      string
	Message    string
	ContractID *int64
	PaymentID  *int64
	Read       bool
	CreatedAt  time.Time
}
