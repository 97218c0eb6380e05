package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BranchModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:text;not null"`
	Code      string    `gorm:"type:varchar(16);uniqueIndex;not null"`
	Address   *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

func (BranchModel) TableName() string {
	return "branches"
}

type UserModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Email         string    `gorm:"type:varchar(320);uniqueIndex;not null"`
	PasswordHash  string    `gorm:"type:text;not null"`
	Role          string    `gorm:"type:varchar(16);not null;check:chk_users_role,role IN ('employee','manager','admin')"`
	BranchID      int64     `gorm:"index;not null"`
	SignatureData *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`

	Branch BranchModel `gorm:"foreignKey:BranchID;constraint:OnDelete:RESTRICT"`
}

func (UserModel) TableName() string {
	return "users"
}

type ContractModel struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement"`
	ContractNumber       string          `gorm:"type:varchar(64);uniqueIndex;not null"`
	ClientName           string          `gorm:"type:text;not null"`
	ClientPhone          *string         `gorm:"type:text"`
	ClientEmail          *string         `gorm:"type:text"`
	ContractType         string          `gorm:"type:varchar(32);not null;check:chk_contracts_type,contract_type IN ('agreement','concrete_supervision','comprehensive_supervision')"`
	BranchID             int64           `gorm:"index;not null"`
	Value                decimal.Decimal `gorm:"type:numeric(12,2);not null;check:chk_contracts_value,value >= 0"`
	DurationMonths       int             `gorm:"not null;check:chk_contracts_duration,duration_months > 0"`
	Status               string          `gorm:"type:varchar(32);index;not null;default:draft;check:chk_contracts_status,status IN ('draft','pending_client_signature','client_signed','employee_approved','fully_executed','archived')"`
	SigningLink          *string         `gorm:"type:varchar(64);uniqueIndex"`
	LinkExpiresAt        *time.Time
	LockedAt             *time.Time
	ClientSignedAt       *time.Time
	EmployeeSignedAt     *time.Time
	ManagementApprovedAt *time.Time
	SignatureRound       int       `gorm:"not null;default:1"`
	CreatedBy            int64     `gorm:"index;not null"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
	ServicesDescription  *string   `gorm:"type:text"`
	TermsAndConditions   *string   `gorm:"type:text"`

	Branch  BranchModel `gorm:"foreignKey:BranchID;constraint:OnDelete:RESTRICT"`
	Creator UserModel   `gorm:"foreignKey:CreatedBy;constraint:OnDelete:RESTRICT"`
}

func (ContractModel) TableName() string {
	return "contracts"
}

type PaymentModel struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	ContractID    int64           `gorm:"index;not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null;check:chk_payments_amount,amount > 0"`
	DueDate       time.Time       `gorm:"type:date;index;not null"`
	PaidDate      *time.Time      `gorm:"type:date"`
	Status        string          `gorm:"type:varchar(16);index;not null;default:pending;check:chk_payments_status,status IN ('pending','paid','overdue')"`
	PaymentMethod *string         `gorm:"type:varchar(32)"`
	Notes         *string         `gorm:"type:text"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`

	Contract ContractModel `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
}

func (PaymentModel) TableName() string {
	return "payments"
}

type SignatureModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	ContractID    int64     `gorm:"not null;uniqueIndex:ux_signatures_contract_type_round,priority:1"`
	UserID        *int64    `gorm:"index"`
	SignatureType string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_signatures_contract_type_round,priority:2;check:chk_signatures_type,signature_type IN ('client','employee','management_seal')"`
	Round         int       `gorm:"not null;default:1;uniqueIndex:ux_signatures_contract_type_round,priority:3"`
	SignatureData string    `gorm:"type:text;not null"`
	SignedAt      time.Time `gorm:"not null"`
	IPAddress     *string   `gorm:"type:varchar(64)"`

	Contract ContractModel `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
}

func (SignatureModel) TableName() string {
	return "signatures"
}

type AuditLogModel struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	Seq         int64          `gorm:"uniqueIndex;not null"`
	UserID      *int64         `gorm:"index"`
	ActionType  string         `gorm:"type:varchar(16);not null;check:chk_audit_logs_action,action_type IN ('create','update','delete','login','logout','sign','approve','export','search')"`
	Table       string         `gorm:"column:table_name;type:varchar(64);not null"`
	RecordID    *int64         `gorm:"index"`
	OldValues   datatypes.JSON `gorm:"type:json"`
	NewValues   datatypes.JSON `gorm:"type:json"`
	BranchID    *int64         `gorm:"index"`
	IPAddress   *string        `gorm:"type:varchar(64)"`
	UserAgent   *string        `gorm:"type:text"`
	Description *string        `gorm:"type:text"`
	PayloadHash string         `gorm:"type:char(64);not null"`
	PrevHash    string         `gorm:"type:char(64);not null"`
	EntryHash   string         `gorm:"type:char(64);not null"`
	CreatedAt   time.Time      `gorm:"index;not null"`
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}

type AuditSeqModel struct {
	ID  int   `gorm:"primaryKey"`
	Seq int64 `gorm:"not null"`
}

func (AuditSeqModel) TableName() string {
	return "audit_seq"
}

type NotificationModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	UserID     int64     `gorm:"index;not null"`
	Type       string    `gorm:"type:varchar(32);not null;check:chk_notifications_type,type IN ('payment_due','contract_expiring','signature_required','contract_signed','payment_overdue')"`
	Title      string    `gorm:"type:text;not null"`
	Message    string    `gorm:"type:text;not null"`
	ContractID *int64    `gorm:"index"`
	PaymentID  *int64    `gorm:"index"`
	Read       bool      `gorm:"index;not null;default:false"`
	CreatedAt  time.Time `gorm:"not null"`

	User     UserModel      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Contract *ContractModel `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
	Payment  *PaymentModel  `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}
