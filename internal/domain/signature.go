package domain

import "time"

type SignatureType string

const (
	SignatureClient         SignatureType = "client"
	SignatureEmployee       SignatureType = "employee"
	SignatureManagementSeal SignatureType = "management_seal"
)

type Signature struct {
	ID            int64
	ContractID    int64
	UserID        *int64
	SignatureType SignatureType
	SignatureData string
	Round         int
	SignedAt      time.Time
	IPAddress     string
}

func (s Signature) Snapshot() map[string]any {
	out := map[string]any{
		"id":             s.ID,
		"contract_id":    s.ContractID,
		"signature_type": string(s.SignatureType),
		"round":          s.Round,
		"signed_at":      s.SignedAt.UTC().Format(time.RFC3339Nano),
	}
	if s.UserID != nil {
		out["user_id"] = *s.UserID
	}
	if s.IPAddress != "" {
		out["ip_address"] = s.IPAddress
	}
	return out
}
