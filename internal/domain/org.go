package domain

import "time"

type Branch struct {
	ID        int64
	Code      string
	Name      string
	Address   string
	CreatedAt time.Time
}

type User struct {
	ID            int64
	Email         string
	PasswordHash  string
	Role          Role
	BranchID      int64
	SignatureData string
	CreatedAt     time.Time
}

func (u User) Actor() Actor {
	return Actor{
		UserID:   u.ID,
		Email:    u.Email,
		Role:     u.Role,
		BranchID: u.BranchID,
	}
}

func (u User) Snapshot() map[string]any {
	return map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"role":          string(u.Role),
		"branch_id":     u.BranchID,
		"has_signature": u.SignatureData != "",
	}
}

// DefaultBranches are seeded into an empty store.
var DefaultBranches = []Branch{
	{Code: "JED", Name: "جدة", Address: "جدة، المملكة العربية السعودية"},
	{Code: "MEC", Name: "مكة", Address: "مكة المكرمة، المملكة العربية السعودية"},
	{Code: "AHS", Name: "الأحساء", Address: "الأحساء، المملكة العربية السعودية"},
	{Code: "HAL", Name: "حلي", Address: "حلي، المملكة العربية السعودية"},
}
