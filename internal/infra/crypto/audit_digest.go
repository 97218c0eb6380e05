package crypto

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"contractflow/internal/domain"
)

// ZeroHash is the prev_hash of the first audit entry.
var ZeroHash = strings.Repeat("0", 64)

// AuditPayloadHash hashes the content columns of an audit entry.
func AuditPayloadHash(entry domain.AuditLog) (string, error) {
	payload := map[string]any{
		"action_type": string(entry.ActionType),
		"table_name":  entry.TableName,
		"user_id":     int64PtrValue(entry.UserID),
		"record_id":   int64PtrValue(entry.RecordID),
		"branch_id":   int64PtrValue(entry.BranchID),
		"old_values":  rawOrNull(entry.OldValues),
		"new_values":  rawOrNull(entry.NewValues),
		"ip_address":  entry.IPAddress,
		"user_agent":  entry.UserAgent,
		"description": entry.Description,
	}
	canonical, err := CanonicalizeAny(payload)
	if err != nil {
		return "", err
	}
	return SHA256Hex(canonical), nil
}

// AuditEntryHash links an entry to its predecessor.
func AuditEntryHash(entry domain.AuditLog) (string, error) {
	if entry.PayloadHash == "" {
		return "", errors.New("payload_hash is required")
	}
	if entry.PrevHash == "" {
		return "", errors.New("prev_hash is required")
	}
	canonical, err := CanonicalizeAny(map[string]any{
		"v":            domain.AuditChainVersion,
		"seq":          entry.Seq,
		"action_type":  string(entry.ActionType),
		"payload_hash": entry.PayloadHash,
		"prev_hash":    entry.PrevHash,
		"created_at":   entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}
	return SHA256Hex(canonical), nil
}

func int64PtrValue(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
