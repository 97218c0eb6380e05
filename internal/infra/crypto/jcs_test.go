package crypto

import (
	"encoding/json"
	"testing"
	"time"

	"contractflow/internal/domain"
)

func TestCanonicalizeJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"sorted keys", `{"b":1,"a":{"d":true,"c":null}}`, `{"a":{"c":null,"d":true},"b":1}`},
		{"whitespace", "{ \"client_name\" : \"Noor\" ,\n \"value\": \"50000.00\" }", `{"client_name":"Noor","value":"50000.00"}`},
		{"numbers", `[1.0, 1e3, -0.5, 100000000000000000000000]`, `[1,1000,-0.5,1e23]`},
		{"unicode kept", `{"name":"جدة"}`, `{"name":"جدة"}`},
		{"control escaped", `"a\u0001b"`, `"a\u0001b"`},
		{"empty", ``, `null`},
	}
	for _, tc := range cases {
		got, err := CanonicalizeJSON([]byte(tc.in))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if string(got) != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestCanonicalizeJSON_RejectsInvalid(t *testing.T) {
	for _, in := range []string{`{"a":`, `{"a":1} {"b":2}`, `nope`} {
		if _, err := CanonicalizeJSON([]byte(in)); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestCanonicalizeAny_NestedRawMessage(t *testing.T) {
	got, err := CanonicalizeAny(map[string]any{
		"z":   json.RawMessage(`{"y": 2, "x": 1}`),
		"id":  int64(7),
		"set": []string{"b", "a"},
	})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(got) != `{"id":7,"set":["b","a"],"z":{"x":1,"y":2}}` {
		t.Fatalf("unexpected canonical form %s", got)
	}
}

func TestAuditHashes(t *testing.T) {
	userID, recordID := int64(3), int64(9)
	entry := domain.AuditLog{
		Seq:         1,
		UserID:      &userID,
		ActionType:  domain.AuditCreate,
		TableName:   domain.TableContracts,
		RecordID:    &recordID,
		NewValues:   json.RawMessage(`{"status":"draft","value":"50000.00"}`),
		Description: "contract created",
		PrevHash:    ZeroHash,
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	payload, err := AuditPayloadHash(entry)
	if err != nil {
		t.Fatalf("payload hash: %v", err)
	}
	reordered := entry
	reordered.NewValues = json.RawMessage(`{ "value": "50000.00", "status": "draft" }`)
	if again, _ := AuditPayloadHash(reordered); again != payload {
		t.Fatal("payload hash must not depend on JSON key order")
	}
	tampered := entry
	tampered.Description = "edited"
	if other, _ := AuditPayloadHash(tampered); other == payload {
		t.Fatal("payload hash must cover the description")
	}

	entry.PayloadHash = payload
	first, err := AuditEntryHash(entry)
	if err != nil {
		t.Fatalf("entry hash: %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("unexpected hash %q", first)
	}
	entry.PrevHash = first
	if second, _ := AuditEntryHash(entry); second == first {
		t.Fatal("entry hash must cover prev_hash")
	}
	entry.PayloadHash = ""
	if _, err := AuditEntryHash(entry); err == nil {
		t.Fatal("expected error without payload hash")
	}
}
