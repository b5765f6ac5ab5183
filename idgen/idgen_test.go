package idgen

import (
	"strings"
	"testing"
	"time"
)

func TestNewAudit(t *testing.T) {
	id := NewAudit()
	if !strings.HasPrefix(id, AuditPrefix) {
		t.Fatalf("NewAudit() = %q, want prefix %q", id, AuditPrefix)
	}
	if len(id) != len(AuditPrefix)+36 {
		t.Fatalf("NewAudit() length = %d, want %d", len(id), len(AuditPrefix)+36)
	}
	u, err := ParseAudit(id)
	if err != nil {
		t.Fatalf("ParseAudit: %v", err)
	}
	if u.Version() != 7 {
		t.Fatalf("version = %d, want 7", u.Version())
	}
}

func TestUUIDv7Uniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		id := gen()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestUUIDv7Sortable(t *testing.T) {
	gen := UUIDv7()
	a := gen()
	time.Sleep(2 * time.Millisecond)
	b := gen()
	if a >= b {
		t.Fatalf("UUIDv7 not sortable: %q >= %q", a, b)
	}
}

func TestParseAuditRejects(t *testing.T) {
	for _, id := range []string{"", "aud_", "aud_not-a-uuid", "run_0190b7a2-7c4e-7a35-9a9b-0f4c2d1e8b71"} {
		if _, err := ParseAudit(id); err == nil {
			t.Errorf("ParseAudit(%q): expected error", id)
		}
	}
}

func TestTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	got, err := Time(NewAudit())
	if err != nil {
		t.Fatalf("Time: %v", err)
	}
	if got.Before(before) || got.After(time.Now().Add(time.Second)) {
		t.Fatalf("Time = %v, want close to now", got)
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("aud_")
	if got := gen(); got != "aud_1" {
		t.Fatalf("first = %q, want aud_1", got)
	}
	if got := gen(); got != "aud_2" {
		t.Fatalf("second = %q, want aud_2", got)
	}
}
