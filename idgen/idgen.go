// Package idgen generates identifiers for stored records. Constructors that
// persist records accept a Generator so tests can substitute a fixed
// sequence.
package idgen

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// AuditPrefix marks audit identifiers.
const AuditPrefix = "aud_"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 version 7 UUIDs. They sort by
// creation time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a deterministic Generator for tests: prefix followed by
// 1, 2, 3 and so on.
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}

// Audit is the default generator of audit IDs.
var Audit Generator = Prefixed(AuditPrefix, UUIDv7())

// NewAudit returns a fresh audit ID.
func NewAudit() string { return Audit() }

// ParseAudit validates an audit ID and returns its UUID.
func ParseAudit(id string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(id, AuditPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("idgen: %q lacks prefix %q", id, AuditPrefix)
	}
	u, err := uuid.Parse(rest)
	if err != nil {
		return uuid.Nil, fmt.Errorf("idgen: parse %q: %w", id, err)
	}
	return u, nil
}

// Time returns the creation time embedded in a version 7 audit ID.
func Time(id string) (time.Time, error) {
	u, err := ParseAudit(id)
	if err != nil {
		return time.Time{}, err
	}
	if u.Version() != 7 {
		return time.Time{}, fmt.Errorf("idgen: %q is not a version 7 UUID", id)
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC(), nil
}
