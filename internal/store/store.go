// Package store persists audit reports in SQLite: the full report as JSON
// plus one row per violation so history can be aggregated by rule.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/a11ywatch/dbopen"
	"github.com/hazyhaar/a11ywatch/report"
)

// ErrNotFound is returned when no audit has the requested id.
var ErrNotFound = errors.New("store: audit not found")

// Store is the audit history database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)
	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// New wraps an open database, applying the schema.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Summary is an audit without its entries.
type Summary struct {
	ID         string    `json:"id"`
	URL        string    `json:"url,omitempty"`
	Title      string    `json:"title,omitempty"`
	HTMLHash   string    `json:"htmlHash,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	Elements   int       `json:"elements"`
	Findings   int       `json:"findings"`
	Errors     int       `json:"errors"`
	Warnings   int       `json:"warnings"`
	Failures   int       `json:"failures"`
	DurationMS int64     `json:"durationMs"`
}

// InsertReport stores r and its violations in one transaction.
func (s *Store) InsertReport(ctx context.Context, r *report.Report) error {
	if r.ID == "" {
		return fmt.Errorf("store: report has no id")
	}
	data, err := report.Marshal(r)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audits
				(id, url, title, html_hash, created_at, elements, findings,
				 errors, warnings, failures, duration_ms, report)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			r.ID, r.URL, r.Title, r.HTMLHash, r.CreatedAt.UnixMilli(),
			r.Stats.Elements, r.Stats.Findings, r.Stats.Errors, r.Stats.Warnings,
			len(r.Failures), r.Stats.DurationMS, string(data))
		if err != nil {
			return fmt.Errorf("store: insert audit %s: %w", r.ID, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO findings (audit_id, seq, xpath, tag, rule_name, type, message, params)
			VALUES (?,?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("store: prepare findings: %w", err)
		}
		defer stmt.Close()

		for i, v := range r.Violations() {
			params := "{}"
			if len(v.Result.MessageParams) > 0 {
				b, _ := json.Marshal(v.Result.MessageParams)
				params = string(b)
			}
			if _, err := stmt.ExecContext(ctx, r.ID, i, v.XPath, v.Tag,
				v.Result.RuleName, string(v.Result.Type), v.Result.Message, params); err != nil {
				return fmt.Errorf("store: insert finding: %w", err)
			}
		}
		return nil
	})
}

// GetReport loads a full report.
func (s *Store) GetReport(ctx context.Context, id string) (*report.Report, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT report FROM audits WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	r, err := report.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return r, nil
}

// DeleteReport removes an audit and its findings.
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM audits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListFilter narrows ListReports.
type ListFilter struct {
	URL    string // exact match; empty lists every URL
	Limit  int    // default 50
	Offset int
}

// ListReports returns audit summaries, newest first.
func (s *Store) ListReports(ctx context.Context, f ListFilter) ([]Summary, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, url, title, html_hash, created_at, elements, findings,
		       errors, warnings, failures, duration_ms
		FROM audits
		WHERE ? = '' OR url = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, f.URL, f.URL, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sm Summary
		var created int64
		if err := rows.Scan(&sm.ID, &sm.URL, &sm.Title, &sm.HTMLHash, &created,
			&sm.Elements, &sm.Findings, &sm.Errors, &sm.Warnings, &sm.Failures, &sm.DurationMS); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		sm.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Latest returns the most recent audit of url.
func (s *Store) Latest(ctx context.Context, url string) (*report.Report, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id FROM audits WHERE url = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no audit of %s", ErrNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest %s: %w", url, err)
	}
	return s.GetReport(ctx, id)
}

// RuleCounts aggregates stored violations per rule, highest first. A
// non-empty auditID restricts the count to one audit.
func (s *Store) RuleCounts(ctx context.Context, auditID string) ([]report.RuleCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT rule_name, COUNT(*) AS n
		FROM findings
		WHERE ? = '' OR audit_id = ?
		GROUP BY rule_name
		ORDER BY n DESC, rule_name ASC`, auditID, auditID)
	if err != nil {
		return nil, fmt.Errorf("store: rule counts: %w", err)
	}
	defer rows.Close()

	out := []report.RuleCount{}
	for rows.Next() {
		var rc report.RuleCount
		if err := rows.Scan(&rc.RuleName, &rc.Count); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Prune deletes audits created before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM audits WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	return res.RowsAffected()
}
