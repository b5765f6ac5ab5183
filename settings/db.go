package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch/rule"
)

// Schema creates the rule_settings table.
const Schema = `
CREATE TABLE IF NOT EXISTS rule_settings (
	name       TEXT PRIMARY KEY,
	enabled    INTEGER NOT NULL,
	params     TEXT NOT NULL DEFAULT '{}',
	updated_at INTEGER NOT NULL
);
`

// Init creates the table if needed.
func Init(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return errors.Wrap(err, "settings: init schema")
	}
	return nil
}

// Load reads every stored entry.
func Load(ctx context.Context, db *sql.DB) (rule.Settings, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, enabled, params FROM rule_settings ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "settings: query")
	}
	defer rows.Close()

	out := make(rule.Settings)
	for rows.Next() {
		var name, params string
		var enabled int
		if err := rows.Scan(&name, &enabled, &params); err != nil {
			return nil, errors.Wrap(err, "settings: scan")
		}
		o := rule.Options{Enabled: enabled != 0}
		if params != "" && params != "{}" {
			if err := json.Unmarshal([]byte(params), &o.Params); err != nil {
				return nil, errors.Wrapf(err, "settings: params of %s", name)
			}
		}
		out[name] = o
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "settings: rows")
	}
	return out, nil
}

// Put stores the options of one rule, replacing any previous entry.
func Put(ctx context.Context, db *sql.DB, name string, o rule.Options) error {
	params := []byte("{}")
	if len(o.Params) > 0 {
		var err error
		if params, err = json.Marshal(o.Params); err != nil {
			return errors.Wrap(err, "settings: marshal params")
		}
	}
	enabled := 0
	if o.Enabled {
		enabled = 1
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO rule_settings (name, enabled, params, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			enabled = excluded.enabled,
			params = excluded.params,
			updated_at = excluded.updated_at`,
		name, enabled, string(params), time.Now().UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "settings: put %s", name)
	}
	return nil
}

// Delete removes the entry of one rule so it falls back to its defaults.
// Deleting an absent entry is not an error.
func Delete(ctx context.Context, db *sql.DB, name string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM rule_settings WHERE name = ?`, name); err != nil {
		return errors.Wrapf(err, "settings: delete %s", name)
	}
	return nil
}
