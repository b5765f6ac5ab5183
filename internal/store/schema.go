package store

// Schema creates the audit history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS audits (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	html_hash   TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	elements    INTEGER NOT NULL DEFAULT 0,
	findings    INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	report      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audits_url ON audits(url, created_at);
CREATE INDEX IF NOT EXISTS idx_audits_created ON audits(created_at);

CREATE TABLE IF NOT EXISTS findings (
	audit_id  TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
	seq       INTEGER NOT NULL,
	xpath     TEXT NOT NULL,
	tag       TEXT NOT NULL,
	rule_name TEXT NOT NULL,
	type      TEXT NOT NULL,
	message   TEXT NOT NULL DEFAULT '',
	params    TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (audit_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule_name, type);
`
