package storage

// SchemaVersion is the current audit database schema version.
const SchemaVersion = 1

// Schema creates the audit tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id           TEXT PRIMARY KEY,
	request_id   TEXT NOT NULL,
	time         TIMESTAMP NOT NULL,
	environment  TEXT NOT NULL,
	method       TEXT NOT NULL,
	path         TEXT NOT NULL,
	status       INTEGER NOT NULL,
	error_kind   TEXT,
	renewed      BOOLEAN NOT NULL DEFAULT 0,
	latency_ms   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_time ON audit_records(time);
CREATE INDEX IF NOT EXISTS idx_audit_environment ON audit_records(environment);
CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_records(request_id);

CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	applied_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion records the schema version, ignoring duplicates.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

// GetSchemaVersion returns the highest applied schema version.
const GetSchemaVersion = `
SELECT MAX(version) FROM schema_version;
`
