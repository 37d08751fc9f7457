package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// The partial unique index idx_complaints_one_open is load-bearing: it makes
// the "at most one open complaint per (user, group)" rule atomic at insert
// time, so two concurrent creates cannot both pass an application-level
// check. Message ordering relies on the complaint_messages.seq AUTOINCREMENT
// column.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    admin_id TEXT NOT NULL,
    name TEXT NOT NULL,
    service_name TEXT NOT NULL,
    price_cents INTEGER NOT NULL,
    fidelity_months INTEGER NOT NULL DEFAULT 0,
    max_members INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS memberships (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    group_id TEXT NOT NULL,
    joined_at INTEGER NOT NULL,
    status TEXT NOT NULL,
    fidelity_months INTEGER NOT NULL DEFAULT 0,
    cancellation_reason TEXT NOT NULL DEFAULT '',
    cancellation_description TEXT NOT NULL DEFAULT '',
    cancelled_at INTEGER,
    FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS complaints (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    group_id TEXT NOT NULL,
    admin_id TEXT NOT NULL,
    problem_type TEXT NOT NULL,
    desired_solution TEXT NOT NULL,
    description TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    admin_response_deadline INTEGER NOT NULL,
    intervention_deadline INTEGER NOT NULL,
    resolved_at INTEGER,
    closed_at INTEGER,
    resolution_type TEXT NOT NULL DEFAULT '',
    resolution_details TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_complaints_one_open
    ON complaints(user_id, group_id)
    WHERE status IN ('pending', 'admin_responded', 'user_responded', 'intervention');

CREATE TABLE IF NOT EXISTS complaint_messages (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    complaint_id TEXT NOT NULL,
    author_id TEXT NOT NULL,
    role TEXT NOT NULL,
    body TEXT NOT NULL,
    visibility TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (complaint_id) REFERENCES complaints(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS message_attachments (
    message_id TEXT NOT NULL,
    file_ref TEXT NOT NULL,
    PRIMARY KEY (message_id, file_ref),
    FOREIGN KEY (message_id) REFERENCES complaint_messages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS complaint_evidence (
    id TEXT PRIMARY KEY,
    complaint_id TEXT NOT NULL,
    uploader_id TEXT NOT NULL,
    description TEXT NOT NULL,
    file_ref TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (complaint_id) REFERENCES complaints(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_memberships_user_group ON memberships(user_id, group_id);
CREATE INDEX IF NOT EXISTS idx_complaints_user_group ON complaints(user_id, group_id);
CREATE INDEX IF NOT EXISTS idx_complaints_due ON complaints(status, intervention_deadline);
CREATE INDEX IF NOT EXISTS idx_messages_complaint ON complaint_messages(complaint_id);
CREATE INDEX IF NOT EXISTS idx_evidence_complaint ON complaint_evidence(complaint_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
