package store

// schema is applied with CREATE TABLE/INDEX IF NOT EXISTS so repeated opens
// are idempotent, matching the teacher's DDL-on-every-open discipline.
const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS task_groups (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'active',
	created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS tasks (
	id            TEXT PRIMARY KEY,
	group_id      TEXT NOT NULL REFERENCES task_groups(id) ON DELETE CASCADE,
	sequence      INTEGER NOT NULL,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'pending',
	priority      TEXT NOT NULL DEFAULT 'medium',
	assigned_to   TEXT,
	branch_name   TEXT,
	worktree_path TEXT,
	progress      INTEGER NOT NULL DEFAULT 0,
	progress_note TEXT,
	created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	started_at    TEXT,
	completed_at  TEXT,
	merged_at     TEXT,
	UNIQUE (group_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_tasks_group_id ON tasks(group_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

CREATE TABLE IF NOT EXISTS task_dependencies (
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	depends_on TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	PRIMARY KEY (task_id, depends_on)
);

CREATE INDEX IF NOT EXISTS idx_task_deps_task_id ON task_dependencies(task_id);
CREATE INDEX IF NOT EXISTS idx_task_deps_depends_on ON task_dependencies(depends_on);

CREATE TABLE IF NOT EXISTS task_file_ownership (
	task_id        TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	file_pattern   TEXT NOT NULL,
	ownership_type TEXT NOT NULL DEFAULT 'exclusive',
	PRIMARY KEY (task_id, file_pattern)
);

CREATE TABLE IF NOT EXISTS progress_logs (
	id        TEXT PRIMARY KEY,
	task_id   TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	timestamp TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	event     TEXT NOT NULL,
	message   TEXT NOT NULL DEFAULT '',
	metadata  TEXT
);

CREATE INDEX IF NOT EXISTS idx_progress_logs_task_id ON progress_logs(task_id);
`
