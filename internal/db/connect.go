package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:assessd.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/assessd?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  text TEXT NOT NULL,
  type TEXT NOT NULL,
  marks REAL NOT NULL,
  options_json TEXT NOT NULL,
  answer_key_json TEXT NOT NULL,
  tolerance REAL NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  instructions TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  question_ids_json TEXT NOT NULL DEFAULT '[]',
  duration_min INTEGER NOT NULL,
  total_marks REAL NOT NULL DEFAULT 0,
  pass_marks REAL NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id),
  due_at INTEGER NOT NULL,
  max_attempts INTEGER NOT NULL,
  recipient_type TEXT NOT NULL,
  recipient_id TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_by TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  assignment_id TEXT NOT NULL REFERENCES assignments(id),
  quiz_id TEXT NOT NULL REFERENCES quizzes(id),
  learner_id TEXT NOT NULL,
  status TEXT NOT NULL,
  ended_state TEXT NOT NULL DEFAULT '',
  ended_by TEXT NOT NULL DEFAULT '',
  started_at INTEGER NOT NULL,
  deadline INTEGER NOT NULL,
  ended_at INTEGER NOT NULL DEFAULT 0,
  answers_json TEXT NOT NULL DEFAULT '{}',
  result_json TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_active
  ON attempts(assignment_id, learner_id) WHERE status='in_progress';
CREATE INDEX IF NOT EXISTS idx_attempts_deadline
  ON attempts(deadline) WHERE status='in_progress';

CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS batch_members (
  batch_id TEXT NOT NULL REFERENCES batches(id),
  learner_id TEXT NOT NULL,
  PRIMARY KEY (batch_id, learner_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  org_id TEXT NOT NULL,
  typ TEXT NOT NULL,                     -- e.g. attempt_submitted, manual_grade_applied
  key TEXT NOT NULL,                     -- natural key: attemptID
  actor TEXT NOT NULL DEFAULT '',
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  text TEXT NOT NULL,
  type TEXT NOT NULL,
  marks DOUBLE PRECISION NOT NULL,
  options_json TEXT NOT NULL,
  answer_key_json TEXT NOT NULL,
  tolerance DOUBLE PRECISION NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  instructions TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  question_ids_json TEXT NOT NULL DEFAULT '[]',
  duration_min INTEGER NOT NULL,
  total_marks DOUBLE PRECISION NOT NULL DEFAULT 0,
  pass_marks DOUBLE PRECISION NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id),
  due_at BIGINT NOT NULL,
  max_attempts INTEGER NOT NULL,
  recipient_type TEXT NOT NULL,
  recipient_id TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_by TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  assignment_id TEXT NOT NULL REFERENCES assignments(id),
  quiz_id TEXT NOT NULL REFERENCES quizzes(id),
  learner_id TEXT NOT NULL,
  status TEXT NOT NULL,
  ended_state TEXT NOT NULL DEFAULT '',
  ended_by TEXT NOT NULL DEFAULT '',
  started_at BIGINT NOT NULL,
  deadline BIGINT NOT NULL,
  ended_at BIGINT NOT NULL DEFAULT 0,
  answers_json TEXT NOT NULL DEFAULT '{}',
  result_json TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_active
  ON attempts(assignment_id, learner_id) WHERE status='in_progress';
CREATE INDEX IF NOT EXISTS idx_attempts_deadline
  ON attempts(deadline) WHERE status='in_progress';

CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS batch_members (
  batch_id TEXT NOT NULL REFERENCES batches(id),
  learner_id TEXT NOT NULL,
  PRIMARY KEY (batch_id, learner_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  org_id TEXT NOT NULL,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT '',
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
