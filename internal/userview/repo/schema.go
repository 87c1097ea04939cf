package repo

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Schema creates the tables the view repo reads from.
type Schema struct {
	db *sqlx.DB
}

func NewSchema(db *sqlx.DB) *Schema { return &Schema{db: db} }

// EnsureTables creates local_user, person, person_aggregates and
// local_user_language if they do not exist (idempotent).
// This is a convenience for development and tests; prefer migrations in production.
func (s *Schema) EnsureTables(ctx context.Context) error {
	for _, stmt := range strings.Split(s.ddl(), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) ddl() string {
	r := strings.NewReplacer("{{id}}", "BIGSERIAL PRIMARY KEY", "{{ts}}", "TIMESTAMPTZ")
	if s.db.DriverName() == "sqlite" {
		r = strings.NewReplacer("{{id}}", "INTEGER PRIMARY KEY", "{{ts}}", "TIMESTAMP")
	}
	return r.Replace(schemaDDL)
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS person (
  id {{id}},
  name TEXT NOT NULL UNIQUE,
  display_name TEXT,
  avatar TEXT,
  banned BOOLEAN NOT NULL DEFAULT false,
  published {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated {{ts}},
  actor_id TEXT NOT NULL UNIQUE,
  bio TEXT,
  local BOOLEAN NOT NULL DEFAULT true,
  private_key TEXT,
  public_key TEXT NOT NULL DEFAULT '',
  last_refreshed_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
  banner TEXT,
  deleted BOOLEAN NOT NULL DEFAULT false,
  inbox_url TEXT NOT NULL DEFAULT '',
  shared_inbox_url TEXT,
  matrix_user_id TEXT,
  admin BOOLEAN NOT NULL DEFAULT false,
  bot_account BOOLEAN NOT NULL DEFAULT false,
  ban_expires {{ts}}
);
CREATE TABLE IF NOT EXISTS local_user (
  id {{id}},
  person_id BIGINT NOT NULL UNIQUE REFERENCES person(id) ON DELETE CASCADE,
  password_encrypted TEXT NOT NULL,
  email TEXT UNIQUE,
  show_nsfw BOOLEAN NOT NULL DEFAULT false,
  theme TEXT NOT NULL DEFAULT 'browser',
  default_sort_type SMALLINT NOT NULL DEFAULT 0,
  default_listing_type SMALLINT NOT NULL DEFAULT 1,
  lang TEXT NOT NULL DEFAULT 'browser',
  show_avatars BOOLEAN NOT NULL DEFAULT true,
  send_notifications_to_email BOOLEAN NOT NULL DEFAULT false,
  validator_time {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
  show_bot_accounts BOOLEAN NOT NULL DEFAULT true,
  show_scores BOOLEAN NOT NULL DEFAULT true,
  show_read_posts BOOLEAN NOT NULL DEFAULT true,
  show_new_post_notifs BOOLEAN NOT NULL DEFAULT false,
  email_verified BOOLEAN NOT NULL DEFAULT false,
  accepted_application BOOLEAN NOT NULL DEFAULT false
);
CREATE TABLE IF NOT EXISTS person_aggregates (
  id {{id}},
  person_id BIGINT NOT NULL UNIQUE REFERENCES person(id) ON DELETE CASCADE,
  post_count BIGINT NOT NULL DEFAULT 0,
  post_score BIGINT NOT NULL DEFAULT 0,
  comment_count BIGINT NOT NULL DEFAULT 0,
  comment_score BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS local_user_language (
  id {{id}},
  local_user_id BIGINT NOT NULL REFERENCES local_user(id) ON DELETE CASCADE,
  lang TEXT NOT NULL,
  UNIQUE (local_user_id, lang)
);
CREATE INDEX IF NOT EXISTS idx_local_user_language_local_user_id ON local_user_language(local_user_id);
`
