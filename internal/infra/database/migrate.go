package database

import (
	"context"
	"database/sql"
	"fmt"
)

// LeadChangesChannel é o canal LISTEN/NOTIFY alimentado pelo trigger de leads.
const LeadChangesChannel = "lead_changes"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id           TEXT PRIMARY KEY,
		nome         TEXT NOT NULL,
		email        TEXT NOT NULL,
		telefone     TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'novo',
		fonte        TEXT NOT NULL DEFAULT 'landing_page',
		captured_at  TIMESTAMPTZ NOT NULL,
		notas        TEXT NOT NULL DEFAULT '',
		sync_source  TEXT NOT NULL DEFAULT '',
		original_id  TEXT NOT NULL DEFAULT '',
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_contact ON leads (email, telefone)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_captured_at ON leads (captured_at DESC)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE OR REPLACE FUNCTION notify_lead_change() RETURNS trigger AS $$
	DECLARE
		payload json;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			payload := json_build_object('op', 'delete', 'id', OLD.id);
			PERFORM pg_notify('` + LeadChangesChannel + `', payload::text);
			RETURN OLD;
		END IF;
		payload := json_build_object(
			'op', lower(TG_OP),
			'id', NEW.id,
			'lead', json_build_object(
				'id', NEW.id,
				'nome', NEW.nome,
				'email', NEW.email,
				'telefone', NEW.telefone,
				'status', NEW.status,
				'fonte', NEW.fonte,
				'timestamp', NEW.captured_at,
				'notas', NEW.notas,
				'sync_source', NEW.sync_source,
				'original_id', NEW.original_id,
				'updated_at', NEW.updated_at
			)
		);
		PERFORM pg_notify('` + LeadChangesChannel + `', payload::text);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS leads_notify ON leads`,
	`CREATE TRIGGER leads_notify AFTER INSERT OR UPDATE OR DELETE ON leads
		FOR EACH ROW EXECUTE FUNCTION notify_lead_change()`,
}

// Migrate cria as tabelas e o trigger de change feed. Idempotente.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migração %d: %w", i, err)
		}
	}
	return nil
}
