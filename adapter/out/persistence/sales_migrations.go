package persistence

import (
	"context"
	"fmt"
	"time"

	"sales_server/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// Dialect is the SQL flavour of the connected database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectOf maps the sqlx driver name to a dialect.
func DialectOf(db *sqlx.DB) Dialect {
	switch db.DriverName() {
	case "sqlite", "sqlite3":
		return DialectSQLite
	default:
		return DialectPostgres
	}
}

// SchemaVersion is the latest schema version.
const SchemaVersion = 2

type migration struct {
	Version     int
	Description string
	Statements  map[Dialect][]string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "businesses, users, products, chats, leads, token ledger",
		Statements: map[Dialect][]string{
			DialectSQLite: {
				`CREATE TABLE IF NOT EXISTS businesses (
					id         INTEGER PRIMARY KEY AUTOINCREMENT,
					name       TEXT NOT NULL,
					config     TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS users (
					id          TEXT PRIMARY KEY,
					business_id INTEGER NOT NULL REFERENCES businesses(id),
					fullname    TEXT NOT NULL DEFAULT '',
					email       TEXT NOT NULL UNIQUE,
					tokens      INTEGER NOT NULL DEFAULT 0 CHECK (tokens >= 0),
					created_at  TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS products (
					id          INTEGER PRIMARY KEY AUTOINCREMENT,
					business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
					name        TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					price       REAL,
					image_url   TEXT NOT NULL DEFAULT '',
					video_url   TEXT NOT NULL DEFAULT '',
					tags        TEXT NOT NULL DEFAULT '',
					created_at  TIMESTAMP NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_products_business ON products(business_id, id)`,
				`CREATE TABLE IF NOT EXISTS chats (
					id          INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id     TEXT NOT NULL,
					business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
					message     TEXT NOT NULL,
					response    TEXT NOT NULL DEFAULT '',
					emotion     TEXT NOT NULL DEFAULT 'neutral',
					sales_stage TEXT NOT NULL DEFAULT 'rapport_building',
					is_sale     BOOLEAN NOT NULL DEFAULT 0,
					created_at  TIMESTAMP NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_chats_business ON chats(business_id, id)`,
				`CREATE TABLE IF NOT EXISTS leads (
					id          INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id     TEXT NOT NULL,
					business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
					name        TEXT NOT NULL DEFAULT '',
					email       TEXT NOT NULL DEFAULT '',
					phone       TEXT NOT NULL DEFAULT '',
					message     TEXT NOT NULL DEFAULT '',
					created_at  TIMESTAMP NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_leads_business ON leads(business_id, id)`,
				`CREATE TABLE IF NOT EXISTS token_transactions (
					id         INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					amount     INTEGER NOT NULL,
					type       TEXT NOT NULL,
					detail     TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_token_transactions_user ON token_transactions(user_id, id)`,
			},
			DialectPostgres: {
				`CREATE TABLE IF NOT EXISTS businesses (
					id         BIGSERIAL PRIMARY KEY,
					name       TEXT NOT NULL,
					config     TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS users (
					id          UUID PRIMARY KEY,
					business_id BIGINT NOT NULL REFERENCES businesses(id),
					fullname    TEXT NOT NULL DEFAULT '',
					email       TEXT NOT NULL UNIQUE,
					tokens      BIGINT NOT NULL DEFAULT 0 CHECK (tokens >= 0),
					created_at  TIMESTAMPTZ NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS products (
					id          BIGSERIAL PRIMARY KEY,
					business_id BIGINT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
					name        TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					price       DOUBLE PRECISION,
					image_url   TEXT NOT NULL DEFAULT '',
					video_url   TEXT NOT NULL DEFAULT '',
					tags        TEXT NOT NULL DEFAULT '',
					created_at  TIMESTAMPTZ NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_products_business ON products(business_id, id)`,
				`CREATE TABLE IF NOT EXISTS chats (
					id          BIGSERIAL PRIMARY KEY,
					user_id     UUID NOT NULL,
					business_id BIGINT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
					message     TEXT NOT NULL,
					response    TEXT NOT NULL DEFAULT '',
					emotion     TEXT NOT NULL DEFAULT 'neutral',
					sales_stage TEXT NOT NULL DEFAULT 'rapport_building',
					is_sale     BOOLEAN NOT NULL DEFAULT FALSE,
					created_at  TIMESTAMPTZ NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_chats_business ON chats(business_id, id DESC)`,
				`CREATE TABLE IF NOT EXISTS leads (
					id          BIGSERIAL PRIMARY KEY,
					user_id     UUID NOT NULL,
					business_id BIGINT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
					name        TEXT NOT NULL DEFAULT '',
					email       TEXT NOT NULL DEFAULT '',
					phone       TEXT NOT NULL DEFAULT '',
					message     TEXT NOT NULL DEFAULT '',
					created_at  TIMESTAMPTZ NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_leads_business ON leads(business_id, id DESC)`,
				`CREATE TABLE IF NOT EXISTS token_transactions (
					id         BIGSERIAL PRIMARY KEY,
					user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					amount     BIGINT NOT NULL,
					type       TEXT NOT NULL,
					detail     TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_token_transactions_user ON token_transactions(user_id, id DESC)`,
			},
		},
	},
	{
		Version:     2,
		Description: "product gallery and external url",
		Statements: map[Dialect][]string{
			DialectSQLite: {
				`ALTER TABLE products ADD COLUMN gallery TEXT NOT NULL DEFAULT '{}'`,
				`ALTER TABLE products ADD COLUMN url TEXT NOT NULL DEFAULT ''`,
			},
			DialectPostgres: {
				`ALTER TABLE products ADD COLUMN IF NOT EXISTS gallery TEXT[] NOT NULL DEFAULT '{}'`,
				`ALTER TABLE products ADD COLUMN IF NOT EXISTS url TEXT NOT NULL DEFAULT ''`,
			},
		},
	},
}

// Migrate applies every pending migration, each in its own transaction.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect := DialectOf(db)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		for _, stmt := range m.Statements[dialect] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			db.Rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`),
			m.Version, time.Now().UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
		logger.Info("[Migrate] applied migration %d: %s", m.Version, m.Description)
	}
	return nil
}

// CurrentVersion returns the highest applied migration, 0 for a fresh database.
func CurrentVersion(ctx context.Context, db *sqlx.DB) (int, error) {
	return currentVersion(ctx, db)
}

func currentVersion(ctx context.Context, db *sqlx.DB) (int, error) {
	var version int
	if err := db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
