package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client.Database(dbName), nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	cognito_sub text NOT NULL UNIQUE,
	email       text NOT NULL,
	name        text NOT NULL DEFAULT '',
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	collection text NOT NULL,
	owner_id   text NOT NULL,
	data       jsonb NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS documents_collection_owner_idx ON documents (collection, owner_id);

CREATE OR REPLACE FUNCTION notify_document_change() RETURNS trigger AS $$
DECLARE
	rec documents;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := OLD;
	ELSE
		rec := NEW;
	END IF;
	PERFORM pg_notify('document_changes',
		json_build_object('collection', rec.collection, 'owner_id', rec.owner_id)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_notify ON documents;
CREATE TRIGGER documents_notify
	AFTER INSERT OR UPDATE OR DELETE ON documents
	FOR EACH ROW EXECUTE FUNCTION notify_document_change();
`

// EnsurePostgresSchema creates the tables and change trigger. Idempotent.
func EnsurePostgresSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
