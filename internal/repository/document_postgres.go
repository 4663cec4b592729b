package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jaekwang-park/todo-notes/internal/model"
)

const changeChannel = "document_changes"

type PostgresDocumentRepository struct {
	db     *sql.DB
	hub    *changeHub
	logger *slog.Logger
}

func NewPostgresDocument(db *sql.DB, logger *slog.Logger) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{
		db:     db,
		hub:    newChangeHub(),
		logger: logger,
	}
}

func (r *PostgresDocumentRepository) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	var sub *Subscription
	sub = newSubscription(ctx, q, r.logger, func() { r.hub.remove(sub) })
	r.hub.add(sub)
	sub.start(func(ctx context.Context) ([]Document, error) {
		return r.fetch(ctx, q)
	})
	return sub, nil
}

func (r *PostgresDocumentRepository) fetch(ctx context.Context, q Query) ([]Document, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, data
		FROM documents
		WHERE collection = $1 AND owner_id = $2
		ORDER BY data->>$3 %s NULLS LAST`, q.Direction.sql())

	rows, err := r.db.QueryContext(ctx, query, string(q.Collection), q.OwnerID, q.OrderField)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", q.Collection, err)
	}
	return docs, nil
}

func (r *PostgresDocumentRepository) Create(ctx context.Context, collection Collection, ownerID string, fields Fields) (string, error) {
	if !collection.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	data, err := encodeFields(fields)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO documents (collection, owner_id, data)
		VALUES ($1, $2, $3::jsonb)
		RETURNING id`

	var id string
	if err := r.db.QueryRowContext(ctx, query, string(collection), ownerID, data).Scan(&id); err != nil {
		return "", newWriteError("create", collection, classifyPostgresError(err), err)
	}
	return id, nil
}

func (r *PostgresDocumentRepository) Update(ctx context.Context, collection Collection, ownerID, id string, fields Fields) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET data = data || $1::jsonb
		WHERE id = $2 AND collection = $3 AND owner_id = $4`

	result, err := r.db.ExecContext(ctx, query, data, id, string(collection), ownerID)
	if err != nil {
		return newWriteError("update", collection, classifyPostgresError(err), err)
	}
	return checkAffected(result, "update", collection)
}

func (r *PostgresDocumentRepository) Flip(ctx context.Context, collection Collection, ownerID, id, field string) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	query := `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$1::text], to_jsonb(NOT COALESCE((data->>$1::text)::boolean, false)))
		WHERE id = $2 AND collection = $3 AND owner_id = $4`

	result, err := r.db.ExecContext(ctx, query, field, id, string(collection), ownerID)
	if err != nil {
		return newWriteError("flip", collection, classifyPostgresError(err), err)
	}
	return checkAffected(result, "flip", collection)
}

func (r *PostgresDocumentRepository) Delete(ctx context.Context, collection Collection, ownerID, id string) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	query := `DELETE FROM documents WHERE id = $1 AND collection = $2 AND owner_id = $3`

	result, err := r.db.ExecContext(ctx, query, id, string(collection), ownerID)
	if err != nil {
		return newWriteError("delete", collection, classifyPostgresError(err), err)
	}
	return checkAffected(result, "delete", collection)
}

// Listen relays change notifications to open subscriptions until ctx is
// done. A reconnect refreshes every subscription since notifications may
// have been lost while disconnected.
func (r *PostgresDocumentRepository) Listen(ctx context.Context, dsn string) error {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.logger.Warn("change listener event", "event", int(ev), "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(changeChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", changeChannel, err)
	}
	r.logger.Info("change listener started", "channel", changeChannel)

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			r.dispatch(n)
		case <-ping.C:
			if err := listener.Ping(); err != nil {
				r.logger.Warn("change listener ping failed", "error", err)
			}
		}
	}
}

type changePayload struct {
	Collection string `json:"collection"`
	OwnerID    string `json:"owner_id"`
}

func (r *PostgresDocumentRepository) dispatch(n *pq.Notification) {
	if n == nil {
		r.logger.Info("change listener reconnected, refreshing subscriptions")
		r.hub.broadcast()
		return
	}

	var p changePayload
	if err := json.Unmarshal([]byte(n.Extra), &p); err != nil {
		r.logger.Warn("malformed change notification", "payload", n.Extra, "error", err)
		r.hub.broadcast()
		return
	}
	r.hub.publish(Collection(p.Collection), p.OwnerID)
}

func checkAffected(result sql.Result, op string, collection Collection) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return newWriteError(op, collection, nil, fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable) (Document, error) {
	var (
		d   Document
		raw []byte
	)
	if err := row.Scan(&d.ID, &d.OwnerID, &raw); err != nil {
		return Document{}, fmt.Errorf("failed to scan document: %w", err)
	}
	if err := json.Unmarshal(raw, &d.Data); err != nil {
		return Document{}, fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	if d.Data == nil {
		d.Data = map[string]any{}
	}
	return d, nil
}

// encodeFields marshals fields to JSON with timestamps in a lexically
// sortable form so ORDER BY on the text value matches time order.
func encodeFields(fields Fields) ([]byte, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if t, ok := v.(time.Time); ok {
			out[k] = model.FormatTimestamp(t)
			continue
		}
		out[k] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	return data, nil
}

func classifyPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "42501":
			return ErrPermissionDenied
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "57":
			return ErrNetworkFailure
		}
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return ErrNetworkFailure
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrNetworkFailure
	}
	return nil
}

var _ DocumentRepository = (*PostgresDocumentRepository)(nil)
