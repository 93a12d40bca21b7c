package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunamismax/renditionforge/internal/domain"
	_ "github.com/lib/pq"
)

const invocationSchemaSQL = `
CREATE TABLE IF NOT EXISTS invocations (
	id TEXT PRIMARY KEY,
	bucket TEXT NOT NULL,
	object_key TEXT NOT NULL,
	event_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	webhook_url TEXT NOT NULL DEFAULT '',
	outcomes JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

type PostgresInvocationStore struct {
	db *sql.DB
}

func NewPostgresInvocationStore(ctx context.Context, dsn string) (*PostgresInvocationStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresInvocationStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresInvocationStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, invocationSchemaSQL); err != nil {
		return fmt.Errorf("ensure invocations schema: %w", err)
	}
	return nil
}

func (s *PostgresInvocationStore) Close() error {
	return s.db.Close()
}

func (s *PostgresInvocationStore) Create(ctx context.Context, inv domain.Invocation) error {
	outcomesJSON, err := marshalOutcomes(inv.Outcomes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO invocations (id, bucket, object_key, event_name, status, webhook_url, outcomes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID,
		inv.Bucket,
		inv.Key,
		inv.EventName,
		inv.Status,
		inv.WebhookURL,
		outcomesJSON,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}

	return nil
}

func (s *PostgresInvocationStore) Get(ctx context.Context, id string) (domain.Invocation, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, bucket, object_key, event_name, status, webhook_url, outcomes, created_at, updated_at
		 FROM invocations
		 WHERE id = $1`,
		id,
	)

	var (
		inv          domain.Invocation
		outcomesJSON []byte
	)
	if err := row.Scan(
		&inv.ID,
		&inv.Bucket,
		&inv.Key,
		&inv.EventName,
		&inv.Status,
		&inv.WebhookURL,
		&outcomesJSON,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Invocation{}, false, nil
		}
		return domain.Invocation{}, false, fmt.Errorf("query invocation: %w", err)
	}

	if err := json.Unmarshal(outcomesJSON, &inv.Outcomes); err != nil {
		return domain.Invocation{}, false, fmt.Errorf("unmarshal invocation outcomes: %w", err)
	}

	return inv, true, nil
}

func (s *PostgresInvocationStore) UpdateStatus(ctx context.Context, id, status string) (domain.Invocation, error) {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE invocations SET status = $2, updated_at = $3 WHERE id = $1`,
		id,
		status,
		time.Now().UTC(),
	)
	if err != nil {
		return domain.Invocation{}, fmt.Errorf("update invocation status: %w", err)
	}

	inv, ok, err := s.Get(ctx, id)
	if err != nil {
		return domain.Invocation{}, err
	}
	if !ok {
		return domain.Invocation{}, ErrInvocationNotFound
	}
	return inv, nil
}

func (s *PostgresInvocationStore) RecordOutcomes(ctx context.Context, id string, outcomes []domain.RenditionOutcome) error {
	outcomesJSON, err := marshalOutcomes(outcomes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE invocations SET outcomes = $2, updated_at = $3 WHERE id = $1`,
		id,
		outcomesJSON,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update invocation outcomes: %w", err)
	}
	return nil
}

func marshalOutcomes(outcomes []domain.RenditionOutcome) ([]byte, error) {
	if outcomes == nil {
		outcomes = []domain.RenditionOutcome{}
	}
	data, err := json.Marshal(outcomes)
	if err != nil {
		return nil, fmt.Errorf("marshal invocation outcomes: %w", err)
	}
	return data, nil
}
