// Package postgres stores the Salesforce access token in a PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/natserract/sfclient/pkg/salesforce"
	"github.com/natserract/sfclient/pkg/tokenstore"
	"go.uber.org/zap"
)

// DefaultTokenName is the row key used when none is given.
const DefaultTokenName = "default"

const schemaSQL = `CREATE TABLE IF NOT EXISTS salesforce_access_tokens (
	name       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectTokenSQL = `SELECT payload FROM salesforce_access_tokens WHERE name = $1`

const upsertTokenSQL = `INSERT INTO salesforce_access_tokens (name, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

// Querier is the subset of *pgxpool.Pool the store uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store keeps one token per name in salesforce_access_tokens.
type Store struct {
	db     Querier
	name   string
	sealer tokenstore.Sealer
	logger *zap.Logger
}

func NewStore(db Querier, name string, sealer tokenstore.Sealer, logger *zap.Logger) *Store {
	if name == "" {
		name = DefaultTokenName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     db,
		name:   name,
		sealer: sealer,
		logger: logger,
	}
}

// EnsureSchema creates the token table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.logger.Info("Initializing token store schema")
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context) (*salesforce.AccessToken, error) {
	var payload string
	err := s.db.QueryRow(ctx, selectTokenSQL, s.name).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUndefinedTable(err) {
			return nil, &salesforce.StoreNotFoundError{Location: s.location(), Err: err}
		}
		s.logger.Error("Failed to fetch access token", zap.String("name", s.name), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch access token %s: %w", s.name, err)
	}

	token, err := tokenstore.Decode([]byte(payload), s.sealer)
	if err != nil {
		s.logger.Error("Failed to decode access token", zap.String("name", s.name), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Fetched access token", zap.String("name", s.name))
	return token, nil
}

func (s *Store) Save(ctx context.Context, token *salesforce.AccessToken) error {
	data, err := tokenstore.Encode(token, s.sealer)
	if err != nil {
		return fmt.Errorf("save access token: %w", err)
	}

	if _, err := s.db.Exec(ctx, upsertTokenSQL, s.name, string(data)); err != nil {
		s.logger.Error("Failed to save access token", zap.String("name", s.name), zap.Error(err))
		return fmt.Errorf("failed to save access token %s: %w", s.name, err)
	}

	s.logger.Info("Saved access token", zap.String("name", s.name), zap.Bool("sealed", s.sealer != nil))
	return nil
}

func (s *Store) location() string {
	return "salesforce_access_tokens/" + s.name
}

// isUndefinedTable checks for PostgreSQL error 42P01 (undefined_table)
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return false
}
