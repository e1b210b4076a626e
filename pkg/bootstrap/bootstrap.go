// Package bootstrap wires configuration into a Salesforce client and token
// store for the command line tools.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/natserract/sfclient/pkg/config"
	httpclient "github.com/natserract/sfclient/pkg/http"
	"github.com/natserract/sfclient/pkg/salesforce"
	"github.com/natserract/sfclient/pkg/tokenstore"
	"github.com/natserract/sfclient/pkg/tokenstore/postgres"
	"go.uber.org/zap"
)

// Env is everything a command needs. Close releases the token store.
type Env struct {
	Client *salesforce.Client
	Store  salesforce.TokenStore
	close  func()
}

func (e *Env) Close() {
	if e.close != nil {
		e.close()
	}
}

// Setup loads configuration from the environment and builds the client and store.
func Setup(ctx context.Context, logger *zap.Logger) (*Env, error) {
	sfCfg, err := salesforce.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load salesforce config: %w", err)
	}

	appCfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, closeStore, err := OpenTokenStore(ctx, appCfg, logger)
	if err != nil {
		return nil, err
	}

	client := salesforce.NewClientWithLogger(sfCfg, NewTransport(appCfg, logger), logger)

	return &Env{Client: client, Store: store, close: closeStore}, nil
}

// NewTransport builds the HTTP transport with the configured per-request timeout.
func NewTransport(cfg *config.Config, logger *zap.Logger) *httpclient.Client {
	return httpclient.NewClientWithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}, logger)
}

// OpenTokenStore builds the configured store. The returned func releases it.
func OpenTokenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (salesforce.TokenStore, func(), error) {
	var sealer tokenstore.Sealer
	if cfg.EncryptionKey != nil {
		s, err := tokenstore.NewSecretboxSealer(cfg.EncryptionKey)
		if err != nil {
			return nil, nil, err
		}
		sealer = s
	}

	switch cfg.TokenStore {
	case config.StorePostgres:
		db, err := postgres.New(ctx, postgres.NewConfig(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store := postgres.NewStore(db.Pool(), cfg.TokenName, sealer, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	default:
		opts := []tokenstore.Option{
			tokenstore.WithFileName(cfg.TokenName),
			tokenstore.WithLogger(logger),
		}
		if sealer != nil {
			opts = append(opts, tokenstore.WithSealer(sealer))
		}
		return tokenstore.NewFileStore(cfg.TokenDir, opts...), func() {}, nil
	}
}

// LoadToken fetches the stored token and installs it on the client, warning
// when it has expired.
func LoadToken(ctx context.Context, env *Env, logger *zap.Logger) (*salesforce.AccessToken, error) {
	token, err := env.Store.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if token.NeedsRefresh() {
		logger.Warn("Stored access token has expired, run sftoken refresh",
			zap.Time("expires_at", token.DateExpires))
	}
	env.Client.SetAccessToken(token)
	return token, nil
}
