package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/natserract/sfclient/pkg/config"
	httpclient "github.com/natserract/sfclient/pkg/http"
	"github.com/natserract/sfclient/pkg/salesforce"
	"github.com/natserract/sfclient/pkg/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenTokenStore_File(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{TokenStore: config.StoreFile, TokenDir: dir, TokenName: "token"}

	store, closeStore, err := OpenTokenStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeStore()

	fileStore, ok := store.(*tokenstore.FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "token"), fileStore.Path())
}

func TestOpenTokenStore_BadKey(t *testing.T) {
	cfg := &config.Config{TokenStore: config.StoreFile, TokenDir: t.TempDir(), EncryptionKey: []byte("short")}

	_, _, err := OpenTokenStore(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadToken(t *testing.T) {
	cfg := &config.Config{TokenStore: config.StoreFile, TokenDir: t.TempDir(), EncryptionKey: make([]byte, 32)}
	ctx := context.Background()

	store, closeStore, err := OpenTokenStore(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	env := &Env{
		Client: salesforce.NewClient(&salesforce.Config{LoginURL: "https://login.salesforce.com"}, nil),
		Store:  store,
		close:  closeStore,
	}
	defer env.Close()

	_, err = LoadToken(ctx, env, zap.NewNop())
	assert.True(t, salesforce.IsStoreNotFound(err))
	assert.Nil(t, env.Client.AccessToken())

	issued := time.Now().UTC().Truncate(time.Second)
	token := &salesforce.AccessToken{
		DateIssued:  issued,
		DateExpires: issued.Add(55 * time.Minute),
		Scope:       []string{},
		AccessToken: "access",
		APIURL:      "https://na1.salesforce.com/",
	}
	require.NoError(t, store.Save(ctx, token))

	loaded, err := LoadToken(ctx, env, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Same(t, loaded, env.Client.AccessToken())
}

// newStalledServer answers only once the client has given up.
func newStalledServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })
	return server
}

func TestNewTransport_Timeout(t *testing.T) {
	server := newStalledServer(t)
	cfg := &config.Config{HTTPTimeout: 50 * time.Millisecond}

	start := time.Now()
	resp, err := NewTransport(cfg, zap.NewNop()).Do(httpclient.RequestOptions{
		Method: http.MethodGet,
		URL:    server.URL,
	})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSetup_UsesHTTPTimeout(t *testing.T) {
	server := newStalledServer(t)
	t.Setenv("SF_LOGIN_URL", server.URL)
	t.Setenv("SF_CLIENT_ID", "client-id")
	t.Setenv("SF_CLIENT_SECRET", "client-secret")
	t.Setenv("SF_API_VERSION", "")
	t.Setenv("SF_QUERY_API_VERSION", "")
	t.Setenv("TOKEN_STORE", "file")
	t.Setenv("TOKEN_DIR", t.TempDir())
	t.Setenv("TOKEN_NAME", "")
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")
	t.Setenv("HTTP_TIMEOUT", "50ms")

	ctx := context.Background()
	env, err := Setup(ctx, zap.NewNop())
	require.NoError(t, err)
	defer env.Close()

	start := time.Now()
	_, err = env.Client.AuthorizeConfirm(ctx, "code", "https://example.com/callback")
	require.Error(t, err)
	assert.True(t, salesforce.IsTransportError(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}
