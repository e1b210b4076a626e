package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/natserract/sfclient/pkg/salesforce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToken() *salesforce.AccessToken {
	issued := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	return &salesforce.AccessToken{
		ID:           "https://login.salesforce.com/id/00D/005",
		DateIssued:   issued,
		DateExpires:  issued.Add(55 * time.Minute),
		Scope:        []string{"api", "refresh_token"},
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Signature:    "sig",
		AccessToken:  "access",
		APIURL:       "https://na1.salesforce.com",
	}
}

func TestFileStore_FetchBeforeSave(t *testing.T) {
	store := NewFileStore(t.TempDir())

	token, err := store.Fetch(context.Background())
	require.Error(t, err)
	assert.Nil(t, token)
	assert.True(t, salesforce.IsStoreNotFound(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileStore_SaveAndFetch(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	original := testToken()
	require.NoError(t, store.Save(ctx, original))

	assert.Equal(t, filepath.Join(dir, "sf-key"), store.Path())
	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	fetched, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, fetched)

	// A second store on the same path sees the same token
	other, err := NewFileStore(dir).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, original.AccessToken, other.AccessToken)
}

func TestFileStore_FileContentsArePersistedJSON(t *testing.T) {
	store := NewFileStore(t.TempDir())
	token := testToken()
	require.NoError(t, store.Save(context.Background(), token))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	expected, err := token.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, expected, string(data))
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "secrets")
	store := NewFileStore(dir, WithFileName("token.json"))

	require.NoError(t, store.Save(context.Background(), testToken()))
	_, err := os.Stat(filepath.Join(dir, "token.json"))
	assert.NoError(t, err)
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	token := testToken()
	require.NoError(t, store.Save(ctx, token))

	token.AccessToken = "rotated"
	require.NoError(t, store.Save(ctx, token))

	fetched, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rotated", fetched.AccessToken)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("{not json"), 0o600))

	_, err := NewFileStore(dir).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, salesforce.IsDeserializationError(err))
	assert.False(t, salesforce.IsStoreNotFound(err))
}

func TestFileStore_Sealed(t *testing.T) {
	dir := t.TempDir()
	sealer, err := NewSecretboxSealer(make([]byte, 32))
	require.NoError(t, err)

	store := NewFileStore(dir, WithSealer(sealer))
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testToken()))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "access")

	fetched, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, testToken(), fetched)

	// Reading without the key fails to decode
	_, err = NewFileStore(dir).Fetch(ctx)
	assert.True(t, salesforce.IsDeserializationError(err))
}

func TestFileStore_CancelledContext(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Save(ctx, testToken()), context.Canceled)
	_, err := store.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStore_SaveNilToken(t *testing.T) {
	store := NewFileStore(t.TempDir())
	assert.Error(t, store.Save(context.Background(), nil))
}
