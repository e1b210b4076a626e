package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/natserract/sfclient/pkg/bootstrap"
	"github.com/natserract/sfclient/pkg/salesforce"
	"github.com/natserract/sfclient/pkg/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBearer = "Bearer stored-access-token"

// setupEnv points the tools at a temp file store holding a token for apiURL.
func setupEnv(t *testing.T, apiURL string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SF_LOGIN_URL", "https://login.salesforce.com")
	t.Setenv("SF_CLIENT_ID", "client-id")
	t.Setenv("SF_CLIENT_SECRET", "client-secret")
	t.Setenv("SF_API_VERSION", "")
	t.Setenv("SF_QUERY_API_VERSION", "")
	t.Setenv("TOKEN_STORE", "file")
	t.Setenv("TOKEN_DIR", dir)
	t.Setenv("TOKEN_NAME", "")
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")
	t.Setenv("HTTP_TIMEOUT", "")

	if apiURL == "" {
		return
	}
	issued := time.Now().UTC().Truncate(time.Second)
	token := &salesforce.AccessToken{
		DateIssued:  issued,
		DateExpires: issued.Add(55 * time.Minute),
		Scope:       []string{"api"},
		TokenType:   "Bearer",
		AccessToken: "stored-access-token",
		APIURL:      apiURL,
	}
	require.NoError(t, tokenstore.NewFileStore(dir).Save(context.Background(), token))
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(zap.NewNop())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testBearer, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/services/data/v24.0/query/":
			assert.Equal(t, "SELECT Id, Name FROM Account", r.URL.Query().Get("q"))
			_, _ = io.WriteString(w, `{"totalSize":2,"done":false,"nextRecordsUrl":"/services/data/v24.0/query/01g-2000",
				"records":[{"attributes":{"type":"Account"},"Id":"001A","Name":"Acme"}]}`)
		case r.URL.Path == "/services/data/v24.0/query/01g-2000":
			_, _ = io.WriteString(w, `{"totalSize":2,"done":true,
				"records":[{"attributes":{"type":"Account"},"Id":"001B","Name":"Globex"}]}`)
		case strings.HasPrefix(r.URL.Path, "/services/data/v20.0/sobjects/Account/"):
			id := strings.TrimPrefix(r.URL.Path, "/services/data/v20.0/sobjects/Account/")
			switch r.Method {
			case http.MethodGet:
				assert.Equal(t, "Name", r.URL.Query().Get("fields"))
				_, _ = io.WriteString(w, `{"Id":"`+id+`","Name":"Name of `+id+`"}`)
			case http.MethodDelete, http.MethodPatch:
				w.WriteHeader(http.StatusNoContent)
			}
		case r.URL.Path == "/services/data/v20.0/sobjects/Contact/":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"003NEW","success":true,"errors":[]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestQueryCmd_JSON(t *testing.T) {
	setupEnv(t, newAPIServer(t).URL)

	out, err := runCmd(t, "query", "SELECT Id, Name FROM Account")
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Acme", records[0]["Name"])
	assert.Equal(t, "Globex", records[1]["Name"])
}

func TestQueryCmd_Table(t *testing.T) {
	setupEnv(t, newAPIServer(t).URL)

	out, err := runCmd(t, "query", "SELECT Id, Name FROM Account", "--output", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "001B")
	assert.Contains(t, out, "2 records")
	assert.NotContains(t, out, "attributes")
}

func TestGetCmd_KeepsOrder(t *testing.T) {
	setupEnv(t, newAPIServer(t).URL)

	ids := []string{"001A", "001B", "001C", "001D", "001E", "001F"}
	args := append([]string{"get", "Account", "--fields", "Name", "--parallel", "3"}, ids...)
	out, err := runCmd(t, args...)
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, records[i]["Id"])
	}
}

func TestCreateUpdateDeleteCmds(t *testing.T) {
	setupEnv(t, newAPIServer(t).URL)

	out, err := runCmd(t, "create", "Contact", `{"LastName":"Doe","Age":42}`)
	require.NoError(t, err)
	assert.Equal(t, "003NEW\n", out)

	_, err = runCmd(t, "update", "Account", "001A", `{"Name":"Acme 2"}`)
	assert.NoError(t, err)

	_, err = runCmd(t, "delete", "Account", "001A")
	assert.NoError(t, err)

	_, err = runCmd(t, "create", "Contact", `{not json`)
	assert.ErrorContains(t, err, "invalid record json")
}

func TestCmd_WithoutStoredToken(t *testing.T) {
	setupEnv(t, "")

	_, err := runCmd(t, "delete", "Account", "001A")
	require.Error(t, err)
	assert.True(t, salesforce.IsStoreNotFound(err))
	assert.Equal(t, bootstrap.ExitCodeAuthRequired, bootstrap.ExitCode(err))
}

func TestCmd_SessionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `[{"message":"Session expired or invalid","errorCode":"INVALID_SESSION_ID"}]`)
	}))
	defer server.Close()
	setupEnv(t, server.URL)

	_, err := runCmd(t, "query", "SELECT Id FROM Account")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sftoken refresh")
	assert.Equal(t, bootstrap.ExitCodeAuthRequired, bootstrap.ExitCode(err))
}

func TestWriteRecords_UnknownFormat(t *testing.T) {
	err := writeRecords(io.Discard, nil, "yaml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestRecordColumns(t *testing.T) {
	records := []salesforce.Record{
		{"attributes": map[string]interface{}{"type": "Account"}, "Name": "Acme", "Id": "1"},
		{"Industry": "Energy", "Id": "2"},
	}
	assert.Equal(t, []string{"Id", "Industry", "Name"}, recordColumns(records))
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, "", cellValue(nil))
	assert.Equal(t, "42", cellValue(float64(42)))
	assert.Equal(t, `{"City":"Paris"}`, cellValue(map[string]interface{}{"City": "Paris"}))

	assert.Equal(t, "short", cellValue("short"))

	got := cellValue(strings.Repeat("x", 100))
	assert.Equal(t, strings.Repeat("x", maxCellWidth-3)+"...", got)
}

func TestCellValue_MultibyteText(t *testing.T) {
	name := strings.Repeat("a", 56) + "日本語テキスト"

	got := cellValue(name)
	assert.True(t, utf8.ValidString(got), "invalid utf-8: %q", got)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 56)))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Less(t, utf8.RuneCountInString(got), utf8.RuneCountInString(name)+3)

	accented := "Société Générale Ünïcode Ñame"
	assert.Equal(t, accented, cellValue(accented))
}
