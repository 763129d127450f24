package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/ledger"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/tools"
)

func newTestHTTPServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	store, err := ledger.OpenStore(ledger.StoreConfig{
		Path: filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := New(Config{
		APIKey:   apiKey,
		Registry: tools.NewRegistry(ledger.NewService(store, nil)),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postCall(t *testing.T, ts *httptest.Server, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/tools/call", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), "body %q", raw)
	return resp, decoded
}

func TestHealth(t *testing.T) {
	ts := newTestHTTPServer(t, "")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestToolsListing(t *testing.T) {
	ts := newTestHTTPServer(t, "")

	resp, err := http.Get(ts.URL + "/v1/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tools []struct {
			Name     string `json:"name"`
			ReadOnly bool   `json:"read_only"`
		} `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tools, 6)
	assert.Equal(t, "create_account", body.Tools[0].Name)
	assert.True(t, body.Tools[5].ReadOnly)
}

func TestToolCallFlow(t *testing.T) {
	ts := newTestHTTPServer(t, "")

	resp, body := postCall(t, ts,
		`{"name":"create_account","arguments":{"name":"Jane Doe","email":"jane@example.com","initial_deposit":500}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := body["result"].(map[string]any)
	assert.Equal(t, float64(1), result["account_id"])
	assert.Equal(t, "500", result["balance"])
	assert.Equal(t, "USD", result["currency"])

	resp, body = postCall(t, ts,
		`{"name":"deposit","arguments":{"account_id":1,"amount":200}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = body["result"].(map[string]any)
	assert.Equal(t, "700", result["new_balance"])
}

func TestToolCallErrorMapping(t *testing.T) {
	ts := newTestHTTPServer(t, "")

	_, _ = postCall(t, ts,
		`{"name":"create_account","arguments":{"name":"Jane","email":"jane@example.com","initial_deposit":100}}`, nil)

	cases := []struct {
		name     string
		body     string
		status   int
		category string
	}{
		{
			"missing name",
			`{"arguments":{}}`,
			http.StatusBadRequest, "validation",
		},
		{
			"unknown tool",
			`{"name":"transfer","arguments":{}}`,
			http.StatusNotFound, "not_found",
		},
		{
			"bad amount",
			`{"name":"deposit","arguments":{"account_id":1,"amount":-5}}`,
			http.StatusBadRequest, "validation",
		},
		{
			"missing account",
			`{"name":"get_balance","arguments":{"account_id":99}}`,
			http.StatusNotFound, "not_found",
		},
		{
			"duplicate email",
			`{"name":"create_account","arguments":{"name":"Other","email":"jane@example.com"}}`,
			http.StatusConflict, "conflict",
		},
		{
			"overdraw",
			`{"name":"withdraw","arguments":{"account_id":1,"amount":9999}}`,
			http.StatusConflict, "insufficient_funds",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postCall(t, ts, tc.body, nil)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.category, body["category"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAPIKey(t *testing.T) {
	ts := newTestHTTPServer(t, "sekrit")

	// Health stays open for probes.
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/v1/tools")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := postCall(t, ts, `{"name":"list_accounts","arguments":{}}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["category"])

	resp, body = postCall(t, ts, `{"name":"list_accounts","arguments":{}}`,
		map[string]string{"X-API-Key": "sekrit"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	result := body["result"].(map[string]any)
	assert.Equal(t, float64(0), result["count"])
}
