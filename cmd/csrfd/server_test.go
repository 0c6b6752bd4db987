package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JeanGrijp/go-csrf-firewall/internal/config"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	h, err := newServer(cfg, zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func fetchToken(t *testing.T, srv *httptest.Server) (string, *http.Cookie) {
	t.Helper()
	res, err := http.Get(srv.URL + "/csrf-token")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, string(body), cookies[0].Value)
	return string(body), cookies[0]
}

func TestServerSubmitFlow(t *testing.T) {
	srv := newTestServer(t, config.Default())
	token, cookie := fetchToken(t, srv)

	// Without the token in the form the firewall rejects.
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/submit", nil)
	req.AddCookie(cookie)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusPreconditionFailed, res.StatusCode)

	form := url.Values{"csrf-token": {token}}
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	require.Equal(t, "ok", string(body))
}

func TestServerPageRendersHiddenField(t *testing.T) {
	srv := newTestServer(t, config.Default())

	res, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	require.Contains(t, string(body), `<input type="hidden" name="csrf-token" value="`+cookies[0].Value+`">`)
}

func TestServerStrictRejectsBareGet(t *testing.T) {
	cfg := config.Default()
	cfg.Firewall.Strict = true
	srv := newTestServer(t, cfg)

	res, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusPreconditionFailed, res.StatusCode)
}

func TestServerStrictTokenEndpointBootstrapsClient(t *testing.T) {
	cfg := config.Default()
	cfg.Firewall.Strict = true
	srv := newTestServer(t, cfg)

	token, cookie := fetchToken(t, srv)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	req.AddCookie(cookie)
	req.Header.Set("X-CSRF-Token", token)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Empty(t, res.Cookies(), "existing cookie is reused")
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, config.Default())
	fetchToken(t, srv)

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	require.Contains(t, string(body), "csrf_tokens_issued_total 1")
	require.Empty(t, res.Cookies(), "metrics are served outside the CSRF group")
}

func TestTokenCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", "", "token", "--length", "24"})
	require.NoError(t, cmd.Execute())
	require.Len(t, strings.TrimSpace(out.String()), 24)

	cmd = newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"--env-file", "", "token", "-n", "0"})
	require.Error(t, cmd.Execute())
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	_, err := loadConfig("/nonexistent/csrfd.yaml")
	require.Error(t, err)
}
