package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpAdapter "github.com/iho/goaccount/internal/adapter/http"
	"github.com/iho/goaccount/internal/adapter/http/dto"
	"github.com/iho/goaccount/internal/adapter/http/handler"
	"github.com/iho/goaccount/internal/adapter/repository/memory"
	"github.com/iho/goaccount/internal/infrastructure/auth"
	"github.com/iho/goaccount/internal/infrastructure/eventpublisher"
	"github.com/iho/goaccount/internal/infrastructure/idgen"
	"github.com/iho/goaccount/internal/usecase"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	accountUC := usecase.NewAccountUseCase(
		memory.NewAccountStore(),
		memory.NewLocker(),
		eventpublisher.NewLogPublisher(zerolog.Nop()),
		idgen.NewULIDGenerator(),
	)
	srv := httptest.NewServer(httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler: handler.NewAccountHandler(accountUC),
		HealthHandler:  handler.NewHealthHandler(),
		Logger:         zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--url", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_AccountFlow(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, srv, "open", "eur")
	require.NoError(t, err)

	var opened dto.AccountResponse
	require.NoError(t, json.Unmarshal([]byte(out), &opened))
	assert.Equal(t, "EUR", opened.Currency)

	_, err = execute(t, srv, "credit", opened.ID, "200")
	require.NoError(t, err)
	_, err = execute(t, srv, "credit", opened.ID, "35.55", "--currency", "EUR")
	require.NoError(t, err)
	_, err = execute(t, srv, "debit", opened.ID, "10", "--date", "2025-06-02")
	require.NoError(t, err)
	_, err = execute(t, srv, "debit", opened.ID, "20", "--date", "2025-06-02T18:30:00Z")
	require.NoError(t, err)

	out, err = execute(t, srv, "balance", opened.ID)
	require.NoError(t, err)
	assert.Equal(t, "205.40 EUR\n", out)

	out, err = execute(t, srv, "get", opened.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"amount": "205.40"`)

	out, err = execute(t, srv, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], opened.ID)
	assert.Contains(t, lines[1], "205.40")

	out, err = execute(t, srv, "history", opened.ID)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2025-06-02"))
	assert.Contains(t, lines[1], "10.00 EUR")
	assert.Contains(t, lines[2], "20.00 EUR")
}

func TestCLI_APIErrors(t *testing.T) {
	srv := newTestServer(t)

	_, err := execute(t, srv, "balance", "acc-00000000000000000000000000000000")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	out, err := execute(t, srv, "open", "PLN")
	require.NoError(t, err)
	var opened dto.AccountResponse
	require.NoError(t, json.Unmarshal([]byte(out), &opened))

	_, err = execute(t, srv, "debit", opened.ID, "1")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestCLI_ArgumentErrors(t *testing.T) {
	srv := newTestServer(t)

	_, err := execute(t, srv, "credit", "only-one-arg")
	assert.Error(t, err)

	_, err = execute(t, srv, "debit", "acc", "1", "--date", "yesterday")
	assert.ErrorContains(t, err, "invalid --date")
}

func TestClient_SendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"acc-1"}`))
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL+"/", "tok", "key-1", time.Second)

	var resp dto.AccountResponse
	require.NoError(t, c.do(t.Context(), http.MethodPost, "/api/v1/accounts", dto.OpenAccountRequest{Currency: "PLN"}, &resp))

	assert.Equal(t, "acc-1", resp.ID)
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "key-1", got.Get("Idempotency-Key"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newAPIClient(srv.URL, "", "", time.Second).do(t.Context(), http.MethodGet, "/x", nil, nil)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "502 Bad Gateway", apiErr.Error())
}

func TestTokenCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"token", "--secret", "s3cret", "--subject", "ops", "--scope", auth.ScopeRead})
	require.NoError(t, cmd.Execute())

	claims, err := auth.NewJWTManager("s3cret", time.Hour).Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.True(t, claims.HasScope(auth.ScopeRead))
	assert.False(t, claims.HasScope(auth.ScopeWrite))
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"token"})
	assert.Error(t, cmd.Execute())
}

func TestParseOperationDate(t *testing.T) {
	d, err := parseOperationDate("2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), d)

	d, err = parseOperationDate("2025-06-02T23:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 23, d.Hour())
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}))

	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
