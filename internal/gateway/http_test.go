package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wahaj/securevault/internal/common"
	"github.com/wahaj/securevault/internal/logging"
	"github.com/wahaj/securevault/internal/models"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func newTestGateway(t *testing.T, handler http.Handler, token string) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logging.NewTextLogger(io.Discard, slog.LevelError)
	g := NewHTTPGateway(srv.URL, 2*time.Second, staticTokens(token), log)
	g.backoff = time.Millisecond
	return g
}

func TestFetchAll(t *testing.T) {
	remote := []models.Credential{
		{ID: "1", Title: "Bank", Password: "p"},
		{ID: "2", Title: "Mail", Password: "q"},
	}
	var gotAuth string
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/credentials", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(remote)
	}), "tok123")

	got, err := g.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Bank", got[0].Title)
	require.Equal(t, "Bearer tok123", gotAuth)
}

func TestCreate(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/credentials", r.URL.Path)

		var in models.Credential
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(in)
	}), "")

	in := models.Credential{ID: "x", Title: "New", Password: "p"}
	out, err := g.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "x", out.ID)
}

func TestUpdateAndDelete_Paths(t *testing.T) {
	var paths []string
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			var in models.Credential
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(in)
		case http.MethodDelete:
			_ = json.NewEncoder(w).Encode(true)
		}
	}), "")

	_, err := g.Update(context.Background(), models.Credential{ID: "abc"})
	require.NoError(t, err)

	ok, err := g.Delete(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, []string{"PUT /credentials/abc", "DELETE /credentials/abc"}, paths)
}

func TestUnauthorized_NoRetry(t *testing.T) {
	var calls int32
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}), "expired")

	_, err := g.FetchAll(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthorized)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestServerError_RetriedThenSucceeds(t *testing.T) {
	var calls int32
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode([]models.Credential{})
	}), "")

	got, err := g.FetchAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestServerError_Exhausted(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}), "")

	_, err := g.FetchAll(context.Background())
	require.ErrorIs(t, err, common.ErrNetwork)
}

func TestUnreachableServer(t *testing.T) {
	log := logging.NewTextLogger(io.Discard, slog.LevelError)
	g := NewHTTPGateway("http://127.0.0.1:1", 500*time.Millisecond, nil, log)
	g.backoff = time.Millisecond

	err := g.Ping(context.Background())
	require.ErrorIs(t, err, common.ErrNetwork)
}

func TestPing(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}), "")
	require.NoError(t, g.Ping(context.Background()))
}
