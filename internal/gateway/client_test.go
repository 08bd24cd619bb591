package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/log"
)

type staticTokens struct{ token string }

func (s *staticTokens) Token() string { return s.token }

func TestSendAttachesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "abc"}
	client := New(Config{BaseURL: srv.URL, Tokens: tokens, Logger: log.Discard()})

	var out struct {
		OK bool `json:"ok"`
	}
	err := client.Send(context.Background(), http.MethodGet, "/api/expenses", nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestSendOmitsHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Tokens: &staticTokens{}, Logger: log.Discard()})
	err := client.Send(context.Background(), http.MethodGet, "/api/categories", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestSendReadsTokenAtCallTime(t *testing.T) {
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	tokens := &staticTokens{}
	client := New(Config{BaseURL: srv.URL, Tokens: tokens, Logger: log.Discard()})

	require.NoError(t, client.Send(context.Background(), http.MethodGet, "/api/budgets", nil, nil))
	tokens.token = "fresh"
	require.NoError(t, client.Send(context.Background(), http.MethodGet, "/api/budgets", nil, nil))

	require.Len(t, auths, 2)
	assert.Empty(t, auths[0])
	assert.Equal(t, "Bearer fresh", auths[1])
}

func TestSendMarshalsRequestBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Logger: log.Discard()})
	body := map[string]string{"name": "Groceries"}
	err := client.Send(context.Background(), http.MethodPost, "/api/categories", body, nil)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got["name"])
}

func TestSendNonSuccessStatusBecomesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Logger: log.Discard()})
	err := client.Send(context.Background(), http.MethodPost, "/api/login", nil, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "invalid credentials", httpErr.Message())
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestSendTransportFailureBecomesNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := New(Config{BaseURL: srv.URL, Logger: log.Discard()})
	err := client.Send(context.Background(), http.MethodGet, "/api/expenses", nil, nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.MethodGet, netErr.Method)
}

func TestHTTPErrorMessageFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "error field", body: `{"error":"nope"}`, want: "nope"},
		{name: "message field", body: `{"message":"try later"}`, want: "try later"},
		{name: "error wins over message", body: `{"error":"a","message":"b"}`, want: "a"},
		{name: "plain text body", body: `service unavailable`, want: ""},
		{name: "empty body", body: ``, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &HTTPError{Status: 500, Body: []byte(tt.body)}
			assert.Equal(t, tt.want, e.Message())
		})
	}
}
