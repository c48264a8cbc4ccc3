package salesforce

import (
	"ai-salesops-be/internal/pkg/logger"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSalesforce(t *testing.T, expireFirstQuery bool) (*httptest.Server, *int) {
	t.Helper()
	logins := 0
	expired := expireFirstQuery

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ops@example.com", r.PostForm.Get("username"))
		assert.Equal(t, "hunter2TOKEN", r.PostForm.Get("password"))
		logins++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "session-token",
			"token_type":   "Bearer",
			"instance_url": srv.URL,
		})
	})

	mux.HandleFunc("/services/data/v59.0/query", func(w http.ResponseWriter, r *http.Request) {
		if expired {
			expired = false
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(q, "FROM Lead") {
			assert.Contains(t, q, "IsConverted = false")
			assert.Contains(t, q, "LIMIT 2")
			_, _ = w.Write([]byte(`{"totalSize":1,"done":true,"records":[{"attributes":{"type":"Lead"},"Id":"00Q1","Name":"Bertha Boxer","Company":"Farmers Coop"}]}`))
			return
		}
		assert.Contains(t, q, "IsClosed = false")
		_, _ = w.Write([]byte(`{"totalSize":1,"done":true,"records":[{"attributes":{"type":"Opportunity"},"Id":"0061","Name":"United Oil","Amount":270000}]}`))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &logins
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		Username:      "ops@example.com",
		Password:      "hunter2",
		SecurityToken: "TOKEN",
		ClientID:      "client",
		ClientSecret:  "secret",
		LoginURL:      url,
		Limit:         2,
	}, logger.NewNopLogger())
}

func TestGetLeadsAndOpportunities(t *testing.T) {
	srv, logins := newSalesforce(t, false)
	client := newTestClient(srv.URL)
	ctx := context.Background()

	leads, err := client.GetLeads(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Bertha Boxer", leads[0].Name())
	_, hasAttributes := leads[0]["attributes"]
	assert.False(t, hasAttributes)

	opps, err := client.GetOpportunities(ctx)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	amount, _ := opps[0].Float("Amount")
	assert.Equal(t, 270000.0, amount)

	assert.Equal(t, 1, *logins)
}

func TestReloginAfterExpiredSession(t *testing.T) {
	srv, logins := newSalesforce(t, true)
	client := newTestClient(srv.URL)

	leads, err := client.GetLeads(context.Background())
	require.NoError(t, err)
	assert.Len(t, leads, 1)
	assert.Equal(t, 2, *logins)
}
