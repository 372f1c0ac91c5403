package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/mmk-prompt-jobs/internal/errors"
)

func newRemoteServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRemoteValidation(t *testing.T) {
	_, err := NewRemote(RemoteConfig{URL: "ftp://example.com"})
	require.Error(t, err)

	_, err = NewRemote(RemoteConfig{URL: "http://"})
	require.Error(t, err)

	_, err = NewRemote(RemoteConfig{URL: "http://example.com", ResultPath: "a[?"})
	require.Error(t, err)

	_, err = NewRemote(RemoteConfig{URL: "http://example.com", UsagePath: "]["})
	require.Error(t, err)

	_, err = NewRemote(RemoteConfig{URL: "http://example.com", OAuth2: &OAuth2Config{}})
	require.Error(t, err)
}

func TestRemoteProcessDefaults(t *testing.T) {
	srv := newRemoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body remoteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "job-1", body.JobID)
		assert.Equal(t, "hello", body.Prompt)

		_, _ = w.Write([]byte(`{"result":"hi there","metadata":{"promptTokens":1,"completionTokens":2,"totalTokens":3,"estimatedCost":0.01}}`))
	})

	r, err := NewRemote(RemoteConfig{URL: srv.URL})
	require.NoError(t, err)

	res, err := r.Process(context.Background(), "job-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", res.Result)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, 3, res.Metadata.TotalTokens)
	assert.InDelta(t, 0.01, res.Metadata.EstimatedCost, 1e-9)
}

func TestRemoteProcessCustomPaths(t *testing.T) {
	srv := newRemoteServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"text":"first"},{"text":"second"}],"usage":{"totalTokens":9}}`))
	})

	r, err := NewRemote(RemoteConfig{URL: srv.URL, ResultPath: "choices[0].text", UsagePath: "usage"})
	require.NoError(t, err)

	res, err := r.Process(context.Background(), "job-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "first", res.Result)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, 9, res.Metadata.TotalTokens)
}

func TestRemoteProcessNonStringResult(t *testing.T) {
	srv := newRemoteServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"answer":42}}`))
	})

	r, err := NewRemote(RemoteConfig{URL: srv.URL})
	require.NoError(t, err)

	res, err := r.Process(context.Background(), "job-1", "hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":42}`, res.Result)
	assert.Nil(t, res.Metadata)
}

func TestRemoteProcessFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("overloaded"))
			},
			want: "returned 503: overloaded",
		},
		{
			name: "missing result",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"other":"x"}`))
			},
			want: "no result",
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			want: "decode remote backend response",
		},
		{
			name: "oversized body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"result":"` + strings.Repeat("x", MaxRemoteResponseBytes) + `"}`))
			},
			want: "exceeds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRemoteServer(t, tt.handler)
			r, err := NewRemote(RemoteConfig{URL: srv.URL})
			require.NoError(t, err)

			_, err = r.Process(context.Background(), "job-1", "hello")
			require.Error(t, err)
			assert.True(t, apperrors.IsUpstream(err), "expected upstream failure, got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRemoteProcessOAuth2(t *testing.T) {
	tokenSrv := newRemoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	})
	apiSrv := newRemoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"result":"authorized"}`))
	})

	r, err := NewRemote(RemoteConfig{
		URL: apiSrv.URL,
		OAuth2: &OAuth2Config{
			TokenURL:     tokenSrv.URL,
			ClientID:     "svc",
			ClientSecret: "secret",
			Scopes:       []string{"prompts"},
		},
	})
	require.NoError(t, err)

	res, err := r.Process(context.Background(), "job-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "authorized", res.Result)
}

func TestRemoteProcessConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r, err := NewRemote(RemoteConfig{URL: url})
	require.NoError(t, err)

	_, err = r.Process(context.Background(), "job-1", "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}
