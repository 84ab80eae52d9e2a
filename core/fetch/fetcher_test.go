package fetch_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/subdigest/core/fetch"
)

func TestFetch_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := fetch.New(time.Second, fetch.WithUserAgent("test-agent/1.0"))
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "<html>ok</html>", res.HTML)
	assert.Equal(t, srv.URL, res.URL)
	assert.Equal(t, "test-agent/1.0", gotUA)
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := fetch.New(time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := fetch.New(50*time.Millisecond).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetch_BadURL(t *testing.T) {
	_, err := fetch.New(0).Fetch(context.Background(), "://bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating request")
}

func TestFetch_TruncatesLargeBody(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		want          string
		wantTruncated bool
	}{
		{"fits exactly", "0123456789", "0123456789", false},
		{"one byte over", "0123456789A", "0123456789", true},
		{"far over", strings.Repeat("x", 64), "xxxxxxxxxx", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			f := fetch.New(time.Second, fetch.WithMaxBodyBytes(10), fetch.WithLogger(logger))

			res, err := f.Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.HTML)
			assert.Equal(t, tt.wantTruncated, res.Truncated)
			if tt.wantTruncated {
				assert.Contains(t, logs.String(), "page body truncated")
				assert.Contains(t, logs.String(), "limit_bytes=10")
			} else {
				assert.Empty(t, logs.String())
			}
		})
	}
}

func TestFetch_WithClient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>tls</html>"))
	}))
	defer srv.Close()

	// The default client does not trust the test certificate.
	_, err := fetch.New(time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	res, err := fetch.New(time.Second, fetch.WithClient(srv.Client())).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>tls</html>", res.HTML)
}
