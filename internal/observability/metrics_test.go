package observability_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/subdigest/core"
	"github.com/gaurav-prasanna/subdigest/core/normalize"
	"github.com/gaurav-prasanna/subdigest/core/pipeline"
	"github.com/gaurav-prasanna/subdigest/internal/observability"
)

var (
	_ normalize.Observer = (*observability.Metrics)(nil)
	_ pipeline.Metrics   = (*observability.Metrics)(nil)
)

func TestMetrics_RecordRun(t *testing.T) {
	m := observability.NewMetrics()

	m.SubredditFetched("stocks", 3, nil)
	m.SubredditFetched("investing", 0, errors.New("503"))
	m.PostAnnotated(core.StateFetched, 20*time.Millisecond)
	m.PostAnnotated(core.StateFetched, 30*time.Millisecond)
	m.PostAnnotated(core.StateSkipped, 0)
	m.DigestAssembled(2, 1)
	m.DigestDelivered(nil, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubredditsFetched.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubredditsFetched.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PostsListed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PostsAnnotated.WithLabelValues("fetched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PostsAnnotated.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DigestPosts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DigestExcluded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("ok")))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccess), 0.0)
}

func TestMetrics_FailedDeliveryKeepsLastSuccess(t *testing.T) {
	m := observability.NewMetrics()
	m.DigestDelivered(errors.New("535"), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastSuccess))
}

func TestMetrics_GatherExposition(t *testing.T) {
	m := observability.NewMetrics()
	m.DigestAssembled(4, 0)

	expected := `
# HELP subdigest_digest_posts Number of posts in the last assembled digest.
# TYPE subdigest_digest_posts gauge
subdigest_digest_posts 4
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "subdigest_digest_posts"))
}

func TestMetrics_Push(t *testing.T) {
	var method, path string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := observability.NewMetrics()
	m.DigestAssembled(5, 0)

	require.NoError(t, m.Push(context.Background(), srv.URL, "subdigest"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/subdigest", path)
	assert.NotEmpty(t, body)
}

func TestMetrics_PushDisabledAndFailure(t *testing.T) {
	m := observability.NewMetrics()
	assert.NoError(t, m.Push(context.Background(), "", "subdigest"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := m.Push(context.Background(), srv.URL, "subdigest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pushing metrics to "+srv.URL)
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "subreddit", "stocks")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "subreddit=stocks")
}
