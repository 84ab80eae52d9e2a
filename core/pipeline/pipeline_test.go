package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/subdigest/core"
	"github.com/gaurav-prasanna/subdigest/core/extract"
	"github.com/gaurav-prasanna/subdigest/core/fetch"
	"github.com/gaurav-prasanna/subdigest/core/normalize"
	"github.com/gaurav-prasanna/subdigest/core/output"
	"github.com/gaurav-prasanna/subdigest/core/pipeline"
)

type fakeSource struct {
	posts map[string][]core.PostRecord
	errs  map[string]error
	calls []string
}

func (s *fakeSource) TopPosts(_ context.Context, sub string, limit, minScore int) ([]core.PostRecord, error) {
	s.calls = append(s.calls, fmt.Sprintf("%s/%d/%d", sub, limit, minScore))
	if err := s.errs[sub]; err != nil {
		return nil, err
	}
	return append([]core.PostRecord(nil), s.posts[sub]...), nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []core.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type recordingMetrics struct {
	subreddits []string
	failed     int
	posts      int
	excluded   int
	delivered  int
}

func (r *recordingMetrics) SubredditFetched(sub string, _ int, err error) {
	r.subreddits = append(r.subreddits, sub)
	if err != nil {
		r.failed++
	}
}

func (r *recordingMetrics) DigestAssembled(posts, excluded int) {
	r.posts, r.excluded = posts, excluded
}

func (r *recordingMetrics) DigestDelivered(err error, _ time.Duration) {
	if err == nil {
		r.delivered++
	}
}

func baseConfig() pipeline.Config {
	return pipeline.Config{
		Subreddits: []string{"stocks"},
		Limit:      10,
		MinScore:   20,
		From:       "bot@example.com",
		To:         "reader@example.com",
		Subject:    "Reddit Top Posts",
	}
}

func clock() time.Time {
	return time.Date(2026, time.October, 19, 7, 30, 0, 0, time.UTC)
}

// pageServer serves a Reddit-like post page at /page and counts every hit.
func pageServer(t *testing.T) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()
	var pageHits, imageHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		_, _ = fmt.Fprint(w, `<html><body><shreddit-post>
<div class="text-neutral-content" slot="text-body">
  <p>Hello
     world</p>
</div></shreddit-post></body></html>`)
	})
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		imageHits.Add(1)
		w.Header().Set("Content-Type", "image/png")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &pageHits, &imageHits
}

func TestRun_EndToEnd(t *testing.T) {
	srv, pageHits, imageHits := pageServer(t)

	src := &fakeSource{posts: map[string][]core.PostRecord{
		"stocks": {
			{Title: "A", Score: 100, URL: srv.URL + "/img.png"},
			{Title: "B", Score: 80, URL: srv.URL + "/page"},
		},
	}}
	mailer := &fakeMailer{}
	metrics := &recordingMetrics{}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())

	res, err := pipeline.New(baseConfig(), src, n, mailer,
		pipeline.WithMetrics(metrics), pipeline.WithClock(clock)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(0), imageHits.Load(), "image URLs are never fetched")
	assert.Equal(t, int32(1), pageHits.Load())

	require.Len(t, res.Digest.Posts, 1)
	assert.Equal(t, "B", res.Digest.Posts[0].Title)
	assert.Equal(t, "Hello world", res.Digest.Posts[0].Content)
	assert.Equal(t, 1, res.Digest.Excluded)
	assert.Equal(t, 1, strings.Count(res.Digest.Body, `<div class="container">`))
	assert.Contains(t, res.Digest.Body, "<p >Hello world</p>")
	assert.NotContains(t, res.Digest.Body, ">A</a>")
	assert.True(t, res.Delivered)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, res.Digest.HTML, msg.HTMLBody)
	assert.True(t, msg.IsHTML)
	assert.Equal(t, "Reddit Top Posts", msg.Subject)
	assert.Contains(t, msg.TextBody, "Hello world")

	assert.Equal(t, []string{"stocks"}, metrics.subreddits)
	assert.Equal(t, 1, metrics.posts)
	assert.Equal(t, 1, metrics.excluded)
	assert.Equal(t, 1, metrics.delivered)
}

func TestRun_SourceFailureYieldsNoPosts(t *testing.T) {
	srv, _, _ := pageServer(t)

	cfg := baseConfig()
	cfg.Subreddits = []string{"stocks", "investing", "Stocks", "ETFs_Europe"}
	src := &fakeSource{
		posts: map[string][]core.PostRecord{
			"stocks":      {{Title: "S", Score: 50, URL: srv.URL + "/page"}},
			"ETFs_Europe": {{Title: "E", Score: 40, URL: "https://www.reddit.com/gallery/xyz", Content: "https://www.reddit.com/gallery/xyz", State: core.StateFetched}},
		},
		errs: map[string]error{"investing": errors.New("unexpected status 503 for r/investing")},
	}
	mailer := &fakeMailer{}
	metrics := &recordingMetrics{}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())

	res, err := pipeline.New(cfg, src, n, mailer, pipeline.WithMetrics(metrics)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"stocks/10/20", "investing/10/20", "ETFs_Europe/10/20"}, src.calls)
	assert.Equal(t, 1, metrics.failed)
	require.Len(t, res.Digest.Posts, 1)
	assert.Equal(t, "S", res.Digest.Posts[0].Title)
	assert.Equal(t, "stocks", res.Digest.Posts[0].Subreddit)
	assert.Len(t, mailer.sent, 1)
}

func TestRun_FailedFetchIsRendered(t *testing.T) {
	cfg := baseConfig()
	src := &fakeSource{posts: map[string][]core.PostRecord{
		"stocks": {{Title: "Down", Score: 30, URL: "http://127.0.0.1:1/unreachable"}},
	}}
	mailer := &fakeMailer{}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())

	res, err := pipeline.New(cfg, src, n, mailer).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Digest.Posts, 1)
	assert.True(t, strings.HasPrefix(res.Digest.Posts[0].Content, "Failed to fetch content: "))
	assert.Contains(t, res.Digest.Body, "<p >Failed to fetch content: ")
}

func TestRun_DryRunArchives(t *testing.T) {
	srv, _, _ := pageServer(t)
	dir := t.TempDir()
	w, err := output.New(dir)
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.DryRun = true
	cfg.ArchiveFormats = []string{"html", "json", "bogus"}
	src := &fakeSource{posts: map[string][]core.PostRecord{"stocks": {{Title: "B", Score: 80, URL: srv.URL + "/page"}}}}
	mailer := &fakeMailer{}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())

	res, err := pipeline.New(cfg, src, n, mailer, pipeline.WithArchiver(w), pipeline.WithClock(clock)).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Delivered)
	assert.Empty(t, mailer.sent)

	assert.Equal(t, []string{
		filepath.Join(dir, "digest-20261019-073000.html"),
		filepath.Join(dir, "digest-20261019-073000.json"),
	}, res.Archived)
	html, err := os.ReadFile(res.Archived[0])
	require.NoError(t, err)
	assert.Equal(t, res.Digest.HTML, string(html))
}

func TestRun_SkipEmpty(t *testing.T) {
	cfg := baseConfig()
	cfg.SkipEmpty = true
	src := &fakeSource{posts: map[string][]core.PostRecord{"stocks": {{Title: "A", Score: 100, URL: "http://x/img.png"}}}}
	mailer := &fakeMailer{}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())

	_, err := pipeline.New(cfg, src, n, mailer).Run(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrEmptyDigest)
	assert.Empty(t, mailer.sent)
}

func TestRun_EmptyDigestStillSentByDefault(t *testing.T) {
	mailer := &fakeMailer{}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())

	res, err := pipeline.New(baseConfig(), &fakeSource{}, n, mailer).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].HTMLBody, "<style>")
}

func TestRun_DeliveryFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("535 authentication failed")}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())

	res, err := pipeline.New(baseConfig(), &fakeSource{}, n, mailer).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivering digest: 535 authentication failed")
	require.NotNil(t, res)
	assert.False(t, res.Delivered)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())
	_, err := pipeline.New(baseConfig(), src, n, &fakeMailer{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.calls)
}

func TestRun_ParallelKeepsOrder(t *testing.T) {
	srv, pageHits, _ := pageServer(t)

	cfg := baseConfig()
	cfg.Workers = 4
	var posts []core.PostRecord
	for i := 0; i < 12; i++ {
		posts = append(posts, core.PostRecord{Title: fmt.Sprintf("post-%02d", i), Score: 100 - i, URL: fmt.Sprintf("%s/page?i=%d", srv.URL, i)})
	}
	src := &fakeSource{posts: map[string][]core.PostRecord{"stocks": posts}}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())

	res, err := pipeline.New(cfg, src, n, &fakeMailer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(12), pageHits.Load())
	require.Len(t, res.Digest.Posts, 12)
	for i, p := range res.Digest.Posts {
		assert.Equal(t, fmt.Sprintf("post-%02d", i), p.Title)
	}
}

func TestCollect_LogsPostPreviewAtDebug(t *testing.T) {
	srv, _, _ := pageServer(t)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	src := &fakeSource{posts: map[string][]core.PostRecord{
		"stocks": {{Title: "B", Score: 80, URL: srv.URL + "/page"}},
	}}
	n := normalize.New(fetch.New(time.Second), extract.NewMarker())

	posts, err := pipeline.New(baseConfig(), src, n, nil, pipeline.WithLogger(logger)).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)

	out := logs.String()
	assert.Contains(t, out, "annotated post")
	assert.Contains(t, out, "state=fetched")
	assert.Contains(t, out, "B (80 upvotes)")
	assert.Contains(t, out, "Hello world...")
}
