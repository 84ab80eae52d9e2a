package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/gaurav-prasanna/subdigest/core"
)

// Metrics captures Prometheus collectors for one digest run.
type Metrics struct {
	registry *prometheus.Registry

	SubredditsFetched *prometheus.CounterVec
	PostsListed       prometheus.Counter
	PostsAnnotated    *prometheus.CounterVec
	AnnotateLatency   prometheus.Histogram
	DigestPosts       prometheus.Gauge
	DigestExcluded    prometheus.Gauge
	Deliveries        *prometheus.CounterVec
	DeliveryLatency   prometheus.Histogram
	LastSuccess       prometheus.Gauge
}

// NewMetrics registers run metrics on a fresh registry.
func NewMetrics() *Metrics {
	const namespace = "subdigest"
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SubredditsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subreddits_fetched_total",
			Help:      "Number of subreddit listings requested, grouped by result.",
		}, []string{"result"}),
		PostsListed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_listed_total",
			Help:      "Number of posts returned by subreddit listings above the score threshold.",
		}),
		PostsAnnotated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_annotated_total",
			Help:      "Number of posts annotated, grouped by content state.",
		}, []string{"state"}),
		AnnotateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "annotate_duration_seconds",
			Help:      "Time spent fetching and extracting post content.",
			Buckets:   prometheus.DefBuckets,
		}),
		DigestPosts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "digest_posts",
			Help:      "Number of posts in the last assembled digest.",
		}),
		DigestExcluded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "digest_excluded_posts",
			Help:      "Number of posts dropped by exclusions in the last digest.",
		}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Number of digest delivery attempts, grouped by result.",
		}, []string{"result"}),
		DeliveryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent handing the digest to the mail transport.",
			Buckets:   prometheus.DefBuckets,
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful delivery.",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PostAnnotated records one normalizer outcome.
func (m *Metrics) PostAnnotated(state core.ContentState, elapsed time.Duration) {
	m.PostsAnnotated.WithLabelValues(state.String()).Inc()
	m.AnnotateLatency.Observe(elapsed.Seconds())
}

// SubredditFetched records one listing request.
func (m *Metrics) SubredditFetched(_ string, posts int, err error) {
	if err != nil {
		m.SubredditsFetched.WithLabelValues("error").Inc()
		return
	}
	m.SubredditsFetched.WithLabelValues("ok").Inc()
	m.PostsListed.Add(float64(posts))
}

// DigestAssembled records the size of the assembled digest.
func (m *Metrics) DigestAssembled(posts, excluded int) {
	m.DigestPosts.Set(float64(posts))
	m.DigestExcluded.Set(float64(excluded))
}

// DigestDelivered records a delivery attempt.
func (m *Metrics) DigestDelivered(err error, elapsed time.Duration) {
	m.DeliveryLatency.Observe(elapsed.Seconds())
	if err != nil {
		m.Deliveries.WithLabelValues("error").Inc()
		return
	}
	m.Deliveries.WithLabelValues("ok").Inc()
	m.LastSuccess.SetToCurrentTime()
}

// Push sends every collected metric to a Pushgateway. The job runs to
// completion, so there is no scrape endpoint.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
