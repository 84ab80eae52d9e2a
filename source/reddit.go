// Package source provides the post source: Reddit's OAuth API.
// Authentication is the password grant of a Reddit "script" app; the token is
// requested on first use and refreshed by the oauth2 transport when it expires.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/subdigest/core"
)

const (
	// DefaultTokenURL is Reddit's OAuth2 token endpoint.
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	// DefaultAPIBase is the host for authenticated API calls.
	DefaultAPIBase = "https://oauth.reddit.com"
	// DefaultTimeFilter restricts listings to the last day.
	DefaultTimeFilter = "day"

	defaultRequestsPerSecond = 1.0
	defaultTimeout           = 30 * time.Second
	maxListingLimit          = 100
)

// ErrMissingCredentials is returned when a script-app credential is empty.
var ErrMissingCredentials = errors.New("reddit: missing credentials")

// Config holds the script-app credentials and API endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	TokenURL          string
	APIBase           string
	TimeFilter        string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client fetches listings from the Reddit API.
type Client struct {
	http       *http.Client
	apiBase    string
	timeFilter string
	limiter    *rate.Limiter
}

// New builds a Client. No network call is made until the first listing.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"client id", cfg.ClientID},
		{"client secret", cfg.ClientSecret},
		{"username", cfg.Username},
		{"password", cfg.Password},
		{"user agent", cfg.UserAgent},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.TimeFilter == "" {
		cfg.TimeFilter = DefaultTimeFilter
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	// Reddit rejects requests without a descriptive User-Agent, token requests included.
	base := &userAgentTransport{userAgent: cfg.UserAgent, base: http.DefaultTransport}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base, Timeout: cfg.Timeout})

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ts := oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx:      tokenCtx,
		config:   oc,
		username: cfg.Username,
		password: cfg.Password,
	})

	return &Client{
		http: &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: base},
			Timeout:   cfg.Timeout,
		},
		apiBase:    strings.TrimSuffix(cfg.APIBase, "/"),
		timeFilter: cfg.TimeFilter,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}, nil
}

type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string `json:"title"`
				Score     int    `json:"score"`
				URL       string `json:"url"`
				Permalink string `json:"permalink"`
				Subreddit string `json:"subreddit"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// TopPosts returns the subreddit's top posts of the day with a score strictly
// above minScore, in listing order. Content is left unset.
func (c *Client) TopPosts(ctx context.Context, subreddit string, limit, minScore int) ([]core.PostRecord, error) {
	subreddit = NormalizeSubreddit(subreddit)
	if err := ValidateSubreddit(subreddit); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	if limit > maxListingLimit {
		limit = maxListingLimit
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("t", c.timeFilter)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")
	endpoint := fmt.Sprintf("%s/r/%s/top?%s", c.apiBase, url.PathEscape(subreddit), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for r/%s", resp.StatusCode, subreddit)
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("decoding r/%s listing: %w", subreddit, err)
	}

	var posts []core.PostRecord
	for _, child := range l.Data.Children {
		d := child.Data
		if d.Score <= minScore {
			continue
		}
		postURL := d.URL
		if postURL == "" && d.Permalink != "" {
			postURL = "https://www.reddit.com" + d.Permalink
		}
		sub := d.Subreddit
		if sub == "" {
			sub = subreddit
		}
		posts = append(posts, core.PostRecord{
			Title:     d.Title,
			Score:     d.Score,
			URL:       postURL,
			Subreddit: sub,
		})
	}
	return posts, nil
}

// passwordTokenSource performs the resource-owner password grant on demand.
type passwordTokenSource struct {
	ctx      context.Context
	config   *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.config.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("reddit: requesting access token: %w", err)
	}
	return tok, nil
}

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
