// Package config provides Viper-based configuration management for subdigest
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingCredentials lists the Reddit variables that are not set.
	ErrMissingCredentials = errors.New("missing required environment variables")
	// ErrMissingRecipient is returned when a send is configured without addresses.
	ErrMissingRecipient = errors.New("digest sender and recipient are required")
	// ErrInvalidValue is returned for out-of-range or unknown settings.
	ErrInvalidValue = errors.New("invalid config value")
)

// Config represents the complete subdigest configuration
type Config struct {
	Reddit  RedditConfig  `mapstructure:"reddit"`
	Digest  DigestConfig  `mapstructure:"digest"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Extract ExtractConfig `mapstructure:"extract"`
	Mail    MailConfig    `mapstructure:"mail"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RedditConfig holds the script-app credentials
type RedditConfig struct {
	ClientID          string  `mapstructure:"client_id"`
	ClientSecret      string  `mapstructure:"client_secret"`
	Username          string  `mapstructure:"username"`
	Password          string  `mapstructure:"password"`
	UserAgent         string  `mapstructure:"user_agent"`
	TokenURL          string  `mapstructure:"token_url"`
	APIBase           string  `mapstructure:"api_base"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// DigestConfig selects posts and addresses the email
type DigestConfig struct {
	Subreddits []string `mapstructure:"subreddits"`
	Limit      int      `mapstructure:"limit"`
	MinScore   int      `mapstructure:"min_score"`
	Exclusions []string `mapstructure:"exclusions"`
	SkipEmpty  bool     `mapstructure:"skip_empty"`
	Subject    string   `mapstructure:"subject"`
	From       string   `mapstructure:"from"`
	To         string   `mapstructure:"to"`
	Cc         string   `mapstructure:"cc"`
}

// FetchConfig bounds page fetches
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	Workers   int           `mapstructure:"workers"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ExtractConfig selects the body extraction strategy
type ExtractConfig struct {
	Strategy string `mapstructure:"strategy"`
}

// MailConfig selects the delivery transport
type MailConfig struct {
	Transport string         `mapstructure:"transport"`
	SMTP      SMTPConfig     `mapstructure:"smtp"`
	Postmark  PostmarkConfig `mapstructure:"postmark"`
}

// SMTPConfig contains relay settings
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TLSMode  string `mapstructure:"tls_mode"`
	// InsecureSkipVerify accepts self-signed relay certificates.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// PostmarkConfig contains API tokens
type PostmarkConfig struct {
	ServerToken  string `mapstructure:"server_token"`
	AccountToken string `mapstructure:"account_token"`
	Tag          string `mapstructure:"tag"`
}

// ArchiveConfig controls where rendered digests are kept
type ArchiveConfig struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"`
	Prefix  string   `mapstructure:"prefix"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config contains bucket settings; an empty bucket disables uploads
type S3Config struct {
	Bucket         string `mapstructure:"bucket"`
	Region         string `mapstructure:"region"`
	Prefix         string `mapstructure:"prefix"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKeyID    string `mapstructure:"access_key_id"`
	SecretKey      string `mapstructure:"secret_key"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// MetricsConfig controls the Pushgateway push at the end of a run
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// envAliases keeps the variable names the job has always read.
var envAliases = map[string]string{
	"reddit.client_id":     "CLIENT_ID",
	"reddit.client_secret": "CLIENT_SECRET",
	"reddit.username":      "REDDIT_USERNAME",
	"reddit.password":      "REDDIT_PASSWORD",
	"reddit.user_agent":    "USER_AGENT",
}

// Load reads .env, the config file and environment variables, in increasing precedence.
// A missing default .env is ignored; a missing explicit envFile is an error.
func Load(cfgFile, envFile string) (*Config, error) {
	optional := envFile == ""
	if optional {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !(optional && errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".subdigest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/subdigest")
	}

	v.SetEnvPrefix("SUBDIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envKey := "SUBDIGEST_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("binding %s: %w", alias, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values. Every key is registered so that
// AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("reddit.client_id", "")
	v.SetDefault("reddit.client_secret", "")
	v.SetDefault("reddit.username", "")
	v.SetDefault("reddit.password", "")
	v.SetDefault("reddit.user_agent", "")
	v.SetDefault("reddit.token_url", "https://www.reddit.com/api/v1/access_token")
	v.SetDefault("reddit.api_base", "https://oauth.reddit.com")
	v.SetDefault("reddit.requests_per_second", 1.0)

	v.SetDefault("digest.subreddits", []string{"stocks", "investing", "StockMarket", "wallstreetbets", "ETFs_Europe", "ValueInvesting"})
	v.SetDefault("digest.limit", 10)
	v.SetDefault("digest.min_score", 20)
	v.SetDefault("digest.exclusions", []string{})
	v.SetDefault("digest.skip_empty", false)
	v.SetDefault("digest.subject", "Reddit Top Posts")
	v.SetDefault("digest.from", "")
	v.SetDefault("digest.to", "")
	v.SetDefault("digest.cc", "")

	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.workers", 1)
	v.SetDefault("fetch.user_agent", "")

	v.SetDefault("extract.strategy", "marker")

	v.SetDefault("mail.transport", "smtp")
	v.SetDefault("mail.smtp.host", "")
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.smtp.username", "")
	v.SetDefault("mail.smtp.password", "")
	v.SetDefault("mail.smtp.tls_mode", "starttls")
	v.SetDefault("mail.smtp.insecure_skip_verify", false)
	v.SetDefault("mail.postmark.server_token", "")
	v.SetDefault("mail.postmark.account_token", "")
	v.SetDefault("mail.postmark.tag", "reddit-digest")

	v.SetDefault("archive.dir", "")
	v.SetDefault("archive.formats", []string{})
	v.SetDefault("archive.prefix", "digest")
	v.SetDefault("archive.s3.bucket", "")
	v.SetDefault("archive.s3.region", "")
	v.SetDefault("archive.s3.prefix", "")
	v.SetDefault("archive.s3.endpoint", "")
	v.SetDefault("archive.s3.access_key_id", "")
	v.SetDefault("archive.s3.secret_key", "")
	v.SetDefault("archive.s3.force_path_style", false)

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "subdigest")

	v.SetDefault("logging.level", "info")
}

// Validate checks value ranges and enumerations. Credentials and addresses
// are checked separately since not every command needs them.
func (c *Config) Validate() error {
	if c.Digest.Limit < 1 {
		return fmt.Errorf("%w: digest.limit must be at least 1, got %d", ErrInvalidValue, c.Digest.Limit)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("%w: fetch.timeout must be positive", ErrInvalidValue)
	}
	if c.Fetch.Workers < 1 {
		return fmt.Errorf("%w: fetch.workers must be at least 1, got %d", ErrInvalidValue, c.Fetch.Workers)
	}

	if !slices.Contains([]string{"marker", "selector", "readability"}, c.Extract.Strategy) {
		return fmt.Errorf("%w: extract.strategy %q (must be marker, selector, or readability)", ErrInvalidValue, c.Extract.Strategy)
	}
	if !slices.Contains([]string{"smtp", "postmark", "log"}, c.Mail.Transport) {
		return fmt.Errorf("%w: mail.transport %q (must be smtp, postmark, or log)", ErrInvalidValue, c.Mail.Transport)
	}
	for _, f := range c.Archive.Formats {
		if !slices.Contains([]string{"html", "markdown", "md", "json", "pdf"}, strings.ToLower(f)) {
			return fmt.Errorf("%w: archive format %q", ErrInvalidValue, f)
		}
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return fmt.Errorf("%w: logging level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Logging.Level)
	}
	return nil
}

// ValidateCredentials reports every missing Reddit variable by its environment name.
func (c *Config) ValidateCredentials() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"CLIENT_ID", c.Reddit.ClientID},
		{"CLIENT_SECRET", c.Reddit.ClientSecret},
		{"REDDIT_USERNAME", c.Reddit.Username},
		{"REDDIT_PASSWORD", c.Reddit.Password},
		{"USER_AGENT", c.Reddit.UserAgent},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateDelivery checks the addresses and the selected transport's settings.
func (c *Config) ValidateDelivery() error {
	if c.Digest.From == "" || c.Digest.To == "" {
		return ErrMissingRecipient
	}
	switch c.Mail.Transport {
	case "smtp":
		if c.Mail.SMTP.Host == "" {
			return fmt.Errorf("%w: mail.smtp.host is required for the smtp transport", ErrInvalidValue)
		}
	case "postmark":
		if c.Mail.Postmark.ServerToken == "" {
			return fmt.Errorf("%w: mail.postmark.server_token is required for the postmark transport", ErrInvalidValue)
		}
	}
	return nil
}
