// Package live implements provider.Provider against the remote stats API
// over HTTP, with classified errors and shared 429 cool-down tracking.
package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/wzstats-client/pkg/provider"
	"github.com/Sternrassler/wzstats-client/pkg/ratelimit"
)

// Prometheus metrics for remote API calls.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wzstats_provider_requests_total",
		Help: "Total stats API requests by operation and status",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wzstats_provider_request_duration_seconds",
		Help:    "Stats API request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
	}, []string{"operation"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wzstats_provider_errors_total",
		Help: "Total stats API errors by class",
	}, []string{"class"})
)

const (
	opProfile     = "profile"
	opMatchPage   = "match_page"
	opMatchDetail = "match_detail"

	maxBodyBytes = 32 << 20
)

// Config holds the live provider configuration.
type Config struct {
	// BaseURL is the API root, without trailing slash
	BaseURL string `yaml:"base_url" default:"https://my.callofduty.com/api/papi-client" env:"BASE_URL"`

	// Token is the bearer access token
	Token string `yaml:"token" env:"TOKEN"`

	// DeviceID is sent as x_cod_device_id (random when empty)
	DeviceID string `yaml:"device_id" env:"DEVICE_ID"`

	// UserAgent header
	UserAgent string `yaml:"user_agent" default:"wzstats-client/1.0" env:"USER_AGENT"`

	// Language of match detail payloads
	Language string `yaml:"language" default:"en" env:"LANGUAGE"`

	// Timeout per HTTP request
	Timeout time.Duration `yaml:"timeout" default:"15s" env:"TIMEOUT"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://my.callofduty.com/api/papi-client",
		UserAgent: "wzstats-client/1.0",
		Language:  "en",
		Timeout:   15 * time.Second,
	}
}

// Provider is the HTTP implementation of provider.Provider.
type Provider struct {
	httpClient *http.Client
	tracker    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithTracker gates requests on the shared 429 cool-down state.
func WithTracker(t *ratelimit.Tracker) Option {
	return func(p *Provider) {
		p.tracker = t
	}
}

// WithHTTPClient replaces the HTTP client (for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithLogger overrides the provider logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New creates a live provider.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
	}

	p := &Provider{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log.With().Str("component", "live-provider").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// DeviceID returns the device identifier sent with every request.
func (p *Provider) DeviceID() string {
	return p.config.DeviceID
}

// FetchProfile returns the lifetime Warzone profile of a player.
func (p *Provider) FetchProfile(ctx context.Context, platform provider.Platform, username string) (*provider.Profile, error) {
	path := fmt.Sprintf("/stats/cod/v1/title/mw/platform/%s/gamer/%s/profile/type/wz",
		url.PathEscape(string(platform)), url.PathEscape(username))

	var profile provider.Profile
	if err := p.get(ctx, opProfile, path, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FetchMatchPage returns up to 20 matches that started before the given time.
func (p *Provider) FetchMatchPage(ctx context.Context, platform provider.Platform, username string, before time.Time) (*provider.MatchPage, error) {
	var end int64
	if !before.IsZero() {
		end = before.UnixMilli()
	}
	path := fmt.Sprintf("/crm/cod/v2/title/mw/platform/%s/gamer/%s/matches/wz/start/0/end/%s/details",
		url.PathEscape(string(platform)), url.PathEscape(username), strconv.FormatInt(end, 10))

	var page provider.MatchPage
	if err := p.get(ctx, opMatchPage, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchMatchDetail returns every player's stats for one match.
func (p *Provider) FetchMatchDetail(ctx context.Context, platform provider.Platform, matchID string) (*provider.MatchDetail, error) {
	path := fmt.Sprintf("/crm/cod/v2/title/mw/platform/%s/fullMatch/wz/%s/%s",
		url.PathEscape(string(platform)), url.PathEscape(matchID), url.PathEscape(p.config.Language))

	var detail provider.MatchDetail
	if err := p.get(ctx, opMatchDetail, path, &detail); err != nil {
		return nil, err
	}
	detail.MatchID = matchID
	return &detail, nil
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// get performs one GET and decodes the data field of the response envelope
// into out. Every failure is returned as *provider.Error, except caller
// cancellation which wraps the context error.
func (p *Provider) get(ctx context.Context, op, path string, out any) error {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check shared cool-down
	if p.tracker != nil {
		allowed, wait, err := p.tracker.ShouldAllowRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%s: %w", op, ctx.Err())
			}
			p.logger.Warn().Err(err).Msg("Throttle state unavailable, proceeding")
		} else if !allowed {
			requestsTotal.WithLabelValues(op, "rate_limited").Inc()
			return p.fail(&provider.Error{
				Op:      op,
				Class:   provider.ErrorClassRateLimit,
				Message: fmt.Sprintf("cool-down active for %s", wait.Round(time.Millisecond)),
			})
		}
	}

	// Step 2: Build request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+path, nil)
	if err != nil {
		return p.fail(&provider.Error{Op: op, Class: provider.ErrorClassClient, Message: "create request", Err: err})
	}
	req.Header.Set("User-Agent", p.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x_cod_device_id", p.config.DeviceID)
	if p.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.Token)
	}

	p.logger.Debug().
		Str("operation", op).
		Str("path", path).
		Msg("Executing stats API request")

	// Step 3: Execute
	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", op, err)
		}
		requestsTotal.WithLabelValues(op, "transport_error").Inc()
		return p.fail(&provider.Error{Op: op, Class: provider.ClassifyTransport(err), Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		requestsTotal.WithLabelValues(op, "transport_error").Inc()
		return p.fail(&provider.Error{Op: op, StatusCode: resp.StatusCode, Class: provider.ClassifyTransport(err), Err: err})
	}
	requestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 4: Record throttling
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After"))
		if p.tracker != nil {
			if err := p.tracker.RecordThrottle(ctx, retryAfter); err != nil {
				p.logger.Warn().Err(err).Msg("Failed to record throttle")
			}
		}
		return p.fail(&provider.Error{Op: op, StatusCode: resp.StatusCode, Class: provider.ErrorClassRateLimit, Message: resp.Status})
	}

	// Step 5: Decode envelope
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if class := provider.ClassifyStatus(resp.StatusCode); class != "" {
			return p.fail(&provider.Error{Op: op, StatusCode: resp.StatusCode, Class: class, Message: resp.Status})
		}
		return p.fail(&provider.Error{Op: op, StatusCode: resp.StatusCode, Class: provider.ErrorClassMalformed, Message: "response is not JSON", Err: err})
	}

	// The API reports many failures as HTTP 200 with status "error"
	if env.Status == "error" {
		msg := errorMessage(env.Data)
		class := provider.ClassifyStatus(resp.StatusCode)
		if class == "" {
			class = provider.ClassifyMessage(msg)
		}
		return p.fail(&provider.Error{Op: op, StatusCode: resp.StatusCode, Class: class, Message: msg})
	}

	if class := provider.ClassifyStatus(resp.StatusCode); class != "" {
		return p.fail(&provider.Error{Op: op, StatusCode: resp.StatusCode, Class: class, Message: resp.Status})
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return p.fail(&provider.Error{Op: op, StatusCode: resp.StatusCode, Class: provider.ErrorClassMalformed, Message: "missing data"})
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return p.fail(&provider.Error{Op: op, StatusCode: resp.StatusCode, Class: provider.ErrorClassMalformed, Message: "unexpected data shape", Err: err})
	}
	return nil
}

func (p *Provider) fail(e *provider.Error) error {
	errorsTotal.WithLabelValues(string(e.Class)).Inc()
	p.logger.Warn().
		Str("operation", e.Op).
		Int("status", e.StatusCode).
		Str("error_class", string(e.Class)).
		Str("message", e.Message).
		Msg("Stats API request error")
	return e
}

// errorMessage extracts a human readable message from an error payload,
// which is either an object with a message field or a bare string.
func errorMessage(data json.RawMessage) string {
	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}
