// Package replay implements provider.Provider from recorded fixtures, for
// offline and demo runs.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/wzstats-client/pkg/provider"
)

// Fixture file names inside the replay directory.
const (
	ProfileFile     = "profile.json"
	HistoryFile     = "matches.json"
	MatchFile       = "match.json"
	MatchesDir      = "matches"
	DefaultPageSize = 20
)

// Config holds replay provider configuration.
type Config struct {
	// Dir holds the fixture files
	Dir string `yaml:"dir" env:"DIR"`

	// PageSize is the number of matches per history page
	PageSize int `yaml:"page_size" default:"20" env:"PAGE_SIZE"`

	// Latency is slept before every call to mimic the remote API
	Latency time.Duration `yaml:"latency" env:"LATENCY"`
}

// Provider serves recorded records. It is safe for concurrent use; its
// data is never mutated after construction.
type Provider struct {
	profile  *provider.Profile
	history  []provider.MatchSummary
	details  map[string]*provider.MatchDetail
	fallback *provider.MatchDetail
	pageSize int
	latency  time.Duration
	logger   zerolog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithPageSize sets the number of matches per page.
func WithPageSize(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithFallbackDetail serves d for match IDs without their own fixture.
func WithFallbackDetail(d *provider.MatchDetail) Option {
	return func(p *Provider) {
		p.fallback = d
	}
}

// WithLatency sleeps d before every call.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) {
		p.latency = d
	}
}

// WithLogger overrides the provider logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New builds a replay provider from in-memory records. history may be in
// any order; it is served newest first.
func New(profile *provider.Profile, history []provider.MatchSummary, details map[string]*provider.MatchDetail, opts ...Option) *Provider {
	sorted := append([]provider.MatchSummary(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UTCStartSeconds > sorted[j].UTCStartSeconds
	})
	if details == nil {
		details = map[string]*provider.MatchDetail{}
	}

	p := &Provider{
		profile:  profile,
		history:  sorted,
		details:  details,
		pageSize: DefaultPageSize,
		logger:   log.With().Str("component", "replay-provider").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load reads fixtures from cfg.Dir. Every file is optional; calls whose
// fixture is missing fail with a not_found error.
func Load(cfg Config, opts ...Option) (*Provider, error) {
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("replay dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("replay dir %s is not a directory", cfg.Dir)
	}

	var profile *provider.Profile
	if err := readFixture(filepath.Join(cfg.Dir, ProfileFile), &profile); err != nil {
		return nil, err
	}

	var history []provider.MatchSummary
	if err := readFixture(filepath.Join(cfg.Dir, HistoryFile), &history); err != nil {
		return nil, err
	}

	var fallback *provider.MatchDetail
	if err := readFixture(filepath.Join(cfg.Dir, MatchFile), &fallback); err != nil {
		return nil, err
	}

	details, err := loadDetails(filepath.Join(cfg.Dir, MatchesDir))
	if err != nil {
		return nil, err
	}

	all := []Option{WithPageSize(cfg.PageSize), WithLatency(cfg.Latency), WithFallbackDetail(fallback)}
	p := New(profile, history, details, append(all, opts...)...)

	p.logger.Info().
		Str("dir", cfg.Dir).
		Bool("profile", profile != nil).
		Int("matches", len(history)).
		Int("details", len(details)).
		Msg("Replay fixtures loaded")

	return p, nil
}

func readFixture(path string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return nil
}

func loadDetails(dir string) (map[string]*provider.MatchDetail, error) {
	details := map[string]*provider.MatchDetail{}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return details, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var d provider.MatchDetail
		if err := readFixture(filepath.Join(dir, e.Name()), &d); err != nil {
			return nil, err
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		if d.MatchID == "" {
			d.MatchID = id
		}
		details[id] = &d
	}
	return details, nil
}

// FetchProfile returns the recorded profile.
func (p *Provider) FetchProfile(ctx context.Context, platform provider.Platform, username string) (*provider.Profile, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if p.profile == nil {
		return nil, notFound("profile", "no recorded profile")
	}
	profile := *p.profile
	return &profile, nil
}

// FetchMatchPage returns the recorded matches that started strictly before
// the given time, newest first, one page at a time.
func (p *Provider) FetchMatchPage(ctx context.Context, platform provider.Platform, username string, before time.Time) (*provider.MatchPage, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	page := &provider.MatchPage{Matches: make([]provider.MatchSummary, 0, p.pageSize)}
	for _, m := range p.history {
		if !before.IsZero() && !m.StartTime().Before(before) {
			continue
		}
		page.Matches = append(page.Matches, m)
		if len(page.Matches) == p.pageSize {
			break
		}
	}
	return page, nil
}

// FetchMatchDetail returns the recorded match, or the fallback match with
// its ID replaced.
func (p *Provider) FetchMatchDetail(ctx context.Context, platform provider.Platform, matchID string) (*provider.MatchDetail, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if d, ok := p.details[matchID]; ok {
		detail := *d
		return &detail, nil
	}
	if p.fallback != nil {
		detail := *p.fallback
		detail.MatchID = matchID
		return &detail, nil
	}
	return nil, notFound("match_detail", fmt.Sprintf("no recorded match %s", matchID))
}

func (p *Provider) wait(ctx context.Context) error {
	if p.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func notFound(op, msg string) error {
	return &provider.Error{Op: op, Class: provider.ErrorClassNotFound, Message: msg}
}
