package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/wzstats-client/internal/testutil"
	"github.com/Sternrassler/wzstats-client/pkg/provider"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	history := testutil.MatchHistory("player", 45)

	writeJSON(t, filepath.Join(dir, ProfileFile), testutil.ProfileFor("battle", "player"))
	writeJSON(t, filepath.Join(dir, HistoryFile), history)
	writeJSON(t, filepath.Join(dir, MatchFile), testutil.MatchDetailFor("template", 4))
	writeJSON(t, filepath.Join(dir, MatchesDir, "777.json"), testutil.MatchDetailFor("", 150))

	p, err := Load(Config{Dir: dir, PageSize: 20}, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	ctx := context.Background()

	profile, err := p.FetchProfile(ctx, provider.PlatformBattleNet, "player")
	require.NoError(t, err)
	assert.Equal(t, "player", profile.Username)

	head, err := p.FetchMatchPage(ctx, provider.PlatformBattleNet, "player", time.Time{})
	require.NoError(t, err)
	assert.Len(t, head.Matches, 20)
	assert.Equal(t, history[0].MatchID, head.Matches[0].MatchID)

	recorded, err := p.FetchMatchDetail(ctx, provider.PlatformBattleNet, "777")
	require.NoError(t, err)
	assert.Equal(t, "777", recorded.MatchID)
	assert.Len(t, recorded.AllPlayers, 150)

	fallback, err := p.FetchMatchDetail(ctx, provider.PlatformBattleNet, "123")
	require.NoError(t, err)
	assert.Equal(t, "123", fallback.MatchID)
	assert.Len(t, fallback.AllPlayers, 4)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(Config{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, HistoryFile), []byte("{not json"), 0o644))
	_, err = Load(Config{Dir: dir})
	assert.Error(t, err)
}

func TestLoad_EmptyDirServesNotFound(t *testing.T) {
	p, err := Load(Config{Dir: t.TempDir()}, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = p.FetchProfile(ctx, provider.PlatformPSN, "x")
	assert.ErrorIs(t, err, provider.ErrNotFound)

	_, err = p.FetchMatchDetail(ctx, provider.PlatformPSN, "1")
	assert.ErrorIs(t, err, provider.ErrNotFound)

	page, err := p.FetchMatchPage(ctx, provider.PlatformPSN, "x", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, page.Matches)
}

func TestFetchMatchPage_WalksBackwards(t *testing.T) {
	history := testutil.MatchHistory("player", 45)
	p := New(nil, history, nil, WithPageSize(20), WithLogger(zerolog.Nop()))
	ctx := context.Background()

	var (
		seen   []provider.MatchSummary
		before time.Time
	)
	for i := 0; i < 5; i++ {
		page, err := p.FetchMatchPage(ctx, provider.PlatformBattleNet, "player", before)
		require.NoError(t, err)
		if len(page.Matches) == 0 {
			break
		}
		seen = append(seen, page.Matches...)
		before = page.Cursor()
	}

	require.Len(t, seen, 45)
	for i := range seen {
		assert.Equal(t, history[i].MatchID, seen[i].MatchID)
	}
}

func TestNew_SortsNewestFirst(t *testing.T) {
	history := testutil.MatchHistory("player", 5)
	reversed := []provider.MatchSummary{history[4], history[2], history[0], history[3], history[1]}

	p := New(nil, reversed, nil, WithLogger(zerolog.Nop()))
	page, err := p.FetchMatchPage(context.Background(), provider.PlatformBattleNet, "player", time.Time{})
	require.NoError(t, err)

	for i := range history {
		assert.Equal(t, history[i].MatchID, page.Matches[i].MatchID)
	}
}

func TestLatencyHonoursContext(t *testing.T) {
	p := New(testutil.ProfileFor("psn", "p"), nil, nil, WithLatency(time.Hour), WithLogger(zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.FetchProfile(ctx, provider.PlatformPSN, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
