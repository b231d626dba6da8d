package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" PSN ")
	require.NoError(t, err)
	assert.Equal(t, PlatformPSN, p)

	_, err = ParsePlatform("steam")
	assert.Error(t, err)
}

func TestMatchPageCursor(t *testing.T) {
	var empty *MatchPage
	assert.True(t, empty.Cursor().IsZero())
	assert.True(t, (&MatchPage{}).Cursor().IsZero())

	page := &MatchPage{Matches: []MatchSummary{
		{MatchID: "3", UTCStartSeconds: 3000},
		{MatchID: "2", UTCStartSeconds: 2000},
		{MatchID: "1", UTCStartSeconds: 1000},
	}}
	assert.Equal(t, time.Unix(1000, 0).UTC(), page.Cursor())
}

func TestModePredicate(t *testing.T) {
	br := MatchSummary{Mode: "br_brquads"}
	resu := MatchSummary{Mode: "br_rebirth_rbrthquad"}
	plunder := MatchSummary{Mode: "br_dmz_plnbld"}

	tests := []struct {
		selector string
		matches  []bool
	}{
		{"br", []bool{true, false, false}},
		{"resu", []bool{false, true, false}},
		{"others", []bool{false, false, true}},
		{"all", []bool{true, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			pred, err := ModePredicate(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.matches, []bool{pred(br), pred(resu), pred(plunder)})
		})
	}

	_, err := ModePredicate("ranked")
	assert.Error(t, err)
}
