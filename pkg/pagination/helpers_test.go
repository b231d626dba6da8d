package pagination

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/wzstats-client/pkg/retry"
)

// testError implements retry.Retryable.
type testError struct {
	msg       string
	transient bool
}

func (e *testError) Error() string   { return e.msg }
func (e *testError) Retryable() bool { return e.transient }

var (
	errTransient = &testError{msg: "temporarily unavailable", transient: true}
	errFatal     = &testError{msg: "not found", transient: false}
)

func fastPolicy() *retry.Policy {
	return retry.New("test", retry.Config{
		MaxAttempts:       4,
		MaxElapsed:        5 * time.Second,
		InitialBackoff:    2 * time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2,
	})
}

type item struct {
	ID        int
	Start     time.Time
	Qualifies bool
}

func itemCursor(it item) time.Time { return it.Start }

func qualifies(it item) bool { return it.Qualifies }

// newHistory returns n items, newest first, one minute apart; every
// qualifyEvery-th item qualifies.
func newHistory(n, qualifyEvery int) []item {
	base := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	items := make([]item, n)
	for i := range items {
		items[i] = item{
			ID:        i,
			Start:     base.Add(-time.Duration(i) * time.Minute),
			Qualifies: qualifyEvery > 0 && (i+1)%qualifyEvery == 0,
		}
	}
	return items
}

// pagedSource serves a fixed history in pages older than the cursor.
type pagedSource struct {
	items    []item
	pageSize int
	calls    atomic.Int32

	mu      sync.Mutex
	befores []time.Time
	// failAt maps a 1-based call number to the error it returns
	failAt map[int]error
}

func newPagedSource(items []item, pageSize int) *pagedSource {
	return &pagedSource{items: items, pageSize: pageSize, failAt: map[int]error{}}
}

func (s *pagedSource) fetch(ctx context.Context, before time.Time) ([]item, error) {
	n := int(s.calls.Add(1))

	s.mu.Lock()
	s.befores = append(s.befores, before)
	err := s.failAt[n]
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out := make([]item, 0, s.pageSize)
	for _, it := range s.items {
		if before.IsZero() || it.Start.Before(before) {
			out = append(out, it)
			if len(out) == s.pageSize {
				break
			}
		}
	}
	return out, nil
}

func (s *pagedSource) cursors() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.befores...)
}
