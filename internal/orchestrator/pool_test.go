package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
)

// fakeFetcher maps usernames to canned outcomes, with optional delays
type fakeFetcher struct {
	outcomes map[string]fetchOutcome
}

type fetchOutcome struct {
	reels  []models.Reel
	status models.FetchStatus
	err    error
	delay  time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, username string) ([]models.Reel, models.FetchStatus, error) {
	o, ok := f.outcomes[username]
	if !ok {
		return nil, models.StatusOK, nil
	}
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	return o.reels, o.status, o.err
}

// memorySink collects batches in memory
type memorySink struct {
	mu      sync.Mutex
	batches map[string][]models.Reel
	err     error
}

func newMemorySink() *memorySink {
	return &memorySink{batches: make(map[string][]models.Reel)}
}

func (m *memorySink) UpsertAccountReels(ctx context.Context, username string, reels []models.Reel) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.batches[username] = append(m.batches[username], reels...)
	return len(reels), nil
}

func reel(shortcode string) models.Reel {
	return models.Reel{Shortcode: shortcode}
}

func newPool(workers int, outcomes map[string]fetchOutcome, sink ReelSink) *Pool {
	return NewPool(workers, func() AccountFetcher {
		return &fakeFetcher{outcomes: outcomes}
	}, sink, logger.NewNopLogger())
}

func TestRun_PreservesInputOrder(t *testing.T) {
	// Later inputs finish first; slots must still come back in input order.
	outcomes := map[string]fetchOutcome{
		"a": {reels: []models.Reel{reel("a1")}, status: models.StatusOK, delay: 60 * time.Millisecond},
		"b": {reels: []models.Reel{reel("b1")}, status: models.StatusOK, delay: 30 * time.Millisecond},
		"c": {reels: []models.Reel{reel("c1")}, status: models.StatusOK},
	}

	results := newPool(3, outcomes, newMemorySink()).Run(context.Background(), []string{"a", "b", "c"})

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Username)
	assert.Equal(t, "b", results[1].Username)
	assert.Equal(t, "c", results[2].Username)
	for _, r := range results {
		assert.Equal(t, models.StatusOK, r.Status)
		assert.Equal(t, 1, r.NewReels)
	}
}

func TestRun_OneFailureDoesNotAbortBatch(t *testing.T) {
	fetchErr := &errs.Error{Type: errs.ErrorTypePrivate, Message: "account is private"}
	outcomes := map[string]fetchOutcome{
		"private_acct": {status: models.StatusFailed, err: fetchErr},
		"good":         {reels: []models.Reel{reel("g1"), reel("g2")}, status: models.StatusOK},
	}

	sink := newMemorySink()
	results := newPool(2, outcomes, sink).Run(context.Background(), []string{"private_acct", "good"})

	require.Len(t, results, 2)
	assert.Equal(t, models.StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, fetchErr)
	assert.Empty(t, results[0].Reels)

	assert.Equal(t, models.StatusOK, results[1].Status)
	assert.Equal(t, 2, results[1].NewReels)
	assert.Len(t, sink.batches["good"], 2)
	assert.Empty(t, sink.batches["private_acct"])
}

func TestRun_PartialResultsArePersisted(t *testing.T) {
	fetchErr := &errs.Error{Type: errs.ErrorTypeNetwork, Message: "pagination broke"}
	outcomes := map[string]fetchOutcome{
		"flaky": {reels: []models.Reel{reel("f1")}, status: models.StatusPartial, err: fetchErr},
	}

	sink := newMemorySink()
	results := newPool(1, outcomes, sink).Run(context.Background(), []string{"flaky"})

	require.Len(t, results, 1)
	assert.Equal(t, models.StatusPartial, results[0].Status)
	assert.Equal(t, 1, results[0].NewReels)
	assert.Len(t, sink.batches["flaky"], 1)
}

func TestRun_StorageErrorFailsOnlyThatAccount(t *testing.T) {
	outcomes := map[string]fetchOutcome{
		"a": {reels: []models.Reel{reel("a1")}, status: models.StatusOK},
		"b": {reels: []models.Reel{reel("b1")}, status: models.StatusOK},
	}

	storageErr := errs.Wrap(errs.ErrorTypeStorage, "commit failed", nil)
	sink := newMemorySink()

	pool := NewPool(1, func() AccountFetcher {
		return &fakeFetcher{outcomes: outcomes}
	}, sinkFunc(func(ctx context.Context, username string, reels []models.Reel) (int, error) {
		if username == "a" {
			return 0, storageErr
		}
		return sink.UpsertAccountReels(ctx, username, reels)
	}), logger.NewNopLogger())

	results := pool.Run(context.Background(), []string{"a", "b"})

	assert.Equal(t, models.StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, storageErr)
	assert.Equal(t, models.StatusOK, results[1].Status)
	assert.Len(t, sink.batches["b"], 1)
}

type sinkFunc func(ctx context.Context, username string, reels []models.Reel) (int, error)

func (f sinkFunc) UpsertAccountReels(ctx context.Context, username string, reels []models.Reel) (int, error) {
	return f(ctx, username, reels)
}

func TestRun_CancellationStopsDispatchButKeepsInFlight(t *testing.T) {
	outcomes := map[string]fetchOutcome{
		"slow": {reels: []models.Reel{reel("s1")}, status: models.StatusOK, delay: 80 * time.Millisecond},
		"next": {reels: []models.Reel{reel("n1")}, status: models.StatusOK},
		"last": {reels: []models.Reel{reel("l1")}, status: models.StatusOK},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	sink := newMemorySink()
	results := newPool(1, outcomes, sink).Run(ctx, []string{"slow", "next", "last"})

	require.Len(t, results, 3)

	// The in-flight account completed and was persisted.
	assert.Equal(t, models.StatusOK, results[0].Status)
	assert.Len(t, sink.batches["slow"], 1)

	// The undispatched remainder is reported failed with the context error.
	for _, r := range results[1:] {
		assert.Equal(t, models.StatusFailed, r.Status)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Empty(t, sink.batches["next"])
	assert.Empty(t, sink.batches["last"])
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0

	usernames := []string{"a", "b", "c", "d", "e", "f"}

	pool := NewPool(2, func() AccountFetcher {
		return fetcherFunc(func(ctx context.Context, username string) ([]models.Reel, models.FetchStatus, error) {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			return nil, models.StatusOK, nil
		})
	}, newMemorySink(), logger.NewNopLogger())

	results := pool.Run(context.Background(), usernames)

	require.Len(t, results, len(usernames))
	assert.LessOrEqual(t, peak, 2)
	assert.GreaterOrEqual(t, peak, 1)
}

type fetcherFunc func(ctx context.Context, username string) ([]models.Reel, models.FetchStatus, error)

func (f fetcherFunc) Fetch(ctx context.Context, username string) ([]models.Reel, models.FetchStatus, error) {
	return f(ctx, username)
}

func TestNewPool_ClampsWorkers(t *testing.T) {
	pool := newPool(0, nil, newMemorySink())
	results := pool.Run(context.Background(), []string{"a"})
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusOK, results[0].Status)
}
