// Package orchestrator fans a list of accounts out over a bounded
// worker pool and collects per-account results in input order.
package orchestrator

import (
	"context"
	"sync"

	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
)

// AccountFetcher fetches all reels for one account
type AccountFetcher interface {
	Fetch(ctx context.Context, username string) ([]models.Reel, models.FetchStatus, error)
}

// ReelSink receives each account's batch as soon as it is fetched
type ReelSink interface {
	UpsertAccountReels(ctx context.Context, username string, reels []models.Reel) (int, error)
}

// job pairs an account with its input position so workers can report
// into the right result slot regardless of completion order
type job struct {
	index    int
	username string
}

// Pool is a bounded worker pool draining an account list. Each worker
// gets its own AccountFetcher from the factory, so per-worker pacing
// state is never shared.
type Pool struct {
	workers    int
	newFetcher func() AccountFetcher
	sink       ReelSink
	logger     logger.Logger
}

// NewPool creates a Pool with the given concurrency
func NewPool(workers int, newFetcher func() AccountFetcher, sink ReelSink, log logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{
		workers:    workers,
		newFetcher: newFetcher,
		sink:       sink,
		logger:     log,
	}
}

// Run processes every account and returns one result per input
// position, in input order. One account's failure never aborts the
// rest. Canceling ctx stops dispatching further accounts; accounts
// already picked up by a worker are fetched and persisted to
// completion, and the undispatched remainder is reported failed with
// the context's error.
func (p *Pool) Run(ctx context.Context, usernames []string) []models.AccountResult {
	results := make([]models.AccountResult, len(usernames))

	// Unbuffered so an account is only ever handed to a live worker;
	// anything still queued at cancellation is reported, not lost in a
	// channel buffer.
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id, jobs, results)
		}(i)
	}

	p.logger.InfoWithFields("scrape pool started", map[string]interface{}{
		"workers":  p.workers,
		"accounts": len(usernames),
	})

dispatch:
	for i, username := range usernames {
		select {
		case jobs <- job{index: i, username: username}:
		case <-ctx.Done():
			p.logger.WarnWithFields("dispatch stopped", map[string]interface{}{
				"dispatched": i,
				"remaining":  len(usernames) - i,
				"reason":     ctx.Err().Error(),
			})
			for j := i; j < len(usernames); j++ {
				results[j] = models.AccountResult{
					Username: usernames[j],
					Status:   models.StatusFailed,
					Err:      ctx.Err(),
				}
			}
			break dispatch
		}
	}
	close(jobs)

	wg.Wait()
	return results
}

func (p *Pool) worker(ctx context.Context, id int, jobs <-chan job, results []models.AccountResult) {
	fetcher := p.newFetcher()

	// Accepted accounts run to completion even after cancellation, so
	// nothing already fetched is lost mid-commit.
	workCtx := context.WithoutCancel(ctx)

	for j := range jobs {
		results[j.index] = p.process(workCtx, id, fetcher, j)
	}
}

func (p *Pool) process(ctx context.Context, workerID int, fetcher AccountFetcher, j job) models.AccountResult {
	result := models.AccountResult{Username: j.username}

	reels, status, err := fetcher.Fetch(ctx, j.username)
	result.Reels = reels
	result.Status = status
	result.Err = err

	if len(reels) > 0 {
		inserted, serr := p.sink.UpsertAccountReels(ctx, j.username, reels)
		if serr != nil {
			p.logger.ErrorWithFields("persisting account batch failed", map[string]interface{}{
				"username":  j.username,
				"worker_id": workerID,
				"error":     serr.Error(),
			})
			result.Status = models.StatusFailed
			result.Err = serr
			return result
		}
		result.NewReels = inserted
	}

	p.logger.DebugWithFields("account processed", map[string]interface{}{
		"username":  j.username,
		"worker_id": workerID,
		"status":    string(result.Status),
		"fetched":   len(reels),
		"new":       result.NewReels,
	})

	return result
}
