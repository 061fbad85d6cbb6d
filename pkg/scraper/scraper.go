// Package scraper wires the client, extractor, fetcher pool, and store
// into the run-level operations the CLI calls.
package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reelscraper/internal/orchestrator"
	"reelscraper/pkg/config"
	"reelscraper/pkg/extractor"
	"reelscraper/pkg/fetcher"
	"reelscraper/pkg/instagram"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/ratelimit"
	"reelscraper/pkg/storage"
)

// Scraper orchestrates scrape runs against a shared store
type Scraper struct {
	cfg     *config.Config
	store   storage.Store
	client  *instagram.Client
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// New creates a Scraper. The store is injected so callers own its
// lifecycle and tests can supply isolated instances.
func New(cfg *config.Config, store storage.Store, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter = ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)
	}

	return &Scraper{
		cfg:     cfg,
		store:   store,
		client:  instagram.NewClient(cfg.Request.Timeout, cfg.Request.UserAgent, log),
		limiter: limiter,
		logger:  log,
	}
}

// Client returns the underlying API client
func (s *Scraper) Client() *instagram.Client {
	return s.client
}

// ScrapeAccounts processes the accounts concurrently and returns one
// result per input position, in input order. Individual account
// failures are reported in the results, never as the returned error.
func (s *Scraper) ScrapeAccounts(ctx context.Context, usernames []string) ([]models.AccountResult, error) {
	run := &models.ScrapeRun{
		ID:            uuid.New(),
		StartedAt:     time.Now().UTC(),
		AccountsTotal: len(usernames),
		Status:        models.RunStatusRunning,
	}
	if err := s.store.InsertRun(ctx, run); err != nil {
		// Bookkeeping only; the scrape itself still proceeds.
		s.logger.WarnWithFields("recording run start failed", map[string]interface{}{
			"run_id": run.ID.String(),
			"error":  err.Error(),
		})
	}

	s.logger.InfoWithFields("scrape run started", map[string]interface{}{
		"run_id":      run.ID.String(),
		"accounts":    len(usernames),
		"concurrency": s.cfg.Scrape.Concurrency,
		"delay_ms":    s.cfg.Scrape.Delay.Milliseconds(),
	})

	pool := orchestrator.NewPool(s.cfg.Scrape.Concurrency, s.newFetcher, s.store, s.logger)
	results := pool.Run(ctx, usernames)

	for _, r := range results {
		logger.LogAccountOutcome(s.logger, r.Username, string(r.Status), len(r.Reels), r.Err)
		if r.Status == models.StatusFailed {
			run.AccountsFailed++
		}
		run.ReelsNew += r.NewReels
	}

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted
	if ctx.Err() != nil {
		run.Status = models.RunStatusCanceled
	}

	// Finish bookkeeping even when the run context is already canceled.
	if err := s.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.WarnWithFields("recording run finish failed", map[string]interface{}{
			"run_id": run.ID.String(),
			"error":  err.Error(),
		})
	}

	s.logger.InfoWithFields("scrape run finished", map[string]interface{}{
		"run_id":          run.ID.String(),
		"status":          run.Status,
		"accounts_total":  run.AccountsTotal,
		"accounts_failed": run.AccountsFailed,
		"reels_new":       run.ReelsNew,
		"duration":        now.Sub(run.StartedAt).String(),
	})

	return results, nil
}

// ScrapeAccount is a single-account convenience over ScrapeAccounts
func (s *Scraper) ScrapeAccount(ctx context.Context, username string) (models.AccountResult, error) {
	results, err := s.ScrapeAccounts(ctx, []string{username})
	if err != nil {
		return models.AccountResult{}, err
	}
	return results[0], nil
}

// newFetcher builds one worker's fetch pipeline. Each worker gets its
// own pacer; the extractor and client are shared.
func (s *Scraper) newFetcher() orchestrator.AccountFetcher {
	ext := extractor.New(s.client, s.logger)
	pacer := ratelimit.NewPacer(s.cfg.Scrape.Delay)
	return fetcher.New(ext, pacer, s.limiter, s.cfg.Scrape.MaxRetries, s.logger)
}
