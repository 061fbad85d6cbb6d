// Package fetcher wraps a single account fetch in pacing and retry
// policy. One Fetcher serves one worker; the pacer it carries spaces
// that worker's upstream requests across accounts and retry attempts
// alike.
package fetcher

import (
	"context"
	"errors"
	"time"

	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/ratelimit"
	"reelscraper/pkg/retry"
)

// Extractor fetches all reels for one username
type Extractor interface {
	Extract(ctx context.Context, username string) ([]models.Reel, error)
}

// Fetcher retries transient extraction failures up to a fixed budget
type Fetcher struct {
	extractor  Extractor
	pacer      *ratelimit.Pacer
	limiter    ratelimit.Limiter
	maxRetries int
	logger     logger.Logger
}

// New creates a Fetcher. The pacer must not be shared with other
// fetchers; limiter is an optional global request ceiling and may be
// nil.
func New(extractor Extractor, pacer *ratelimit.Pacer, limiter ratelimit.Limiter, maxRetries int, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Fetcher{
		extractor:  extractor,
		pacer:      pacer,
		limiter:    limiter,
		maxRetries: maxRetries,
		logger:     log,
	}
}

// partialError marks an attempt that failed mid-pagination with reels
// already in hand. Whatever the cause, the collected reels are kept:
// it deliberately hides the cause from errors.As so the retry
// predicate stops instead of discarding the partial batch.
type partialError struct {
	cause error
}

func (e *partialError) Error() string {
	return "partial extraction: " + e.cause.Error()
}

// Fetch extracts all reels for the account, retrying transient errors.
// A failure that interrupted pagination after some reels were already
// collected is never retried and never discards them: the collected
// reels come back with StatusPartial so the caller can persist what
// was fetched, regardless of whether the interrupting error was
// transient or permanent.
func (f *Fetcher) Fetch(ctx context.Context, username string) ([]models.Reel, models.FetchStatus, error) {
	var reels []models.Reel

	op := func() error {
		if err := f.pacer.Wait(ctx); err != nil {
			return err
		}
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		got, err := f.extractor.Extract(ctx, username)
		if err == nil {
			reels = got
			return nil
		}

		if len(got) > 0 {
			reels = got
			return &partialError{cause: err}
		}

		return err
	}

	cfg := &retry.Config{
		MaxAttempts: f.maxRetries + 1,
		// The pacer already spaces attempts, so no extra backoff here.
		Backoff: &retry.ConstantBackoff{Delay: 0},
		RetryIf: func(err error) bool {
			var pe *partialError
			if errors.As(err, &pe) {
				return false
			}
			return errs.IsRetryableErr(err)
		},
		OnRetry: func(attempt int, err error, _ time.Duration) {
			var apiErr *errs.Error
			if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeRateLimit {
				logger.LogRateLimit(f.logger, username, f.pacer.Interval().Milliseconds())
			}
			f.logger.WarnWithFields("retrying account fetch", map[string]interface{}{
				"username": username,
				"attempt":  attempt,
				"error":    err.Error(),
			})
		},
		Context: ctx,
		Logger:  f.logger,
	}

	err := retry.Do(op, cfg)
	if err == nil {
		return reels, models.StatusOK, nil
	}

	var pe *partialError
	if errors.As(err, &pe) {
		f.logger.WarnWithFields("keeping partial batch", map[string]interface{}{
			"username": username,
			"fetched":  len(reels),
			"error":    pe.cause.Error(),
		})
		return reels, models.StatusPartial, pe.cause
	}

	return nil, models.StatusFailed, err
}
