// Package storage persists scraped reels behind a deduplicating
// relational schema. Uniqueness lives in the database constraints, not
// in application pre-checks, so concurrent writers and repeated runs
// converge on a single row per shortcode.
package storage

import (
	"context"
	"fmt"
	"strings"

	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
)

// Store is the deduplicating persistence layer. All methods are safe
// for concurrent use by multiple workers.
type Store interface {
	// UpsertAccountReels persists one account's batch atomically,
	// creating the account row if needed. Reels whose shortcode already
	// exists are skipped, never updated. Returns the number of rows
	// actually inserted.
	UpsertAccountReels(ctx context.Context, username string, reels []models.Reel) (int, error)

	// GetReels returns the persisted reels owned by the account, in
	// insertion order.
	GetReels(ctx context.Context, username string) ([]models.Reel, error)

	// Exists reports whether a reel with the shortcode is persisted
	Exists(ctx context.Context, shortcode string) (bool, error)

	// InsertRun records the start of a scrape run
	InsertRun(ctx context.Context, run *models.ScrapeRun) error

	// FinishRun records a run's final counters and status
	FinishRun(ctx context.Context, run *models.ScrapeRun) error

	Close() error
}

// Open creates a Store for the given driver. Supported drivers are
// "sqlite" and "postgres".
func Open(ctx context.Context, driver, dsn string, log logger.Logger) (Store, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3", "":
		return NewSQLiteStore(ctx, dsn, log)
	case "postgres", "postgresql", "pgx":
		return NewPostgresStore(ctx, dsn, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// validReels drops records that cannot be deduplicated. A reel without
// a shortcode has no natural key, so it never reaches the database.
func validReels(log logger.Logger, username string, reels []models.Reel) []models.Reel {
	kept := make([]models.Reel, 0, len(reels))
	skipped := 0
	for _, r := range reels {
		if r.Shortcode == "" {
			skipped++
			continue
		}
		kept = append(kept, r)
	}
	if skipped > 0 && log != nil {
		log.WarnWithFields("dropped reels without shortcode", map[string]interface{}{
			"username": username,
			"count":    skipped,
		})
	}
	return kept
}

func storageErr(msg string, err error) error {
	return errs.Wrap(errs.ErrorTypeStorage, msg, err)
}
