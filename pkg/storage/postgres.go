package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id       BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS reels (
	id                   BIGSERIAL PRIMARY KEY,
	shortcode            TEXT NOT NULL UNIQUE,
	account_id           BIGINT NOT NULL REFERENCES accounts(id),
	url                  TEXT NOT NULL DEFAULT '',
	likes                BIGINT NOT NULL DEFAULT 0,
	comments             BIGINT NOT NULL DEFAULT 0,
	views                BIGINT NOT NULL DEFAULT 0,
	posted_time          BIGINT NOT NULL DEFAULT 0,
	video_duration       DOUBLE PRECISION NOT NULL DEFAULT 0,
	numbers_of_qualities INTEGER NOT NULL DEFAULT 1,
	width                INTEGER NOT NULL DEFAULT 0,
	height               INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_reels_account_id ON reels(account_id);

CREATE TABLE IF NOT EXISTS runs (
	id              UUID PRIMARY KEY,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ,
	accounts_total  INTEGER NOT NULL DEFAULT 0,
	accounts_failed INTEGER NOT NULL DEFAULT 0,
	reels_new       INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL
);
`

// PostgresStore is the Store backed by a pgx connection pool, for
// deployments where several scraper processes share one database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPostgresStore connects to Postgres and applies the schema
func NewPostgresStore(ctx context.Context, dsn string, log logger.Logger) (*PostgresStore, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if dsn == "" {
		return nil, storageErr("postgres dsn is required", nil)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, storageErr("create postgres pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageErr("ping postgres", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, storageErr("apply postgres schema", err)
	}

	log.Debug("postgres store ready")

	return &PostgresStore{pool: pool, logger: log}, nil
}

// UpsertAccountReels persists one account batch in a single transaction
func (s *PostgresStore) UpsertAccountReels(ctx context.Context, username string, reels []models.Reel) (int, error) {
	reels = validReels(s.logger, username, reels)
	if len(reels) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	accountID, err := s.getOrCreateAccount(ctx, tx, username)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, r := range reels {
		tag, err := tx.Exec(ctx, `
			INSERT INTO reels (
				shortcode, account_id, url, likes, comments, views,
				posted_time, video_duration, numbers_of_qualities, width, height
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (shortcode) DO NOTHING`,
			r.Shortcode, accountID, r.URL, r.Likes, r.Comments, r.Views,
			r.PostedTime, r.VideoDuration, r.NumbersOfQualities, r.Width, r.Height,
		)
		if err != nil {
			return 0, storageErr(fmt.Sprintf("insert reel %s", r.Shortcode), err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storageErr("commit account batch", err)
	}

	s.logger.DebugWithFields("persisted account batch", map[string]interface{}{
		"username": username,
		"batch":    len(reels),
		"inserted": inserted,
	})

	return inserted, nil
}

func (s *PostgresStore) getOrCreateAccount(ctx context.Context, tx pgx.Tx, username string) (int64, error) {
	if _, err := tx.Exec(ctx,
		`INSERT INTO accounts (username) VALUES ($1) ON CONFLICT (username) DO NOTHING`,
		username,
	); err != nil {
		return 0, storageErr("create account", err)
	}

	var id int64
	if err := tx.QueryRow(ctx,
		`SELECT id FROM accounts WHERE username = $1`, username,
	).Scan(&id); err != nil {
		return 0, storageErr("look up account", err)
	}
	return id, nil
}

// GetReels returns the account's persisted reels in insertion order
func (s *PostgresStore) GetReels(ctx context.Context, username string) ([]models.Reel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.shortcode, r.url, a.username, r.likes, r.comments, r.views,
		       r.posted_time, r.video_duration, r.numbers_of_qualities, r.width, r.height
		FROM reels r
		JOIN accounts a ON a.id = r.account_id
		WHERE a.username = $1
		ORDER BY r.id`, username)
	if err != nil {
		return nil, storageErr("query reels", err)
	}
	defer rows.Close()

	var reels []models.Reel
	for rows.Next() {
		var r models.Reel
		if err := rows.Scan(
			&r.Shortcode, &r.URL, &r.Username, &r.Likes, &r.Comments, &r.Views,
			&r.PostedTime, &r.VideoDuration, &r.NumbersOfQualities, &r.Width, &r.Height,
		); err != nil {
			return nil, storageErr("scan reel", err)
		}
		reels = append(reels, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate reels", err)
	}
	return reels, nil
}

// Exists reports whether a shortcode is already persisted
func (s *PostgresStore) Exists(ctx context.Context, shortcode string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM reels WHERE shortcode = $1`, shortcode,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("check shortcode", err)
	}
	return true, nil
}

// InsertRun records the start of a scrape run
func (s *PostgresStore) InsertRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (id, started_at, accounts_total, status)
		VALUES ($1, $2, $3, $4)`,
		run.ID.String(), run.StartedAt, run.AccountsTotal, run.Status,
	)
	if err != nil {
		return storageErr("insert run", err)
	}
	return nil
}

// FinishRun records a run's final counters and status
func (s *PostgresStore) FinishRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE runs
		SET finished_at = $1, accounts_total = $2, accounts_failed = $3, reels_new = $4, status = $5
		WHERE id = $6`,
		run.FinishedAt, run.AccountsTotal, run.AccountsFailed, run.ReelsNew, run.Status,
		run.ID.String(),
	)
	if err != nil {
		return storageErr("finish run", err)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
