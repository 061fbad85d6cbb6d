package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
)

// DefaultSQLiteDSN is used when no connection string is configured
const DefaultSQLiteDSN = "scraper.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS reels (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	shortcode            TEXT NOT NULL UNIQUE,
	account_id           INTEGER NOT NULL REFERENCES accounts(id),
	url                  TEXT NOT NULL DEFAULT '',
	likes                INTEGER NOT NULL DEFAULT 0,
	comments             INTEGER NOT NULL DEFAULT 0,
	views                INTEGER NOT NULL DEFAULT 0,
	posted_time          INTEGER NOT NULL DEFAULT 0,
	video_duration       REAL NOT NULL DEFAULT 0,
	numbers_of_qualities INTEGER NOT NULL DEFAULT 1,
	width                INTEGER NOT NULL DEFAULT 0,
	height               INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_reels_account_id ON reels(account_id);

CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	started_at      TIMESTAMP NOT NULL,
	finished_at     TIMESTAMP,
	accounts_total  INTEGER NOT NULL DEFAULT 0,
	accounts_failed INTEGER NOT NULL DEFAULT 0,
	reels_new       INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL
);
`

// sqliteDSN normalizes a connection string to a file: URI carrying the
// WAL, busy-timeout, and foreign-key pragmas. Pragmas the caller set
// explicitly are left alone; only missing ones are appended.
func sqliteDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	for _, pragma := range []string{"_journal_mode=WAL", "_busy_timeout=5000", "_foreign_keys=on"} {
		key := pragma[:strings.IndexByte(pragma, '=')+1]
		if strings.Contains(dsn, key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + pragma
		} else {
			dsn += "?" + pragma
		}
	}
	return dsn
}

// SQLiteStore is the embedded default Store. A single connection
// serializes writers; readers share it through database/sql.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens (and creates if needed) a SQLite database at dsn
func NewSQLiteStore(ctx context.Context, dsn string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}
	dsn = sqliteDSN(dsn)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storageErr("open sqlite database", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent workers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storageErr("ping sqlite database", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, storageErr("apply sqlite schema", err)
	}

	log.DebugWithFields("sqlite store ready", map[string]interface{}{
		"dsn": dsn,
	})

	return &SQLiteStore{db: db, logger: log}, nil
}

// UpsertAccountReels persists one account batch in a single transaction
func (s *SQLiteStore) UpsertAccountReels(ctx context.Context, username string, reels []models.Reel) (int, error) {
	reels = validReels(s.logger, username, reels)
	if len(reels) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	accountID, err := s.getOrCreateAccount(ctx, tx, username)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, r := range reels {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO reels (
				shortcode, account_id, url, likes, comments, views,
				posted_time, video_duration, numbers_of_qualities, width, height
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(shortcode) DO NOTHING`,
			r.Shortcode, accountID, r.URL, r.Likes, r.Comments, r.Views,
			r.PostedTime, r.VideoDuration, r.NumbersOfQualities, r.Width, r.Height,
		)
		if err != nil {
			return 0, storageErr(fmt.Sprintf("insert reel %s", r.Shortcode), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, storageErr("rows affected", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit account batch", err)
	}

	s.logger.DebugWithFields("persisted account batch", map[string]interface{}{
		"username": username,
		"batch":    len(reels),
		"inserted": inserted,
	})

	return inserted, nil
}

func (s *SQLiteStore) getOrCreateAccount(ctx context.Context, tx *sql.Tx, username string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (username) VALUES (?) ON CONFLICT(username) DO NOTHING`,
		username,
	); err != nil {
		return 0, storageErr("create account", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE username = ?`, username,
	).Scan(&id); err != nil {
		return 0, storageErr("look up account", err)
	}
	return id, nil
}

// GetReels returns the account's persisted reels in insertion order
func (s *SQLiteStore) GetReels(ctx context.Context, username string) ([]models.Reel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.shortcode, r.url, a.username, r.likes, r.comments, r.views,
		       r.posted_time, r.video_duration, r.numbers_of_qualities, r.width, r.height
		FROM reels r
		JOIN accounts a ON a.id = r.account_id
		WHERE a.username = ?
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
func (s *SQLiteStore) Exists(ctx context.Context, shortcode string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM reels WHERE shortcode = ?`, shortcode,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr("check shortcode", err)
	}
	return true, nil
}

// InsertRun records the start of a scrape run
func (s *SQLiteStore) InsertRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, accounts_total, status)
		VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt, run.AccountsTotal, run.Status,
	)
	if err != nil {
		return storageErr("insert run", err)
	}
	return nil
}

// FinishRun records a run's final counters and status
func (s *SQLiteStore) FinishRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, accounts_total = ?, accounts_failed = ?, reels_new = ?, status = ?
		WHERE id = ?`,
		run.FinishedAt, run.AccountsTotal, run.AccountsFailed, run.ReelsNew, run.Status,
		run.ID.String(),
	)
	if err != nil {
		return storageErr("finish run", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
