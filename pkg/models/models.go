package models

import (
	"time"

	"github.com/google/uuid"
)

// Reel is a normalized short-video record scraped from an account.
// Shortcode is the natural key; records without one are dropped before
// they reach storage.
type Reel struct {
	Shortcode          string  `json:"shortcode"`
	URL                string  `json:"url"`
	Username           string  `json:"username"`
	Likes              int     `json:"likes"`
	Comments           int     `json:"comments"`
	Views              int     `json:"views"`
	PostedTime         int64   `json:"posted_time"`
	VideoDuration      float64 `json:"video_duration"`
	NumbersOfQualities int     `json:"numbers_of_qualities"`
	Width              int     `json:"width"`
	Height             int     `json:"height"`
}

// FetchStatus classifies the outcome of fetching one account's reels.
type FetchStatus string

const (
	StatusOK      FetchStatus = "ok"
	StatusPartial FetchStatus = "partial"
	StatusFailed  FetchStatus = "failed"
)

// AccountResult is the per-account outcome of a scrape run. Reels holds
// everything fetched for the account, in extraction order, even when the
// status is partial or failed. NewReels counts rows actually inserted by
// the store (duplicates skipped).
type AccountResult struct {
	Username string      `json:"username"`
	Status   FetchStatus `json:"status"`
	Reels    []Reel      `json:"reels,omitempty"`
	NewReels int         `json:"new_reels"`
	Err      error       `json:"-"`
}

// ErrorReason renders the attached error for the run report.
func (r AccountResult) ErrorReason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ScrapeRun records one orchestrator invocation for bookkeeping.
type ScrapeRun struct {
	ID             uuid.UUID  `json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	AccountsTotal  int        `json:"accounts_total"`
	AccountsFailed int        `json:"accounts_failed"`
	ReelsNew       int        `json:"reels_new"`
	Status         string     `json:"status"`
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCanceled  = "canceled"
)
