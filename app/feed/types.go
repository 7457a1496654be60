package feed

import (
	"time"
)

// Feed processing types

// Post is a single timeline entry fetched from the remote feed.
type Post struct {
	Shortcode        string // Globally unique identity within an account
	ImageURL         string
	Caption          string
	ImageDescription string
	TakenAt          time.Time
}

// Profile is the resolved identity of a tracked account.
type Profile struct {
	UserID    string
	IsPrivate bool
}

// PageInfo is the pagination descriptor returned with each timeline page.
// An empty EndCursor terminates the walk.
type PageInfo struct {
	HasNextPage bool
	EndCursor   string
}

// FetchResult carries one complete fetch: the resolved remote id and every
// qualifying post across all pages, in page order.
type FetchResult struct {
	UserID string
	Posts  []Post
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Username string         `yaml:"username"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled      bool   `yaml:"enabled"`
	Channel      string `yaml:"channel"`       // "social" or "mail"; selects duplicate-matching policy
	PollInterval int    `yaml:"poll_interval"` // seconds
	StartFrom    string `yaml:"start_from"`    // YYYY-MM-DD HH:MM:SS, UTC; initial boundary before first watermark
	Timeout      int    `yaml:"timeout"`       // seconds
}
