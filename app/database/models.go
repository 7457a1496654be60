package database

import (
	"time"
)

type Account struct {
	Name           string // Instagram username, primary key
	UserID         string // Opaque remote id, resolved lazily on first fetch
	Channel        string // Originating source type: "social" or "mail"
	LastIngestedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Post struct {
	ID               int64
	AccountName      string
	Shortcode        string // Unique per account, never mutated after insertion
	ImageURL         string
	Caption          string
	ImageDescription string
	TakenAt          time.Time
	CreatedAt        time.Time
}

type Organization struct {
	ID          int64
	Name        string // Unique
	Location    string
	Faculty     string
	Description string
	Instagram   string
	Facebook    string
	Website     string
	Email       string
	Image       string
}

type Event struct {
	ID            int64
	Name          string
	HostID        *int64
	StartDate     time.Time
	EndDate       time.Time
	Description   string
	Category      string
	Cost          *int64
	Food          *bool
	Location      string
	Link          string
	SourceChannel string
	CreatedAt     time.Time
}
