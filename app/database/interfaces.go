package database

import (
	"time"
)

// NewPost is a fetched timeline entry prior to persistence.
type NewPost struct {
	Shortcode        string
	ImageURL         string
	Caption          string
	ImageDescription string
	TakenAt          time.Time
}

// NewEvent is a derived event record ready for insertion.
type NewEvent struct {
	Name          string
	HostName      string
	StartDate     time.Time
	EndDate       time.Time
	Description   string
	Category      string
	Location      string
	Link          string
	SourceChannel string
}

type AccountRepository interface {
	UpsertAccount(name, channel string) error
	SetUserID(name, userID string) error
	GetAccount(name string) (*Account, error)
	GetAccountCount() (int, error)

	GetWatermark(name string) (*time.Time, error)
	AdvanceWatermark(name string, candidateMax time.Time) error
}

type PostRepository interface {
	MergePosts(accountName string, posts []NewPost) ([]NewPost, error)
	GetPosts(accountName string) ([]Post, error)
	GetPostCount() (int, error)
}

type EventRepository interface {
	GetEventsByStart(start time.Time) ([]Event, error)
	InsertEvent(event NewEvent) (*Event, error)
	GetRecentEvents(limit int) ([]Event, error)
	GetEventCount() (int, error)

	GetOrganizationByName(name string) (*Organization, error)
}
