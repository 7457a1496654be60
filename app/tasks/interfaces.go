package tasks

import (
	"context"
	"time"

	"github.com/denizkarakus123/EventHive-backend/app/feed"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the HTTP API to manage background
// ingestion processing.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Fetcher abstracts the timeline fetch so poll tasks can be tested without
// the scraping proxy.
type Fetcher interface {
	Fetch(ctx context.Context, username string, watermark time.Time) (*feed.FetchResult, error)
}
