package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/denizkarakus123/EventHive-backend/app/cfg"
	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/event"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
	"github.com/denizkarakus123/EventHive-backend/app/feed"
)

const boundaryLayout = "2006-01-02 15:04:05"

// PollAccountTask runs one poll cycle for a tracked account:
// fetch -> merge -> extract -> normalize -> dedup/persist -> advance
// watermark. A fetch failure aborts the cycle and leaves the watermark
// untouched; failures while processing an individual post drop that post
// only.
type PollAccountTask struct {
	Task
	AccountConfig *feed.Config
	fetcher       Fetcher
	extractor     extract.Extractor
	normalizer    *event.Normalizer
	sink          *event.Sink
	accountRepo   database.AccountRepository
	postRepo      database.PostRepository
}

func NewPollAccountTask(accountName string, accountConfig *feed.Config, fetcher Fetcher,
	extractor extract.Extractor, normalizer *event.Normalizer, sink *event.Sink,
	accountRepo database.AccountRepository, postRepo database.PostRepository) *PollAccountTask {
	return &PollAccountTask{
		Task:          NewTask(TaskTypePollAccount, accountName),
		AccountConfig: accountConfig,
		fetcher:       fetcher,
		extractor:     extractor,
		normalizer:    normalizer,
		sink:          sink,
		accountRepo:   accountRepo,
		postRepo:      postRepo,
	}
}

func (t *PollAccountTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.AccountConfig.Settings.Enabled {
		slog.Debug("Account disabled, skipping", "account", t.AccountName)
		return nil
	}

	username := t.AccountConfig.Username

	boundary, err := t.ingestionBoundary(username)
	if err != nil {
		return fmt.Errorf("failed to determine ingestion boundary: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.AccountConfig.Settings.Timeout)*time.Second)
	defer cancel()

	result, err := t.fetcher.Fetch(timeoutCtx, username, boundary)
	if err != nil {
		return fmt.Errorf("failed to fetch timeline: %w", err)
	}

	if result.UserID != "" {
		if err := t.accountRepo.SetUserID(username, result.UserID); err != nil {
			slog.Warn("Failed to store resolved user id", "account", username, "error", err)
		}
	}

	newPosts := make([]database.NewPost, len(result.Posts))
	for i, post := range result.Posts {
		newPosts[i] = database.NewPost{
			Shortcode:        post.Shortcode,
			ImageURL:         post.ImageURL,
			Caption:          post.Caption,
			ImageDescription: post.ImageDescription,
			TakenAt:          post.TakenAt,
		}
	}

	merged, err := t.postRepo.MergePosts(username, newPosts)
	if err != nil {
		return fmt.Errorf("failed to merge posts: %w", err)
	}

	persistedCount := 0
	duplicateCount := 0
	droppedCount := 0

	for _, post := range merged {
		stored, err := t.processPost(ctx, post)
		switch {
		case err == nil && stored != nil:
			persistedCount++
		case errors.Is(err, event.ErrDuplicateEvent):
			duplicateCount++
		case err != nil:
			// A single malformed post never aborts the cycle
			droppedCount++
			slog.Warn("Dropping post", "account", username, "shortcode", post.Shortcode, "error", err)
		}
	}

	if len(result.Posts) > 0 {
		maxTakenAt := result.Posts[0].TakenAt
		for _, post := range result.Posts[1:] {
			if post.TakenAt.After(maxTakenAt) {
				maxTakenAt = post.TakenAt
			}
		}
		if err := t.accountRepo.AdvanceWatermark(username, maxTakenAt); err != nil {
			slog.Error("Failed to advance watermark", "account", username, "error", err)
		}
	}

	slog.Info("Task completed",
		"type", "PollAccount",
		"account", username,
		"duration", t.GetDuration(),
		"fetched", len(result.Posts),
		"new", len(merged),
		"events", persistedCount,
		"duplicates", duplicateCount,
		"dropped", droppedCount)

	return nil
}

// ingestionBoundary returns the stored watermark, or the configured initial
// boundary when no cycle has completed yet.
func (t *PollAccountTask) ingestionBoundary(username string) (time.Time, error) {
	watermark, err := t.accountRepo.GetWatermark(username)
	if err != nil {
		return time.Time{}, err
	}
	if watermark != nil {
		return *watermark, nil
	}

	startFrom := t.AccountConfig.Settings.StartFrom
	if startFrom == "" {
		startFrom = cfg.Get().StartFrom
	}

	boundary, err := time.ParseInLocation(boundaryLayout, startFrom, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start boundary %q: %w", startFrom, err)
	}

	return boundary, nil
}

func (t *PollAccountTask) processPost(ctx context.Context, post database.NewPost) (*database.Event, error) {
	if t.extractor == nil {
		return nil, fmt.Errorf("no extraction provider configured")
	}

	candidate, err := t.extractor.Extract(ctx, post.Caption, post.ImageDescription)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	if candidate == nil || !candidate.IsEvent() {
		slog.Debug("Post is not an event", "account", t.AccountName, "shortcode", post.Shortcode)
		return nil, nil
	}

	start, end, err := t.normalizer.Normalize(candidate)
	if err != nil {
		return nil, fmt.Errorf("normalization failed: %w", err)
	}

	return t.sink.Persist(candidate, start, end, t.AccountConfig.Settings.Channel)
}
