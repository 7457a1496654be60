package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/event"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
	"github.com/denizkarakus123/EventHive-backend/app/mail"
)

// ProcessMailDropTask drains the mail drop directory, running each message
// through the same extraction pipeline as timeline posts but under the mail
// dedup policy. A message failing mid-pipeline stays in the drop for the
// next sweep; everything else is marked processed.
type ProcessMailDropTask struct {
	Task
	drop       *mail.Drop
	extractor  extract.Extractor
	normalizer *event.Normalizer
	sink       *event.Sink
}

func NewProcessMailDropTask(drop *mail.Drop, extractor extract.Extractor,
	normalizer *event.Normalizer, sink *event.Sink) *ProcessMailDropTask {
	return &ProcessMailDropTask{
		Task:       NewTask(TaskTypeProcessMailDrop, "mail"),
		drop:       drop,
		extractor:  extractor,
		normalizer: normalizer,
		sink:       sink,
	}
}

func (t *ProcessMailDropTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	messages, err := t.drop.Scan()
	if err != nil {
		return fmt.Errorf("failed to scan mail drop: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	persistedCount := 0
	duplicateCount := 0
	skippedCount := 0

	for _, message := range messages {
		stored, err := t.processMessage(ctx, message)
		switch {
		case err == nil && stored != nil:
			persistedCount++
		case err == nil:
			skippedCount++
		case errors.Is(err, event.ErrDuplicateEvent):
			duplicateCount++
		default:
			slog.Warn("Leaving mail body for next sweep", "file", message.File, "error", err)
			continue
		}

		if err := t.drop.MarkProcessed(message.File); err != nil {
			slog.Warn("Failed to mark mail body processed", "file", message.File, "error", err)
		}
	}

	slog.Info("Task completed",
		"type", "ProcessMailDrop",
		"duration", t.GetDuration(),
		"messages", len(messages),
		"events", persistedCount,
		"duplicates", duplicateCount,
		"skipped", skippedCount)

	return nil
}

func (t *ProcessMailDropTask) processMessage(ctx context.Context, message mail.Message) (*database.Event, error) {
	if t.extractor == nil {
		return nil, fmt.Errorf("no extraction provider configured")
	}

	candidate, err := t.extractor.Extract(ctx, message.Body, "")
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	if candidate == nil || !candidate.IsEvent() {
		return nil, nil
	}

	start, end, err := t.normalizer.Normalize(candidate)
	if err != nil {
		return nil, fmt.Errorf("normalization failed: %w", err)
	}

	stored, err := t.sink.Persist(candidate, start, end, event.ChannelMail)
	if err != nil {
		return nil, err
	}
	return stored, nil
}
