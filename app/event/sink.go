package event

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
)

// ErrDuplicateEvent is the expected no-op outcome when a candidate matches
// an already persisted event. It is not a failure.
var ErrDuplicateEvent = errors.New("duplicate event")

// Sink guards a derived record against existing persisted events before
// writing it. Insertion is its only mutation; it never updates a prior
// event.
type Sink struct {
	eventRepo database.EventRepository
}

func NewSink(eventRepo database.EventRepository) *Sink {
	return &Sink{eventRepo: eventRepo}
}

// Persist checks the candidate against events sharing its start instant
// under the channel's matching policy, then inserts a new event, resolving
// or creating the host organization by exact name.
func (s *Sink) Persist(candidate *extract.Candidate, start, end time.Time, channel string) (*database.Event, error) {
	policy := PolicyForChannel(channel)

	existing, err := s.eventRepo.GetEventsByStart(start)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate events: %w", err)
	}

	for _, ev := range existing {
		if policy.Matches(ev, candidate.EventName, candidate.LocationOrLink()) {
			slog.Debug("Duplicate event found, skipping", "name", candidate.EventName, "start", start, "policy", string(policy))
			return nil, fmt.Errorf("event %q at %s: %w", candidate.EventName, start.Format(time.RFC3339), ErrDuplicateEvent)
		}
	}

	newEvent := database.NewEvent{
		Name:          candidate.EventName,
		HostName:      candidate.Host,
		StartDate:     start,
		EndDate:       end,
		Description:   candidate.Description,
		Category:      candidate.Category,
		SourceChannel: channel,
	}

	// Location vs link is decided by the candidate's in-person flag
	if candidate.InPerson() {
		newEvent.Location = candidate.Location
	} else {
		newEvent.Link = candidate.Link
	}

	event, err := s.eventRepo.InsertEvent(newEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to persist event: %w", err)
	}

	return event, nil
}
