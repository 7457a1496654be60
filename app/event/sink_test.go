package event

import (
	"errors"
	"testing"
	"time"

	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
)

// fakeEventRepository is an in-memory stand-in for the events table.
type fakeEventRepository struct {
	events        []database.Event
	organizations map[string]int64
	nextID        int64
	insertErr     error
}

func newFakeEventRepository() *fakeEventRepository {
	return &fakeEventRepository{organizations: make(map[string]int64)}
}

func (r *fakeEventRepository) GetEventsByStart(start time.Time) ([]database.Event, error) {
	var matched []database.Event
	for _, ev := range r.events {
		if ev.StartDate.Equal(start) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

func (r *fakeEventRepository) InsertEvent(event database.NewEvent) (*database.Event, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}

	var hostID *int64
	if event.HostName != "" {
		id, ok := r.organizations[event.HostName]
		if !ok {
			r.nextID++
			id = r.nextID
			r.organizations[event.HostName] = id
		}
		hostID = &id
	}

	r.nextID++
	stored := database.Event{
		ID:            r.nextID,
		Name:          event.Name,
		HostID:        hostID,
		StartDate:     event.StartDate,
		EndDate:       event.EndDate,
		Description:   event.Description,
		Category:      event.Category,
		Location:      event.Location,
		Link:          event.Link,
		SourceChannel: event.SourceChannel,
	}
	r.events = append(r.events, stored)
	return &stored, nil
}

func (r *fakeEventRepository) GetRecentEvents(limit int) ([]database.Event, error) {
	return r.events, nil
}

func (r *fakeEventRepository) GetEventCount() (int, error) {
	return len(r.events), nil
}

func (r *fakeEventRepository) GetOrganizationByName(name string) (*database.Organization, error) {
	id, ok := r.organizations[name]
	if !ok {
		return nil, nil
	}
	return &database.Organization{ID: id, Name: name}, nil
}

func inPersonCandidate() *extract.Candidate {
	return &extract.Candidate{
		IsAnEvent:  "Yes",
		IsInPerson: "Yes",
		Location:   "Gerts Bar",
		Host:       "HackStreet Boys",
		Day:        "2024-11-20",
		EventName:  "Trivia Night",
		Category:   "Social",
	}
}

func TestSinkPersistsNewEvent(t *testing.T) {
	repo := newFakeEventRepository()
	sink := NewSink(repo)

	start := time.Date(2024, 11, 20, 19, 0, 0, 0, time.UTC)
	end := time.Date(2024, 11, 20, 21, 0, 0, 0, time.UTC)

	stored, err := sink.Persist(inPersonCandidate(), start, end, ChannelSocial)
	if err != nil {
		t.Fatal(err)
	}

	if stored.Name != "Trivia Night" {
		t.Errorf("Expected event name 'Trivia Night', got '%s'", stored.Name)
	}
	if stored.Location != "Gerts Bar" {
		t.Errorf("Expected location for in-person event, got '%s'", stored.Location)
	}
	if stored.Link != "" {
		t.Errorf("Expected empty link for in-person event, got '%s'", stored.Link)
	}
	if stored.HostID == nil {
		t.Error("Expected host organization to be resolved")
	}
	if stored.SourceChannel != ChannelSocial {
		t.Errorf("Expected source channel 'social', got '%s'", stored.SourceChannel)
	}
}

func TestSinkSkipsExactDuplicate(t *testing.T) {
	repo := newFakeEventRepository()
	sink := NewSink(repo)

	start := time.Date(2024, 11, 20, 19, 0, 0, 0, time.UTC)
	end := time.Date(2024, 11, 20, 21, 0, 0, 0, time.UTC)

	if _, err := sink.Persist(inPersonCandidate(), start, end, ChannelSocial); err != nil {
		t.Fatal(err)
	}

	// Persisting the same (name, location, start) triple again yields
	// exactly one stored event and one duplicate skip
	_, err := sink.Persist(inPersonCandidate(), start, end, ChannelSocial)
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("Expected ErrDuplicateEvent, got %v", err)
	}

	count, _ := repo.GetEventCount()
	if count != 1 {
		t.Errorf("Expected exactly 1 stored event, got %d", count)
	}
}

func TestSinkExactPolicyAllowsDifferentStart(t *testing.T) {
	repo := newFakeEventRepository()
	sink := NewSink(repo)

	start := time.Date(2024, 11, 20, 19, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	if _, err := sink.Persist(inPersonCandidate(), start, end, ChannelSocial); err != nil {
		t.Fatal(err)
	}

	// Same name and location, different start instant: not a duplicate
	laterStart := start.Add(24 * time.Hour)
	if _, err := sink.Persist(inPersonCandidate(), laterStart, laterStart.Add(2*time.Hour), ChannelSocial); err != nil {
		t.Fatal(err)
	}

	count, _ := repo.GetEventCount()
	if count != 2 {
		t.Errorf("Expected 2 stored events, got %d", count)
	}
}

func TestSinkLenientDuplicateForMailChannel(t *testing.T) {
	repo := newFakeEventRepository()
	sink := NewSink(repo)

	start := time.Date(2024, 11, 20, 19, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	first := &extract.Candidate{
		IsAnEvent:  "Yes",
		IsInPerson: "Yes",
		Location:   "Gerts Bar, 3480 McTavish",
		EventName:  "Annual Trivia Night 2024",
		Day:        "2024-11-20",
	}
	if _, err := sink.Persist(first, start, end, ChannelMail); err != nil {
		t.Fatal(err)
	}

	// A mail-sourced candidate with a substring name and location at the
	// same start instant is a duplicate under the lenient policy
	second := &extract.Candidate{
		IsAnEvent:  "Yes",
		IsInPerson: "Yes",
		Location:   "gerts bar",
		EventName:  "trivia night",
		Day:        "2024-11-20",
	}
	_, err := sink.Persist(second, start, end, ChannelMail)
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("Expected ErrDuplicateEvent under lenient policy, got %v", err)
	}

	// The exact policy would have let the same candidate through
	repo2 := newFakeEventRepository()
	sink2 := NewSink(repo2)
	if _, err := sink2.Persist(first, start, end, ChannelSocial); err != nil {
		t.Fatal(err)
	}
	if _, err := sink2.Persist(second, start, end, ChannelSocial); err != nil {
		t.Fatalf("Expected exact policy to accept non-identical candidate, got %v", err)
	}
}

func TestSinkOnlineEventPopulatesLink(t *testing.T) {
	repo := newFakeEventRepository()
	sink := NewSink(repo)

	candidate := &extract.Candidate{
		IsAnEvent:  "Yes",
		IsInPerson: "No",
		Location:   "ignored",
		Link:       "https://zoom.example.com/j/123",
		EventName:  "Online Info Session",
		Day:        "2024-11-21",
	}

	start := time.Date(2024, 11, 21, 18, 0, 0, 0, time.UTC)
	stored, err := sink.Persist(candidate, start, start.Add(time.Hour), ChannelSocial)
	if err != nil {
		t.Fatal(err)
	}

	if stored.Link != "https://zoom.example.com/j/123" {
		t.Errorf("Expected link to be populated, got '%s'", stored.Link)
	}
	if stored.Location != "" {
		t.Errorf("Expected empty location for online event, got '%s'", stored.Location)
	}
}

func TestSinkReusesOrganization(t *testing.T) {
	repo := newFakeEventRepository()
	sink := NewSink(repo)

	start := time.Date(2024, 11, 20, 19, 0, 0, 0, time.UTC)
	first, err := sink.Persist(inPersonCandidate(), start, start.Add(time.Hour), ChannelSocial)
	if err != nil {
		t.Fatal(err)
	}

	later := start.Add(7 * 24 * time.Hour)
	second, err := sink.Persist(inPersonCandidate(), later, later.Add(time.Hour), ChannelSocial)
	if err != nil {
		t.Fatal(err)
	}

	if first.HostID == nil || second.HostID == nil {
		t.Fatal("Expected both events to reference a host organization")
	}
	if *first.HostID != *second.HostID {
		t.Error("Expected the host organization to be created once and reused")
	}
}
