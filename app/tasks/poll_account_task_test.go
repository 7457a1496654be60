package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/denizkarakus123/EventHive-backend/app/cfg"
	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/event"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
	"github.com/denizkarakus123/EventHive-backend/app/feed"
)

type fakeFetcher struct {
	result       *feed.FetchResult
	err          error
	gotWatermark time.Time
	calls        int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, watermark time.Time) (*feed.FetchResult, error) {
	f.calls++
	f.gotWatermark = watermark
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAccountRepo struct {
	watermark *time.Time
	userID    string
}

func (f *fakeAccountRepo) UpsertAccount(name, channel string) error { return nil }
func (f *fakeAccountRepo) SetUserID(name, userID string) error {
	f.userID = userID
	return nil
}
func (f *fakeAccountRepo) GetAccount(name string) (*database.Account, error) { return nil, nil }
func (f *fakeAccountRepo) GetAccountCount() (int, error)                     { return 0, nil }
func (f *fakeAccountRepo) GetWatermark(name string) (*time.Time, error) {
	return f.watermark, nil
}
func (f *fakeAccountRepo) AdvanceWatermark(name string, candidateMax time.Time) error {
	if f.watermark == nil || f.watermark.Before(candidateMax) {
		wm := candidateMax
		f.watermark = &wm
	}
	return nil
}

type fakePostRepo struct {
	seen map[string]bool
}

func (f *fakePostRepo) MergePosts(accountName string, posts []database.NewPost) ([]database.NewPost, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	var added []database.NewPost
	for _, p := range posts {
		if f.seen[p.Shortcode] {
			continue
		}
		f.seen[p.Shortcode] = true
		added = append(added, p)
	}
	return added, nil
}
func (f *fakePostRepo) GetPosts(accountName string) ([]database.Post, error) { return nil, nil }
func (f *fakePostRepo) GetPostCount() (int, error)                           { return len(f.seen), nil }

type fakeEventRepo struct {
	events []database.Event
}

func (f *fakeEventRepo) GetEventsByStart(start time.Time) ([]database.Event, error) {
	var matched []database.Event
	for _, ev := range f.events {
		if ev.StartDate.Equal(start) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

func (f *fakeEventRepo) InsertEvent(newEvent database.NewEvent) (*database.Event, error) {
	ev := database.Event{
		ID:        int64(len(f.events) + 1),
		Name:      newEvent.Name,
		StartDate: newEvent.StartDate,
		EndDate:   newEvent.EndDate,
		Location:  newEvent.Location,
		Link:      newEvent.Link,
	}
	f.events = append(f.events, ev)
	return &ev, nil
}

func (f *fakeEventRepo) GetRecentEvents(limit int) ([]database.Event, error) { return f.events, nil }
func (f *fakeEventRepo) GetEventCount() (int, error)                         { return len(f.events), nil }
func (f *fakeEventRepo) GetOrganizationByName(name string) (*database.Organization, error) {
	return nil, nil
}

type fakeExtractor struct {
	candidates map[string]*extract.Candidate
	err        error
	failOn     string
}

func (f *fakeExtractor) Extract(_ context.Context, caption, _ string) (*extract.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.failOn != "" && caption == f.failOn {
		return nil, fmt.Errorf("provider rejected request")
	}
	return f.candidates[caption], nil
}

func eventCandidate(name, day string) *extract.Candidate {
	return &extract.Candidate{
		IsAnEvent:  "Yes",
		IsInPerson: "Yes",
		Location:   "Student Center",
		Host:       "Chess Club",
		IsFullday:  "Yes",
		Day:        day,
		EventName:  name,
	}
}

func pollTestConfig() *feed.Config {
	return &feed.Config{
		Name:     "chessclub",
		Username: "chessclub",
		Settings: feed.ConfigSettings{
			Enabled:      true,
			Channel:      event.ChannelSocial,
			PollInterval: 600,
			Timeout:      60,
		},
	}
}

func setupPollTest() {
	cfg.Set(&cfg.Cfg{
		StartFrom:        "2024-11-20 00:00:00",
		OnTimeParseError: event.TimeParseFallback,
	})
}

func TestPollAccountTaskPersistsEventsAndAdvancesWatermark(t *testing.T) {
	setupPollTest()

	fetched := []feed.Post{
		{Shortcode: "aaa", Caption: "chess night", TakenAt: time.Unix(1732200000, 0).UTC()},
		{Shortcode: "bbb", Caption: "bake sale", TakenAt: time.Unix(1732300000, 0).UTC()},
	}
	fetcher := &fakeFetcher{result: &feed.FetchResult{UserID: "12345", Posts: fetched}}
	accountRepo := &fakeAccountRepo{}
	eventRepo := &fakeEventRepo{}
	extractor := &fakeExtractor{candidates: map[string]*extract.Candidate{
		"chess night": eventCandidate("Chess Night", "2024-11-22"),
		"bake sale":   eventCandidate("Bake Sale", "2024-11-23"),
	}}

	task := NewPollAccountTask("chessclub", pollTestConfig(), fetcher, extractor,
		event.NewNormalizer(), event.NewSink(eventRepo), accountRepo, &fakePostRepo{})

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(eventRepo.events) != 2 {
		t.Errorf("Expected 2 persisted events, got %d", len(eventRepo.events))
	}
	if accountRepo.userID != "12345" {
		t.Errorf("Expected resolved user id to be stored, got %q", accountRepo.userID)
	}
	if accountRepo.watermark == nil {
		t.Fatal("Expected watermark to be advanced")
	}
	if !accountRepo.watermark.Equal(time.Unix(1732300000, 0).UTC()) {
		t.Errorf("Expected watermark at max taken-at, got %v", accountRepo.watermark)
	}
	if !fetcher.gotWatermark.Equal(time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected initial boundary from configuration, got %v", fetcher.gotWatermark)
	}
}

func TestPollAccountTaskEmptyCycleLeavesWatermarkUnchanged(t *testing.T) {
	setupPollTest()

	wm := time.Unix(1732100000, 0).UTC()
	accountRepo := &fakeAccountRepo{watermark: &wm}
	fetcher := &fakeFetcher{result: &feed.FetchResult{UserID: "12345"}}

	task := NewPollAccountTask("chessclub", pollTestConfig(), fetcher, &fakeExtractor{},
		event.NewNormalizer(), event.NewSink(&fakeEventRepo{}), accountRepo, &fakePostRepo{})

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !accountRepo.watermark.Equal(wm) {
		t.Errorf("Expected watermark unchanged at %v, got %v", wm, accountRepo.watermark)
	}
	if !fetcher.gotWatermark.Equal(wm) {
		t.Errorf("Expected stored watermark as fetch boundary, got %v", fetcher.gotWatermark)
	}
}

func TestPollAccountTaskFetchFailureAbortsCycle(t *testing.T) {
	setupPollTest()

	accountRepo := &fakeAccountRepo{}
	fetcher := &fakeFetcher{err: errors.New("proxy unreachable")}

	task := NewPollAccountTask("chessclub", pollTestConfig(), fetcher, &fakeExtractor{},
		event.NewNormalizer(), event.NewSink(&fakeEventRepo{}), accountRepo, &fakePostRepo{})

	if err := task.Execute(context.Background()); err == nil {
		t.Fatal("Expected error from failed fetch")
	}

	if accountRepo.watermark != nil {
		t.Errorf("Expected watermark untouched after failed fetch, got %v", accountRepo.watermark)
	}
}

func TestPollAccountTaskSingleItemFailureContinues(t *testing.T) {
	setupPollTest()

	fetched := []feed.Post{
		{Shortcode: "aaa", Caption: "broken post", TakenAt: time.Unix(1732200000, 0).UTC()},
		{Shortcode: "bbb", Caption: "bake sale", TakenAt: time.Unix(1732300000, 0).UTC()},
	}
	fetcher := &fakeFetcher{result: &feed.FetchResult{Posts: fetched}}
	accountRepo := &fakeAccountRepo{}
	eventRepo := &fakeEventRepo{}
	extractor := &fakeExtractor{
		failOn: "broken post",
		candidates: map[string]*extract.Candidate{
			"bake sale": eventCandidate("Bake Sale", "2024-11-23"),
		},
	}

	task := NewPollAccountTask("chessclub", pollTestConfig(), fetcher, extractor,
		event.NewNormalizer(), event.NewSink(eventRepo), accountRepo, &fakePostRepo{})

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(eventRepo.events) != 1 {
		t.Errorf("Expected the healthy post to be persisted, got %d events", len(eventRepo.events))
	}
	if accountRepo.watermark == nil || !accountRepo.watermark.Equal(time.Unix(1732300000, 0).UTC()) {
		t.Errorf("Expected watermark advanced past the failed post, got %v", accountRepo.watermark)
	}
}

func TestPollAccountTaskSkipsNonEvents(t *testing.T) {
	setupPollTest()

	fetched := []feed.Post{
		{Shortcode: "aaa", Caption: "just a meme", TakenAt: time.Unix(1732200000, 0).UTC()},
	}
	fetcher := &fakeFetcher{result: &feed.FetchResult{Posts: fetched}}
	eventRepo := &fakeEventRepo{}
	extractor := &fakeExtractor{candidates: map[string]*extract.Candidate{
		"just a meme": {IsAnEvent: "No"},
	}}

	task := NewPollAccountTask("chessclub", pollTestConfig(), fetcher, extractor,
		event.NewNormalizer(), event.NewSink(eventRepo), &fakeAccountRepo{}, &fakePostRepo{})

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(eventRepo.events) != 0 {
		t.Errorf("Expected no events for non-event post, got %d", len(eventRepo.events))
	}
}

func TestPollAccountTaskRepeatedCycleDeduplicates(t *testing.T) {
	setupPollTest()

	fetched := []feed.Post{
		{Shortcode: "aaa", Caption: "chess night", TakenAt: time.Unix(1732200000, 0).UTC()},
	}
	fetcher := &fakeFetcher{result: &feed.FetchResult{Posts: fetched}}
	eventRepo := &fakeEventRepo{}
	postRepo := &fakePostRepo{}
	extractor := &fakeExtractor{candidates: map[string]*extract.Candidate{
		"chess night": eventCandidate("Chess Night", "2024-11-22"),
	}}

	task := NewPollAccountTask("chessclub", pollTestConfig(), fetcher, extractor,
		event.NewNormalizer(), event.NewSink(eventRepo), &fakeAccountRepo{}, postRepo)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error on first cycle, got: %v", err)
	}
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error on second cycle, got: %v", err)
	}

	if len(eventRepo.events) != 1 {
		t.Errorf("Expected identity dedup to keep a single event, got %d", len(eventRepo.events))
	}
}

func TestPollAccountTaskDisabledAccountSkips(t *testing.T) {
	setupPollTest()

	accountConfig := pollTestConfig()
	accountConfig.Settings.Enabled = false
	fetcher := &fakeFetcher{}

	task := NewPollAccountTask("chessclub", accountConfig, fetcher, &fakeExtractor{},
		event.NewNormalizer(), event.NewSink(&fakeEventRepo{}), &fakeAccountRepo{}, &fakePostRepo{})

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if fetcher.calls != 0 {
		t.Errorf("Expected no fetch for disabled account, got %d calls", fetcher.calls)
	}
}
