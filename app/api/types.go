package api

import (
	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/event"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
	"github.com/denizkarakus123/EventHive-backend/app/feed"
	"github.com/denizkarakus123/EventHive-backend/app/tasks"
)

type Handler struct {
	accountRepo database.AccountRepository
	postRepo    database.PostRepository
	eventRepo   database.EventRepository
	configCache *feed.ConfigCache
	scheduler   tasks.TaskSchedulerInterface
	fetcher     tasks.Fetcher
	extractor   extract.Extractor
	normalizer  *event.Normalizer
	sink        *event.Sink
}
