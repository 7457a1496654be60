package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/denizkarakus123/EventHive-backend/app/cfg"
	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/event"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
	"github.com/denizkarakus123/EventHive-backend/app/feed"
	"github.com/denizkarakus123/EventHive-backend/app/mail"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	accountRepo database.AccountRepository
	postRepo    database.PostRepository
	configCache *feed.ConfigCache
	fetcher     Fetcher
	extractor   extract.Extractor
	normalizer  *event.Normalizer
	sink        *event.Sink
	mailDrop    *mail.Drop
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	// Poll bookkeeping is in-memory: an account lost on restart is simply
	// polled again on startup, and the watermark makes the cycle idempotent.
	mu         sync.Mutex
	nextPollAt map[string]time.Time
	inFlight   map[string]bool
}

func NewScheduler(configCache *feed.ConfigCache, accountRepo database.AccountRepository,
	postRepo database.PostRepository, fetcher Fetcher, extractor extract.Extractor,
	normalizer *event.Normalizer, sink *event.Sink, mailDrop *mail.Drop) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		accountRepo: accountRepo,
		postRepo:    postRepo,
		configCache: configCache,
		fetcher:     fetcher,
		extractor:   extractor,
		normalizer:  normalizer,
		sink:        sink,
		mailDrop:    mailDrop,
		interval:    30 * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
		nextPollAt:  make(map[string]time.Time),
		inFlight:    make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	accountConfigs := s.configCache.GetConfigs()
	if len(accountConfigs) == 0 {
		slog.Debug("No account configurations found")
		return
	}

	slog.Debug("Processing account configurations", "count", len(accountConfigs))

	for _, accountConfig := range accountConfigs {
		syncTask := NewSyncAccountTask(accountConfig.Name, accountConfig, s.accountRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncAccountTask", "account", accountConfig.Name, "error", err)
			continue
		}

		if !accountConfig.Settings.Enabled {
			slog.Debug("Account disabled, skipping PollAccountTask", "account", accountConfig.Name)
			continue
		}

		s.enqueuePoll(accountConfig)
	}

	s.enqueueMailDropTask()
}

func (s *Scheduler) enqueueTasks() {
	accountConfigs := s.configCache.GetEnabledConfigs()
	if len(accountConfigs) == 0 {
		slog.Debug("No enabled account configurations found")
	}

	now := time.Now().UTC()
	for _, accountConfig := range accountConfigs {
		s.mu.Lock()
		due := !s.inFlight[accountConfig.Name] && !s.nextPollAt[accountConfig.Name].After(now)
		s.mu.Unlock()

		if !due {
			slog.Debug("Account not due for polling yet", "account", accountConfig.Name)
			continue
		}

		s.enqueuePoll(accountConfig)
	}

	s.enqueueMailDropTask()
}

func (s *Scheduler) enqueuePoll(accountConfig *feed.Config) {
	task := NewPollAccountTask(accountConfig.Name, accountConfig, s.fetcher,
		s.extractor, s.normalizer, s.sink, s.accountRepo, s.postRepo)

	s.mu.Lock()
	s.inFlight[accountConfig.Name] = true
	s.nextPollAt[accountConfig.Name] = time.Now().UTC().Add(time.Duration(accountConfig.Settings.PollInterval) * time.Second)
	s.mu.Unlock()

	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue PollAccountTask", "account", accountConfig.Name, "error", err)
		s.mu.Lock()
		delete(s.inFlight, accountConfig.Name)
		s.mu.Unlock()
	}
}

func (s *Scheduler) enqueueMailDropTask() {
	if s.mailDrop == nil {
		return
	}

	task := NewProcessMailDropTask(s.mailDrop, s.extractor, s.normalizer, s.sink)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue ProcessMailDropTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err == nil {
		s.finishPoll(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if task.CanRetry() {
		task.IncrementRetryCount()
		retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}

		slog.Warn("Task retry scheduled", "type", string(task.GetType()), "account", task.GetAccountName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

		// Tracked by the WaitGroup so Stop cannot close the queue while a
		// retry is still pending
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			timer := time.NewTimer(retryDelay)
			defer timer.Stop()

			select {
			case <-s.ctx.Done():
				slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
				return
			case <-timer.C:
				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					s.finishPoll(task)
				}
			}
		}()
	} else {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		s.finishPoll(task)
	}
}

// finishPoll releases the overlap guard once a poll task will not run again.
func (s *Scheduler) finishPoll(task TaskInterface) {
	if task.GetType() != TaskTypePollAccount {
		return
	}
	s.mu.Lock()
	delete(s.inFlight, task.GetAccountName())
	s.mu.Unlock()
}
