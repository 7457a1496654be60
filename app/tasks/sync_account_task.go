package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/feed"
)

type SyncAccountTask struct {
	Task
	AccountConfig *feed.Config
	accountRepo   database.AccountRepository
}

func NewSyncAccountTask(accountName string, accountConfig *feed.Config, accountRepo database.AccountRepository) *SyncAccountTask {
	return &SyncAccountTask{
		Task:          NewTask(TaskTypeSyncAccount, accountName),
		AccountConfig: accountConfig,
		accountRepo:   accountRepo,
	}
}

func (t *SyncAccountTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.accountRepo.UpsertAccount(
		t.AccountConfig.Username,
		t.AccountConfig.Settings.Channel)
	if err != nil {
		slog.Error("Task failed", "type", "SyncAccount", "account", t.AccountName, "error", err)
		return fmt.Errorf("failed to sync account config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncAccount",
		"account", t.AccountName,
		"duration", t.GetDuration())

	return nil
}
