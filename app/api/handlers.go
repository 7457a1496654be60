package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denizkarakus123/EventHive-backend/app/database"
	"github.com/denizkarakus123/EventHive-backend/app/event"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
	"github.com/denizkarakus123/EventHive-backend/app/feed"
	"github.com/denizkarakus123/EventHive-backend/app/tasks"
)

func NewHandler(configCache *feed.ConfigCache, accountRepo database.AccountRepository,
	postRepo database.PostRepository, eventRepo database.EventRepository,
	fetcher tasks.Fetcher, extractor extract.Extractor, normalizer *event.Normalizer,
	sink *event.Sink, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		accountRepo: accountRepo,
		postRepo:    postRepo,
		eventRepo:   eventRepo,
		configCache: configCache,
		scheduler:   scheduler,
		fetcher:     fetcher,
		extractor:   extractor,
		normalizer:  normalizer,
		sink:        sink,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if accountCount, err := h.accountRepo.GetAccountCount(); err == nil {
		health["accounts"] = accountCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"loaded_configurations": h.configCache.GetConfigCount(),
	}

	if accountCount, err := h.accountRepo.GetAccountCount(); err == nil {
		stats["accounts"] = accountCount
	}
	if postCount, err := h.postRepo.GetPostCount(); err == nil {
		stats["posts"] = postCount
	}
	if eventCount, err := h.eventRepo.GetEventCount(); err == nil {
		stats["events"] = eventCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	events, err := h.eventRepo.GetRecentEvents(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

func (h *Handler) APIListAccounts(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	accounts := make([]map[string]interface{}, 0, len(configs))

	for _, accountConfig := range configs {
		accountInfo := map[string]interface{}{
			"name":          accountConfig.Name,
			"username":      accountConfig.Username,
			"enabled":       accountConfig.Settings.Enabled,
			"channel":       accountConfig.Settings.Channel,
			"poll_interval": (time.Duration(accountConfig.Settings.PollInterval) * time.Second).String(),
		}

		if account, err := h.accountRepo.GetAccount(accountConfig.Username); err == nil && account != nil {
			accountInfo["user_id"] = account.UserID
			accountInfo["last_ingested_at"] = account.LastIngestedAt
			accountInfo["updated_at"] = account.UpdatedAt
		}

		accounts = append(accounts, accountInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"total":    len(accounts),
	})
}

func (h *Handler) APIGetAccountDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing account name parameter"})
		return
	}

	accountConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Account configuration not found", "account", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Account configuration not found"})
		return
	}

	account, err := h.accountRepo.GetAccount(accountConfig.Username)
	if err != nil {
		slog.Error("Database error", "operation", "get_account", "account", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if account == nil {
		slog.Error("Account not found in database", "account", name)
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found in database"})
		return
	}

	details := map[string]interface{}{
		"name":          name,
		"username":      accountConfig.Username,
		"enabled":       accountConfig.Settings.Enabled,
		"channel":       accountConfig.Settings.Channel,
		"poll_interval": (time.Duration(accountConfig.Settings.PollInterval) * time.Second).String(),
		"timeout":       (time.Duration(accountConfig.Settings.Timeout) * time.Second).String(),
	}

	details["database"] = map[string]interface{}{
		"user_id":          account.UserID,
		"channel":          account.Channel,
		"last_ingested_at": account.LastIngestedAt,
		"created_at":       account.CreatedAt,
		"updated_at":       account.UpdatedAt,
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIGetAccountPosts(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing account name parameter"})
		return
	}

	accountConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Account configuration not found", "account", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Account configuration not found"})
		return
	}

	posts, err := h.postRepo.GetPosts(accountConfig.Username)
	if err != nil {
		slog.Error("Database error", "operation", "get_posts", "account", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"account": name,
		"posts":   posts,
		"total":   len(posts),
	})
}

func (h *Handler) APIGetOrganization(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing organization name parameter"})
		return
	}

	org, err := h.eventRepo.GetOrganizationByName(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_organization", "organization", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if org == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	c.JSON(http.StatusOK, org)
}

func (h *Handler) APIPollAccount(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing account name parameter"})
		return
	}

	accountConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "account", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Account configuration not found",
			"details": err.Error(),
		})
		return
	}

	syncTask := tasks.NewSyncAccountTask(name, accountConfig, h.accountRepo)
	if err := h.scheduler.EnqueueTask(syncTask); err != nil {
		slog.Error("Error enqueueing sync task", "account", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	pollTask := tasks.NewPollAccountTask(name, accountConfig, h.fetcher, h.extractor,
		h.normalizer, h.sink, h.accountRepo, h.postRepo)
	if err := h.scheduler.EnqueueTask(pollTask); err != nil {
		slog.Error("Error enqueueing poll task", "account", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue poll task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and poll enqueued successfully",
		"account": gin.H{
			"name":     name,
			"username": accountConfig.Username,
		},
		"tasks": []gin.H{
			{
				"id":   syncTask.ID,
				"type": syncTask.Type,
			},
			{
				"id":   pollTask.ID,
				"type": pollTask.Type,
			},
		},
	})
}
