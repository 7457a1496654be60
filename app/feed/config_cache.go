package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/denizkarakus123/EventHive-backend/app/cfg"
)

type ConfigCache struct {
	accountsDir string
	cache       map[string]*Config
	mu          sync.RWMutex
}

func NewConfigCache(accountsDir string) *ConfigCache {
	return &ConfigCache{
		accountsDir: accountsDir,
		cache:       make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.accountsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.accountsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive account name from filename (remove .yml extension)
		fileName := filepath.Base(file)
		accountName := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(accountName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Account configuration loaded", "account", accountName, "enabled", config.Settings.Enabled, "channel", config.Settings.Channel, "poll_interval", config.Settings.PollInterval)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(accountName string) (*Config, error) {
	configFile := cc.getConfigFilePath(accountName)
	accountConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	// Set account name from parameter
	accountConfig.Name = accountName

	if err := cc.validateConfig(accountConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	// Store in cache
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[accountConfig.Name] = accountConfig

	return accountConfig, nil
}

func (cc *ConfigCache) GetConfig(accountName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	accountConfig, ok := cc.cache[accountName]
	if !ok {
		return nil, fmt.Errorf("account config with name '%s' not found", accountName)
	}
	return accountConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var accountConfig Config
	if err := yaml.Unmarshal(data, &accountConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if accountConfig.Settings.Channel == "" {
		accountConfig.Settings.Channel = "social"
	}
	if accountConfig.Settings.PollInterval == 0 {
		accountConfig.Settings.PollInterval = cfg.Get().PollInterval
	}
	if accountConfig.Settings.Timeout == 0 {
		accountConfig.Settings.Timeout = 60
	}

	return &accountConfig, nil
}

func (cc *ConfigCache) validateConfig(accountConfig *Config) error {
	if accountConfig == nil {
		return fmt.Errorf("accountConfig is nil")
	}

	requiredFields := map[string]string{
		"account name": accountConfig.Name,
		"username":     accountConfig.Username,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	validChannels := map[string]bool{
		"social": true,
		"mail":   true,
	}
	if !validChannels[accountConfig.Settings.Channel] {
		return fmt.Errorf("invalid channel: %s", accountConfig.Settings.Channel)
	}

	nonNegativeFields := map[string]int{
		"poll interval": accountConfig.Settings.PollInterval,
		"timeout":       accountConfig.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(accountName string) string {
	return filepath.Join(cc.accountsDir, accountName+".yml")
}
