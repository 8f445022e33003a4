package config

import (
	"context"
	"fmt"

	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/shared"
	"github.com/sshtunnel/internal/sysconfig"
)

type Service interface {
	Get() Config
	// AddUpdateListener - listeners are triggered when system.yaml is
	// rewritten on disk
	AddUpdateListener(listener UpdateListener)
	GetConfigDir() string
}

type configService struct {
	config          *Config
	home            shared.Home
	updateListeners []UpdateListener
	sysConfig       *sysconfig.Config
}

type UpdateListener struct {
	Name     string
	OnUpdate func(context.Context, Config) error
}

func NewService(ctx context.Context, logger log.Logger, home shared.Home) Service {
	s := configService{
		config:          &Config{},
		home:            home,
		updateListeners: []UpdateListener{},
	}
	if err := s.init(ctx, logger); err != nil {
		logger.Fatalf("Failed to initialize configuration: %+v", err)
	}
	return &s
}

func (s *configService) Get() Config {
	return *s.config
}

func (s *configService) GetConfigDir() string {
	return s.home.ConfigDir()
}

func (s *configService) AddUpdateListener(listener UpdateListener) {
	s.updateListeners = append(s.updateListeners, listener)
}

func (s *configService) init(ctx context.Context, logger log.Logger) error {
	sysConfig, err := sysconfig.Load(s.home.SystemConfigFile(),
		sysconfig.WithDefaultValues(getConfigDefaults()),
		sysconfig.WithLogger(logger),
		sysconfig.WithUpdateListeners([]sysconfig.UpdateListenersFunc{
			s.sysConfigUpdateListener(ctx, logger),
		}),
		sysconfig.WithFileWatcher(ctx))
	if err != nil {
		return err
	}
	s.sysConfig = sysConfig
	return s.unmarshalConfig()
}

func (s *configService) triggerUpdateListeners(ctx context.Context, logger log.Logger) {
	if len(s.updateListeners) > 0 {
		logger.Infof("Configuration update detected")
	}
	for _, listener := range s.updateListeners {
		logger.Debugf("Running config update listener '%s'", listener.Name)
		if err := listener.OnUpdate(ctx, *s.config); err != nil {
			logger.Errorf("Failed running config update listener '%s': %v", listener.Name, err)
		}
	}
}

func (s *configService) sysConfigUpdateListener(ctx context.Context, logger log.Logger) func(context.Context, map[string]interface{}) error {
	return func(ctx context.Context, data map[string]interface{}) error {
		logger.Infof("System configuration updated")

		if err := s.unmarshalConfig(); err != nil {
			return fmt.Errorf("failed to unmarshal config after update: %w", err)
		}

		s.triggerUpdateListeners(ctx, logger)
		return nil
	}
}

func (s *configService) unmarshalConfig() error {
	if s.sysConfig == nil {
		return fmt.Errorf("system configuration not initialized")
	}

	config := Config{
		Server: ServerConfig{
			Port:    s.getStringOrDefault("server.port", "8573"),
			Host:    s.getStringOrDefault("server.host", "127.0.0.1"),
			Timeout: s.getIntOrDefault("server.timeout", 30),
		},
		Logging: LoggingConfig{
			Level:    s.getStringOrDefault("logging.level", "info"),
			Format:   s.getStringOrDefault("logging.format", "text"),
			Console:  s.getBoolOrDefault("logging.console", false),
			FilePath: s.getStringOrDefault("logging.filePath", ""),
		},
		Checker: CheckerConfig{
			DialTimeoutSecs: s.getIntOrDefault("checker.dialTimeoutSecs", 1),
			PingTimeoutSecs: s.getIntOrDefault("checker.pingTimeoutSecs", 1),
			PingCount:       s.getIntOrDefault("checker.pingCount", 3),
		},
		History: HistoryConfig{
			Enabled:            s.getBoolOrDefault("history.enabled", false),
			URL:                s.getStringOrDefault("history.url", ""),
			MaxOpenConnections: s.getIntOrDefault("history.maxOpenConnections", 5),
			MaxIdleConnections: s.getIntOrDefault("history.maxIdleConnections", 2),
			QueryTimeoutSecs:   s.getIntOrDefault("history.queryTimeoutSecs", 10),
		},
		Metrics: MetricsConfig{
			Enabled: s.getBoolOrDefault("metrics.enabled", true),
			Path:    s.getStringOrDefault("metrics.path", "/api/v1/system/metrics"),
		},
	}

	s.config = &config
	return nil
}

func (s *configService) getStringOrDefault(key, defaultValue string) string {
	if val := s.sysConfig.GetString(key); val != "" {
		return val
	}
	return defaultValue
}

func (s *configService) getIntOrDefault(key string, defaultValue int) int {
	if val := s.sysConfig.GetInt(key); val != 0 {
		return val
	}
	return defaultValue
}

func (s *configService) getBoolOrDefault(key string, defaultValue bool) bool {
	if s.sysConfig.Get(key) != nil {
		return s.sysConfig.GetBool(key)
	}
	return defaultValue
}

const (
	KeyApplicationLogLevel = "logging.level"
)

func getConfigDefaults() map[string]interface{} {
	// Fallback defaults only - system.yaml values take precedence.
	return map[string]interface{}{
		"server.port":    "8573",
		"server.host":    "127.0.0.1",
		"server.timeout": 30,

		"logging.level":   "info",
		"logging.format":  "text",
		"logging.console": false,

		"checker.dialTimeoutSecs": 1,
		"checker.pingTimeoutSecs": 1,
		"checker.pingCount":       3,

		"history.enabled":            false,
		"history.maxOpenConnections": 5,
		"history.maxIdleConnections": 2,
		"history.queryTimeoutSecs":   10,

		"metrics.enabled": true,
	}
}
