package sysconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sshtunnel/internal/log"
	"gopkg.in/yaml.v3"
)

// UpdateListenersFunc is called with the flattened key set whenever
// the config file is rewritten on disk.
type UpdateListenersFunc func(ctx context.Context, config map[string]interface{}) error

// Config holds the flattened system configuration (system.yaml) keyed
// by dotted paths.
type Config struct {
	logger          log.Logger
	configFile      string
	data            map[string]interface{}
	updateListeners []UpdateListenersFunc
	watcher         *fsnotify.Watcher
	watchCtx        context.Context
}

type Option func(*Config) error

func WithDefaultValues(defaults map[string]interface{}) Option {
	return func(c *Config) error {
		for key, value := range defaults {
			c.data[key] = value
		}
		return nil
	}
}

func WithLogger(logger log.Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

func WithUpdateListeners(listeners []UpdateListenersFunc) Option {
	return func(c *Config) error {
		c.updateListeners = listeners
		return nil
	}
}

// WithFileWatcher enables fsnotify-based reload of the config file.
// The watcher stops when ctx is cancelled.
func WithFileWatcher(ctx context.Context) Option {
	return func(c *Config) error {
		c.watchCtx = ctx
		return nil
	}
}

func Load(configFile string, options ...Option) (*Config, error) {
	config := &Config{
		configFile: configFile,
		data:       make(map[string]interface{}),
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := config.loadFromFile(); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}

	if config.watchCtx != nil {
		if err := config.startWatcher(); err != nil {
			return nil, fmt.Errorf("failed to start file watcher: %w", err)
		}
	}

	return config, nil
}

func (c *Config) Get(key string) interface{} {
	return c.data[key]
}

func (c *Config) GetString(key string) string {
	if val, ok := c.data[key].(string); ok {
		return val
	}
	return ""
}

func (c *Config) GetBool(key string) bool {
	if val, ok := c.data[key].(bool); ok {
		return val
	}
	return false
}

func (c *Config) GetInt(key string) int {
	switch val := c.data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	}
	return 0
}

// loadFromFile merges the YAML file over the defaults. A missing file
// is not an error; the defaults stand.
func (c *Config) loadFromFile() error {
	if _, err := os.Stat(c.configFile); os.IsNotExist(err) {
		if c.logger != nil {
			c.logger.Debugf("Config file %s does not exist, using defaults", c.configFile)
		}
		return nil
	}

	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileData map[string]interface{}
	if err := yaml.Unmarshal(data, &fileData); err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	for key, value := range flattenMap(fileData, "") {
		c.data[key] = value
	}

	if c.logger != nil {
		c.logger.Debugf("Loaded configuration from %s", c.configFile)
	}

	return nil
}

// flattenMap converts nested maps to dotted keys:
// {"logging": {"level": "debug"}} -> {"logging.level": "debug"}
func flattenMap(data map[string]interface{}, prefix string) map[string]interface{} {
	result := make(map[string]interface{})

	for key, value := range data {
		newKey := key
		if prefix != "" {
			newKey = prefix + "." + key
		}

		if nestedMap, ok := value.(map[string]interface{}); ok {
			for k, v := range flattenMap(nestedMap, newKey) {
				result[k] = v
			}
		} else {
			result[newKey] = value
		}
	}

	return result
}

func (c *Config) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	c.watcher = watcher

	// Watch the directory, not the file: editors and the installer
	// replace system.yaml rather than writing in place.
	configDir := filepath.Dir(c.configFile)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to add watcher: %w", err)
	}

	go c.handleWatchEvents()

	if c.logger != nil {
		c.logger.Debugf("Started file watcher for %s", c.configFile)
	}

	return nil
}

func (c *Config) handleWatchEvents() {
	defer c.watcher.Close()

	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}

			if event.Name == c.configFile && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if c.logger != nil {
					c.logger.Debugf("Config file changed: %s", event.Name)
				}

				// Debounce bursts of events from a single save
				time.Sleep(100 * time.Millisecond)

				if err := c.reloadConfig(); err != nil {
					if c.logger != nil {
						c.logger.Errorf("Failed to reload config: %v", err)
					}
				}
			}

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			if c.logger != nil {
				c.logger.Errorf("File watcher error: %v", err)
			}

		case <-c.watchCtx.Done():
			return
		}
	}
}

func (c *Config) reloadConfig() error {
	if err := c.loadFromFile(); err != nil {
		return err
	}

	for _, listener := range c.updateListeners {
		if err := listener(c.watchCtx, c.data); err != nil {
			if c.logger != nil {
				c.logger.Errorf("Update listener failed: %v", err)
			}
		}
	}

	return nil
}

func (c *Config) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
