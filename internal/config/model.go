package config

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Checker CheckerConfig `yaml:"checker"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig drives the optional serve mode only; the plain CLI
// commands never bind a socket.
type ServerConfig struct {
	Port    string `yaml:"port" env:"SERVER_PORT"`
	Host    string `yaml:"host" env:"SERVER_HOST"`
	Timeout int    `yaml:"timeout"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`
	Format   string `yaml:"format" env:"LOG_FORMAT"`
	Console  bool   `yaml:"console"`
	FilePath string `yaml:"filePath"`
}

// CheckerConfig holds probe timeouts for the check command. Values are
// seconds; both timeouts default to 1s.
type CheckerConfig struct {
	DialTimeoutSecs int `yaml:"dialTimeoutSecs"`
	PingTimeoutSecs int `yaml:"pingTimeoutSecs"`
	PingCount       int `yaml:"pingCount"`
}

// HistoryConfig enables recording check reports to Postgres.
type HistoryConfig struct {
	Enabled            bool   `yaml:"enabled" env:"HISTORY_ENABLED"`
	URL                string `yaml:"url" env:"HISTORY_DATABASE_URL"`
	MaxOpenConnections int    `yaml:"maxOpenConnections"`
	MaxIdleConnections int    `yaml:"maxIdleConnections"`
	QueryTimeoutSecs   int    `yaml:"queryTimeoutSecs"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `yaml:"path"`
}
