package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LoggerFactory hands out named component loggers plus the dedicated
// access logger the HTTP layer writes request lines to.
type LoggerFactory interface {
	GetLogger(name string) Logger
	GetRootLogger() Logger
	GetAccessLogger() Logger
}

type LoggingConfig struct {
	Level    string
	Format   string
	Console  bool
	FilePath string
}

type loggerFactory struct {
	rootLogger   Logger
	accessLogger Logger
	config       LoggingConfig
}

func NewLoggerFactory(logger Logger, loggingConfig LoggingConfig) LoggerFactory {
	factory := &loggerFactory{
		rootLogger: logger,
		config:     loggingConfig,
	}
	factory.accessLogger = factory.createAccessLogger()
	return factory
}

func (f *loggerFactory) GetLogger(name string) Logger {
	return &namedLogger{
		logger: f.rootLogger,
		name:   name,
	}
}

func (f *loggerFactory) GetRootLogger() Logger {
	return f.rootLogger
}

func (f *loggerFactory) GetAccessLogger() Logger {
	return f.accessLogger
}

func (f *loggerFactory) createAccessLogger() Logger {
	logger := logrus.New()

	if f.config.Console || f.config.FilePath == "" {
		logger.SetOutput(os.Stdout)
	} else if file, err := os.OpenFile(f.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640); err == nil {
		logger.SetOutput(file)
	}

	switch f.config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "pretty":
		logger.SetFormatter(NewPrettyFormatter(true))
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(f.config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return &logrusLogger{logger: logger}
}

// namedLogger prefixes every line with the component name; the pretty
// formatter lifts the prefix into its own column.
type namedLogger struct {
	logger Logger
	name   string
}

func (l *namedLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof("[%s] "+format, append([]interface{}{l.name}, args...)...)
}

func (l *namedLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf("[%s] "+format, append([]interface{}{l.name}, args...)...)
}

func (l *namedLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf("[%s] "+format, append([]interface{}{l.name}, args...)...)
}

func (l *namedLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("[%s] "+format, append([]interface{}{l.name}, args...)...)
}

func (l *namedLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatalf("[%s] "+format, append([]interface{}{l.name}, args...)...)
}

func (l *namedLogger) WithField(key string, value interface{}) Logger {
	return l.logger.WithField(key, value)
}

func (l *namedLogger) WithFields(fields map[string]interface{}) Logger {
	return l.logger.WithFields(fields)
}

func (l *namedLogger) Writer() io.Writer {
	return l.logger.Writer()
}
