package log

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// PrettyFormatter renders pipe-separated log lines with an optional
// trace-ID and component column.
type PrettyFormatter struct {
	EnableColors bool
}

func NewPrettyFormatter(enableColors bool) *PrettyFormatter {
	return &PrettyFormatter{EnableColors: enableColors}
}

func (f *PrettyFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
	b.WriteString(" | ")

	level := strings.ToUpper(entry.Level.String())
	if level == "WARNING" {
		level = "WARN"
	}
	if f.EnableColors {
		level = f.colorizeLevel(level, entry.Level)
	}
	b.WriteString(fmt.Sprintf("%-5s", level))
	b.WriteString(" | ")

	if traceID := f.extractTraceID(entry); traceID != "" {
		b.WriteString(fmt.Sprintf("[%s] | ", traceID))
	}

	message := entry.Message
	if name, rest := splitComponentPrefix(message); name != "" {
		b.WriteString(name)
		b.WriteString(" | ")
		message = rest
	}

	b.WriteString(message)

	if fields := f.extraFields(entry); fields != "" {
		b.WriteString(" | ")
		b.WriteString(fields)
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

func (f *PrettyFormatter) colorizeLevel(level string, logLevel logrus.Level) string {
	const (
		red    = "\033[31m"
		yellow = "\033[33m"
		blue   = "\033[34m"
		green  = "\033[32m"
		reset  = "\033[0m"
	)

	switch logLevel {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return red + level + reset
	case logrus.WarnLevel:
		return yellow + level + reset
	case logrus.InfoLevel:
		return blue + level + reset
	case logrus.DebugLevel:
		return green + level + reset
	default:
		return level
	}
}

func (f *PrettyFormatter) extractTraceID(entry *logrus.Entry) string {
	for _, key := range []string{"trace_id", "traceId"} {
		if traceID, exists := entry.Data[key]; exists {
			if str, ok := traceID.(string); ok && str != "" {
				if len(str) > 12 {
					return str[:12]
				}
				return str
			}
		}
	}
	return ""
}

func (f *PrettyFormatter) extraFields(entry *logrus.Entry) string {
	var parts []string
	for key, value := range entry.Data {
		switch key {
		case "trace_id", "traceId":
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	return strings.Join(parts, " ")
}

// splitComponentPrefix peels a leading "[name] " off namedLogger
// output so the component gets its own column.
func splitComponentPrefix(message string) (string, string) {
	if !strings.HasPrefix(message, "[") {
		return "", message
	}
	end := strings.Index(message, "]")
	if end <= 1 {
		return "", message
	}
	return message[1:end], strings.TrimPrefix(message[end+1:], " ")
}
