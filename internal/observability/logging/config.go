package logging

import "fmt"

// Config selects log format, level and destination
type Config struct {
	Format string
	Level  string
	Output string
}

const (
	FormatJSONL  = "jsonl"
	FormatText   = "text"
	FormatPretty = "pretty"
)

func DefaultConfig() Config {
	return Config{
		Format: FormatPretty,
		Level:  LevelInfo,
		Output: "stderr",
	}
}

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Validate rejects unknown formats and levels
func (c Config) Validate() error {
	switch c.Format {
	case "", FormatJSONL, FormatText, FormatPretty:
	default:
		return fmt.Errorf("log format must be jsonl, text or pretty, got %q", c.Format)
	}
	switch c.Level {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", c.Level)
	}
	return nil
}

func levelPriority(level string) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}
