package log

import (
	"log/slog"
	"strings"
)

// Level is a log severity. Its values are slog's, so levels between the
// named ones order correctly.
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

func (l Level) String() string { return strings.ToLower(slog.Level(l).String()) }

// ToSlogLevel returns l as a slog.Level.
func (l Level) ToSlogLevel() slog.Level { return slog.Level(l) }

// LookupLevel returns the level named s. Case and surrounding space are
// ignored.
func LookupLevel(s string) (Level, bool) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	return l, ok
}

// ParseLevel is LookupLevel with unknown names mapped to LevelInfo.
func ParseLevel(s string) Level {
	if l, ok := LookupLevel(s); ok {
		return l
	}
	return LevelInfo
}

// Format selects the record encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func (f Format) String() string { return string(f) }

// LookupFormat returns the format named s; "console" is text.
func LookupFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "console":
		return FormatText, true
	case "json":
		return FormatJSON, true
	}
	return "", false
}

// ParseFormat is LookupFormat with unknown names mapped to FormatText,
// the format scheduled runs write to their log file.
func ParseFormat(s string) Format {
	if f, ok := LookupFormat(s); ok {
		return f
	}
	return FormatText
}
