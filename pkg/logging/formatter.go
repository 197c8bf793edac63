/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Console formatter for protodec logs. Prints timestamp, level, a pipeline
stage tag and sorted key=value fields, with ANSI colors when writing to a terminal.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorBlue    = 34
	colorMagenta = 35
	colorCyan    = 36
	colorWhite   = 37
)

// CustomFormatter renders one human-readable line per entry
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format implements logrus.Formatter.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var out strings.Builder

	if f.Timestamp {
		out.WriteString(f.paint(colorCyan, entry.Time.Format("2006-01-02 15:04:05.000")))
		out.WriteByte(' ')
	}

	out.WriteString(f.paint(levelColor(entry.Level), strings.ToUpper(entry.Level.String())))
	out.WriteByte(' ')

	if stage := stageOf(entry.Message); stage != "" {
		out.WriteString(f.paint(colorMagenta, "["+stage+"]"))
		out.WriteByte(' ')
	}

	if f.Caller && entry.HasCaller() {
		out.WriteString(f.paint(colorYellow, fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line)))
		out.WriteByte(' ')
	}

	out.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		out.WriteByte(' ')
		out.WriteString(f.formatFields(entry.Data))
	}

	out.WriteByte('\n')
	return []byte(out.String()), nil
}

func (f *CustomFormatter) paint(color int, s string) string {
	if !f.Colors {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[0m", color, s)
}

func levelColor(level logrus.Level) int {
	switch level {
	case logrus.InfoLevel:
		return colorGreen
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel:
		return colorRed
	case logrus.FatalLevel, logrus.PanicLevel:
		return colorMagenta
	default:
		return colorWhite
	}
}

// stageOf tags the messages emitted by the Logger helpers.
func stageOf(message string) string {
	switch {
	case strings.HasPrefix(message, "Capture"):
		return "CAPTURE"
	case strings.HasPrefix(message, "Embedded message"):
		return "SCAN"
	case strings.HasPrefix(message, "Schema"):
		return "SCHEMA"
	case strings.HasPrefix(message, "Decode"):
		return "DECODE"
	case strings.HasPrefix(message, "Statistics"):
		return "STATS"
	default:
		return ""
	}
}

// formatFields prints fields in key order so lines diff cleanly.
func (f *CustomFormatter) formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, f.paint(colorBlue, k)+"="+f.paint(colorGreen, formatValue(k, fields[k])))
	}
	return strings.Join(parts, " ")
}

func formatValue(key string, value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.Round(time.Millisecond).String()
	case time.Time:
		return v.Format("15:04:05.000")
	case string:
		if key == "capture_id" && len(v) > 8 {
			return v[:8]
		}
		if len(v) > 64 {
			return v[:64] + "..."
		}
		return v
	case []byte:
		if len(v) > 20 {
			return fmt.Sprintf("[%d bytes]", len(v))
		}
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
