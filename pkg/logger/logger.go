// Package logger provides a small leveled logger with per-component tags.
//
// Components keep log lines greppable when many tenants are in flight:
// every line carries a [component] tag and optional structured fields.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which messages are emitted.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var (
	mu    sync.Mutex
	level = INFO
	out   io.Writer = os.Stderr
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

func emit(l Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02 15:04:05"))
	b.WriteString(" ")
	b.WriteString(levelNames[l])
	if component != "" {
		b.WriteString(" [")
		b.WriteString(component)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}

	fmt.Fprintln(out, b.String())
}

func Debug(msg string) { emit(DEBUG, "", msg, nil) }
func Info(msg string)  { emit(INFO, "", msg, nil) }
func Warn(msg string)  { emit(WARN, "", msg, nil) }
func Error(msg string) { emit(ERROR, "", msg, nil) }

// DebugC logs a message with a component tag.
func DebugC(component, msg string) { emit(DEBUG, component, msg, nil) }
func InfoC(component, msg string)  { emit(INFO, component, msg, nil) }
func WarnC(component, msg string)  { emit(WARN, component, msg, nil) }
func ErrorC(component, msg string) { emit(ERROR, component, msg, nil) }

// DebugCF logs a message with a component tag and structured fields.
func DebugCF(component, msg string, fields map[string]any) { emit(DEBUG, component, msg, fields) }
func InfoCF(component, msg string, fields map[string]any)  { emit(INFO, component, msg, fields) }
func WarnCF(component, msg string, fields map[string]any)  { emit(WARN, component, msg, fields) }
func ErrorCF(component, msg string, fields map[string]any) { emit(ERROR, component, msg, fields) }
