// Package logger provides the component-tagged leveled logger used
// across kakehashi. Output goes to stderr; fields are rendered as
// sorted key=value pairs so log lines stay greppable.
package logger

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(INFO))
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags)
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	currentLevel.Store(int32(l))
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

func emit(l Level, component, msg string, fields map[string]any) {
	if int32(l) < currentLevel.Load() {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s: %s", l, component, msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, fields[k])
		}
	}
	log.Print(sb.String())
}

// DebugC logs a debug message for a component.
func DebugC(component, msg string) { emit(DEBUG, component, msg, nil) }

// DebugCF logs a debug message with structured fields.
func DebugCF(component, msg string, fields map[string]any) { emit(DEBUG, component, msg, fields) }

// InfoC logs an info message for a component.
func InfoC(component, msg string) { emit(INFO, component, msg, nil) }

// InfoCF logs an info message with structured fields.
func InfoCF(component, msg string, fields map[string]any) { emit(INFO, component, msg, fields) }

// WarnC logs a warning for a component.
func WarnC(component, msg string) { emit(WARN, component, msg, nil) }

// WarnCF logs a warning with structured fields.
func WarnCF(component, msg string, fields map[string]any) { emit(WARN, component, msg, fields) }

// ErrorC logs an error for a component.
func ErrorC(component, msg string) { emit(ERROR, component, msg, nil) }

// ErrorCF logs an error with structured fields.
func ErrorCF(component, msg string, fields map[string]any) { emit(ERROR, component, msg, fields) }
