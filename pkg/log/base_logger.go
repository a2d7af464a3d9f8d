package log

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// BaseLogger implements Logger on top of a formatter, outputs and hooks.
type BaseLogger struct {
	mu        *sync.RWMutex
	level     Level
	fields    Fields
	formatter Formatter
	outputs   []Output
	hooks     []Hook
}

func (l *BaseLogger) enabled(level Level) bool {
	return l.GetLevel() <= level
}

// Debug logs a message at the debug level with fields.
func (l *BaseLogger) Debug(msg string, fields ...Field) {
	if l.enabled(DebugLevel) {
		l.write(DebugLevel, msg, fields)
	}
}

// Info logs a message at the info level with fields.
func (l *BaseLogger) Info(msg string, fields ...Field) {
	if l.enabled(InfoLevel) {
		l.write(InfoLevel, msg, fields)
	}
}

// Warn logs a message at the warn level with fields.
func (l *BaseLogger) Warn(msg string, fields ...Field) {
	if l.enabled(WarnLevel) {
		l.write(WarnLevel, msg, fields)
	}
}

// Error logs a message at the error level with fields.
func (l *BaseLogger) Error(msg string, fields ...Field) {
	if l.enabled(ErrorLevel) {
		l.write(ErrorLevel, msg, fields)
	}
}

// Fatal logs a message at the fatal level and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.write(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *BaseLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(DebugLevel) {
		l.write(DebugLevel, fmt.Sprintf(format, args...), nil)
	}
}

func (l *BaseLogger) Infof(format string, args ...interface{}) {
	if l.enabled(InfoLevel) {
		l.write(InfoLevel, fmt.Sprintf(format, args...), nil)
	}
}

func (l *BaseLogger) Warnf(format string, args ...interface{}) {
	if l.enabled(WarnLevel) {
		l.write(WarnLevel, fmt.Sprintf(format, args...), nil)
	}
}

func (l *BaseLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(ErrorLevel) {
		l.write(ErrorLevel, fmt.Sprintf(format, args...), nil)
	}
}

// With returns a child logger carrying the given fields.
func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	child := &BaseLogger{
		mu:        l.mu,
		level:     l.level,
		formatter: l.formatter,
		outputs:   l.outputs,
		hooks:     l.hooks,
		fields:    make(Fields, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for _, f := range fields {
		child.fields[f.Key] = f.Value
	}
	return child
}

// WithField returns a child logger carrying one extra field.
func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	return l.With(F(key, value))
}

// WithError returns a child logger carrying the error message.
func (l *BaseLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.With(Err(err))
}

// WithContext returns a child logger carrying fields stored in ctx.
func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	return l.With(fieldsFromContext(ctx)...)
}

// WithComponent tags the logger with a component name.
func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

// SetLevel sets the minimum log level.
func (l *BaseLogger) SetLevel(level Level) {
	if l.mu != nil {
		l.mu.Lock()
		defer l.mu.Unlock()
	}
	l.level = level
}

// GetLevel returns the current minimum log level.
func (l *BaseLogger) GetLevel() Level {
	if l.mu != nil {
		l.mu.RLock()
		defer l.mu.RUnlock()
	}
	return l.level
}

// Outputs returns the configured log outputs.
func (l *BaseLogger) Outputs() []Output {
	return l.outputs
}

func (l *BaseLogger) write(level Level, msg string, fields []Field) {
	entryFields := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		entryFields[k] = v
	}
	for _, f := range fields {
		entryFields[f.Key] = f.Value
	}

	entry := &Entry{
		Level:     level,
		Message:   msg,
		Fields:    entryFields,
		Timestamp: time.Now(),
		Caller:    caller(3),
	}

	for _, hook := range l.hooks {
		for _, hookLevel := range hook.Levels() {
			if hookLevel == level {
				if err := hook.Fire(entry); err != nil {
					fmt.Fprintf(os.Stderr, "log hook failed: %v\n", err)
				}
				break
			}
		}
	}

	formatted, err := l.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log format failed: %v\n", err)
		return
	}
	for _, output := range l.outputs {
		if err := output.Write(entry, formatted); err != nil {
			fmt.Fprintf(os.Stderr, "log output failed: %v\n", err)
		}
	}
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}
