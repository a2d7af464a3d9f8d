package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ConsoleOutput writes log entries to stdout/stderr or a custom writer.
type ConsoleOutput struct {
	mu        sync.Mutex
	useStderr bool
	writer    io.Writer
}

// Write writes the formatted entry.
func (o *ConsoleOutput) Write(entry *Entry, formattedEntry []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	writer := o.writer
	if writer == nil {
		writer = os.Stdout
		if o.useStderr || entry.Level >= ErrorLevel {
			writer = os.Stderr
		}
	}
	_, err := writer.Write(formattedEntry)
	return err
}

// Close is a no-op for console output.
func (o *ConsoleOutput) Close() error {
	return nil
}

// ConsoleOutputOption configures a ConsoleOutput.
type ConsoleOutputOption func(*ConsoleOutput)

// WithStderr sends every entry to stderr, keeping stdout free for command output.
func WithStderr() ConsoleOutputOption {
	return func(o *ConsoleOutput) {
		o.useStderr = true
	}
}

// WithCustomWriter sends every entry to w.
func WithCustomWriter(w io.Writer) ConsoleOutputOption {
	return func(o *ConsoleOutput) {
		o.writer = w
	}
}

// NewConsoleOutput creates a new ConsoleOutput with the given options.
func NewConsoleOutput(options ...ConsoleOutputOption) *ConsoleOutput {
	o := &ConsoleOutput{}
	for _, option := range options {
		option(o)
	}
	return o
}

// FileOutput appends log entries to a file. When MaxSize is exceeded the
// file is moved aside to <name>.1, replacing any previous one.
type FileOutput struct {
	mu          sync.Mutex
	file        *os.File
	filename    string
	maxSize     int64
	currentSize int64
}

// NewFileOutput creates a FileOutput. A maxSize of zero disables rotation.
func NewFileOutput(filename string, maxSize int64) *FileOutput {
	return &FileOutput{filename: filename, maxSize: maxSize}
}

// Write appends the formatted entry to the file.
func (o *FileOutput) Write(_ *Entry, formattedEntry []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		if err := o.open(); err != nil {
			return err
		}
	}
	if o.maxSize > 0 && o.currentSize+int64(len(formattedEntry)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return err
		}
	}
	n, err := o.file.Write(formattedEntry)
	o.currentSize += int64(n)
	return err
}

// Close closes the underlying file.
func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}

func (o *FileOutput) open() error {
	if err := os.MkdirAll(filepath.Dir(o.filename), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(o.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	o.file = file
	o.currentSize = info.Size()
	return nil
}

func (o *FileOutput) rotate() error {
	if err := o.file.Close(); err != nil {
		return err
	}
	o.file = nil
	if err := os.Rename(o.filename, o.filename+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}
	return o.open()
}
