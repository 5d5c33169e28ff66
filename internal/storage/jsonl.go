package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolScope/internal/model"
)

// JsonlSink archives logs and decode failures as JSON lines in two files.
// An empty path disables that stream.
type JsonlSink struct {
	logPath   string
	errorPath string
	mu        sync.Mutex
}

func NewJsonlSink(logPath, errorPath string) *JsonlSink {
	return &JsonlSink{logPath: logPath, errorPath: errorPath}
}

// PutLogBatch appends a batch of log records.
func (s *JsonlSink) PutLogBatch(logs []model.LogRecord) error {
	if len(logs) == 0 || s.logPath == "" {
		return nil
	}
	lines := make([]any, 0, len(logs))
	for _, record := range logs {
		lines = append(lines, record)
	}
	return s.appendLines(s.logPath, lines)
}

// PutDecodeErrors appends decode failures.
func (s *JsonlSink) PutDecodeErrors(errs []model.DecodeError) error {
	if len(errs) == 0 || s.errorPath == "" {
		return nil
	}
	lines := make([]any, 0, len(errs))
	for _, record := range errs {
		lines = append(lines, record)
	}
	return s.appendLines(s.errorPath, lines)
}

func (s *JsonlSink) appendLines(path string, records []any) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
