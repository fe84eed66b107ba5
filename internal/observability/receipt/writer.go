package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer for receipts
type Writer interface {
	Write(r Receipt) error
	Close() error
}

// Mode write strategy
type Mode string

const (
	// ModeOverwrite truncates the file and writes a single JSON object
	ModeOverwrite Mode = "overwrite"
	// ModeAppend appends one JSON object per line
	ModeAppend Mode = "append"
)

// ParseMode accepts "", overwrite or append
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeOverwrite:
		return ModeOverwrite, nil
	case ModeAppend:
		return ModeAppend, nil
	default:
		return "", fmt.Errorf("receipt mode must be overwrite or append, got %q", s)
	}
}

type fileWriter struct {
	mu   sync.Mutex
	file *os.File
	mode Mode
}

// NewWriter opens path, creating parent directories
func NewWriter(path string, mode string) (Writer, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for receipt: %w", err)
		}
	}

	flag := os.O_CREATE | os.O_TRUNC | os.O_WRONLY
	if m == ModeAppend {
		flag = os.O_CREATE | os.O_APPEND | os.O_WRONLY
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt file: %w", err)
	}
	return &fileWriter{file: f, mode: m}, nil
}

func (w *fileWriter) Write(r Receipt) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if w.mode == ModeAppend {
		data, err = json.Marshal(r)
		data = append(data, '\n')
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	if w.mode == ModeOverwrite {
		// several commands may share one overwrite writer; keep the last receipt
		if err := w.file.Truncate(0); err != nil {
			return fmt.Errorf("failed to write receipt: %w", err)
		}
		if _, err := w.file.Seek(0, 0); err != nil {
			return fmt.Errorf("failed to write receipt: %w", err)
		}
	}
	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	return nil
}

func (w *fileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
