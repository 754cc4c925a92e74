package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coal/siterisk/internal/model"
)

// JSONFileSink writes each result as an indented JSON document.
type JSONFileSink struct {
	path string
}

// NewJSONFileSink creates a sink writing to path. Parent directories are
// created on write.
func NewJSONFileSink(path string) *JSONFileSink {
	return &JSONFileSink{path: path}
}

// Name implements ResultSink.
func (s *JSONFileSink) Name() string { return "json:" + s.path }

// Write implements ResultSink. The file is replaced on every scan.
func (s *JSONFileSink) Write(ctx context.Context, res *model.ScanResult) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("json: mkdir: %w", err)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("json: create: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("json: encode: %w", err)
	}
	return f.Close()
}

// Close implements ResultSink.
func (s *JSONFileSink) Close(context.Context) error { return nil }
