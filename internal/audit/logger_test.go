package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	err := logger.Log(Entry{
		ScanID:    "scan-1",
		Event:     EventHighRisk,
		Component: "mod_forum",
		Score:     72,
		Detail:    map[string]any{"level": "high"},
	})
	if err != nil {
		t.Fatalf("failed to log: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "scan-1") {
		t.Error("expected scan_id in output")
	}
	if !strings.Contains(output, EventHighRisk) {
		t.Error("expected event in output")
	}

	// Verify it's valid JSON
	var entry Entry
	if err := json.Unmarshal([]byte(output), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry.Component != "mod_forum" {
		t.Errorf("expected component mod_forum, got %s", entry.Component)
	}
	if entry.Score != 72 {
		t.Errorf("expected score 72, got %d", entry.Score)
	}
}

func TestLogger_TimestampAutoFill(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	before := time.Now().UTC()
	logger.Log(Entry{ScanID: "ts-test", Event: EventScanStarted})
	after := time.Now().UTC()

	var entry Entry
	json.Unmarshal(buf.Bytes(), &entry)

	if entry.Timestamp.Before(before) || entry.Timestamp.After(after) {
		t.Error("auto-filled timestamp is out of range")
	}
}

func TestLogger_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(Entry{ScanID: "c", Event: EventPluginScored, Component: "mod_x"})
		}()
	}
	wg.Wait()

	lines := 0
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 50 {
		t.Errorf("expected 50 lines, got %d", lines)
	}
}

func TestFileLogger_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	for i := 0; i < 2; i++ {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to open file logger: %v", err)
		}
		logger.Log(Entry{ScanID: "f", Event: EventScanCompleted})
		if err := logger.Close(); err != nil {
			t.Fatalf("failed to close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	if err := logger.Log(Entry{ScanID: "nop", Event: EventAlert}); err != nil {
		t.Errorf("nop logger should not error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("nop logger close should not error: %v", err)
	}
}
