// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(42), slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := tt.level.toSlogLevel(); got != tt.want {
			t.Errorf("Level(%d).toSlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"Error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// =============================================================================
// Logger Construction Tests
// =============================================================================

func TestNew_ZeroConfig(t *testing.T) {
	logger := New(Config{})
	defer logger.Close()

	if logger.slog == nil {
		t.Fatal("New() returned logger with nil slog")
	}
	if logger.file != nil {
		t.Error("New() opened a log file without LogDir set")
	}
	if logger.exporter != nil {
		t.Error("New() attached an exporter without one configured")
	}
}

func TestNew_CreatesLogFile(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "trackengine",
	})

	logger.Info("file test entry", "key", "value")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%q) error: %v", dir, err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files in log dir, want 1", len(entries))
	}

	name := entries[0].Name()
	wantPrefix := "trackengine_" + time.Now().Format("2006-01-02")
	if !strings.HasPrefix(name, wantPrefix) {
		t.Errorf("log file %q does not start with %q", name, wantPrefix)
	}
	if !strings.HasSuffix(name, ".log") {
		t.Errorf("log file %q does not end with .log", name)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !strings.Contains(string(data), "file test entry") {
		t.Error("log file does not contain the logged message")
	}
	if !strings.Contains(string(data), `"service":"trackengine"`) {
		t.Error("log file entry missing service attribute")
	}
}

func TestNew_DefaultServiceNameInFilename(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{LogDir: dir})
	logger.Info("unnamed service")
	logger.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files, want 1", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "trackengine_") {
		t.Errorf("log file %q should use the trackengine default prefix", entries[0].Name())
	}
}

func TestNew_CreatesMissingLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger := New(Config{LogDir: dir, Service: "trackengine"})
	logger.Info("nested dir entry")
	logger.Close()

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("log dir was not created: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("%q is not a directory", dir)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	defer logger.Close()

	if logger.config.Service != "trackengine" {
		t.Errorf("Default() service = %q, want %q", logger.config.Service, "trackengine")
	}
	if logger.config.Level != LevelInfo {
		t.Errorf("Default() level = %v, want %v", logger.config.Level, LevelInfo)
	}
}

// =============================================================================
// Level Filtering Tests
// =============================================================================

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "trackengine",
		Quiet:   true,
	})

	logger.Debug("debug suppressed")
	logger.Info("info suppressed")
	logger.Warn("warn kept")
	logger.Error("error kept")
	logger.Close()

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file, got %d (err %v)", len(entries), err)
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}

	content := string(data)
	for _, absent := range []string{"debug suppressed", "info suppressed"} {
		if strings.Contains(content, absent) {
			t.Errorf("filtered message %q reached the log file", absent)
		}
	}
	for _, present := range []string{"warn kept", "error kept"} {
		if !strings.Contains(content, present) {
			t.Errorf("message %q missing from the log file", present)
		}
	}
}

// =============================================================================
// With Tests
// =============================================================================

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()

	parent := New(Config{Level: LevelInfo, LogDir: dir, Service: "trackengine", Quiet: true})
	child := parent.With("session_id", "abc-123")

	if child == parent {
		t.Fatal("With() returned the parent logger")
	}
	if child.file != parent.file {
		t.Error("With() should share the parent's file handle")
	}

	child.Info("child entry")
	parent.Info("parent entry")
	parent.Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("got %d log files, want 1", len(entries))
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	content := string(data)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "abc-123") {
		t.Error("child entry missing inherited attribute")
	}
	if strings.Contains(lines[1], "abc-123") {
		t.Error("parent entry should not carry the child's attribute")
	}
}

func TestLogger_Slog(t *testing.T) {
	logger := New(Config{Quiet: true})
	defer logger.Close()

	if logger.Slog() == nil {
		t.Fatal("Slog() returned nil")
	}
}

// =============================================================================
// Exporter Tests
// =============================================================================

// waitForEntries polls the buffered exporter until n entries arrive or the
// deadline passes. Export runs on a goroutine per entry.
func waitForEntries(t *testing.T, exporter *BufferedExporter, n int) []LogEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if entries := exporter.Entries(); len(entries) >= n {
			return entries
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("exporter received %d entries, want %d", len(exporter.Entries()), n)
	return nil
}

func TestLogger_ExporterReceivesEntries(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelInfo,
		Service:  "trackengine",
		Quiet:    true,
		Exporter: exporter,
	})
	defer logger.Close()

	logger.Info("exported entry", "track_id", "t1", "attempts", 2)

	entries := waitForEntries(t, exporter, 1)
	entry := entries[0]

	if entry.Message != "exported entry" {
		t.Errorf("entry message = %q, want %q", entry.Message, "exported entry")
	}
	if entry.Level != LevelInfo {
		t.Errorf("entry level = %v, want %v", entry.Level, LevelInfo)
	}
	if entry.Service != "trackengine" {
		t.Errorf("entry service = %q, want %q", entry.Service, "trackengine")
	}
	if entry.Attrs["track_id"] != "t1" {
		t.Errorf("entry attrs missing track_id: %v", entry.Attrs)
	}
	if entry.Attrs["attempts"] != 2 {
		t.Errorf("entry attrs missing attempts: %v", entry.Attrs)
	}
	if entry.Timestamp.IsZero() {
		t.Error("entry timestamp is zero")
	}
}

func TestLogger_ExporterHonorsLevel(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelWarn,
		Quiet:    true,
		Exporter: exporter,
	})
	defer logger.Close()

	logger.Debug("below threshold")
	logger.Info("also below")
	logger.Warn("at threshold")

	entries := waitForEntries(t, exporter, 1)
	if len(entries) != 1 {
		t.Fatalf("got %d exported entries, want 1", len(entries))
	}
	if entries[0].Message != "at threshold" {
		t.Errorf("exported message = %q, want %q", entries[0].Message, "at threshold")
	}
}

// failingExporter returns an error from every method, to exercise Close's
// error aggregation.
type failingExporter struct{}

func (e *failingExporter) Export(ctx context.Context, entry LogEntry) error {
	return errors.New("export failed")
}

func (e *failingExporter) Flush(ctx context.Context) error { return errors.New("flush failed") }

func (e *failingExporter) Close() error { return errors.New("close failed") }

func TestLogger_CloseReportsExporterFailure(t *testing.T) {
	logger := New(Config{Quiet: true, Exporter: &failingExporter{}})

	err := logger.Close()
	if err == nil {
		t.Fatal("Close() = nil, want flush error")
	}
	if !strings.Contains(err.Error(), "flush exporter") {
		t.Errorf("Close() error = %v, want flush exporter error first", err)
	}
}

func TestNopExporter(t *testing.T) {
	var exporter NopExporter
	ctx := context.Background()

	if err := exporter.Export(ctx, LogEntry{Message: "discarded"}); err != nil {
		t.Errorf("Export() error: %v", err)
	}
	if err := exporter.Flush(ctx); err != nil {
		t.Errorf("Flush() error: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestBufferedExporter_EntriesReturnsCopy(t *testing.T) {
	exporter := NewBufferedExporter()
	_ = exporter.Export(context.Background(), LogEntry{Message: "one"})

	entries := exporter.Entries()
	entries[0].Message = "mutated"

	if exporter.Entries()[0].Message != "one" {
		t.Error("Entries() returned a view into internal storage")
	}
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestLogger_ConcurrentLogging(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Level: LevelInfo, Quiet: true, Exporter: exporter})
	defer logger.Close()

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				logger.Info("concurrent entry", "goroutine", id, "i", i)
			}
		}(g)
	}
	wg.Wait()

	waitForEntries(t, exporter, goroutines*perGoroutine)
}

// =============================================================================
// multiHandler Tests
// =============================================================================

// recordingHandler captures records for multiHandler assertions.
type recordingHandler struct {
	mu      sync.Mutex
	level   slog.Level
	records []slog.Record
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(name string) slog.Handler { return h }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func TestMultiHandler_FansOut(t *testing.T) {
	a := &recordingHandler{level: slog.LevelDebug}
	b := &recordingHandler{level: slog.LevelDebug}
	logger := slog.New(&multiHandler{handlers: []slog.Handler{a, b}})

	logger.Info("fan out")

	if a.count() != 1 || b.count() != 1 {
		t.Errorf("handler counts = %d, %d; want 1, 1", a.count(), b.count())
	}
}

func TestMultiHandler_RespectsPerHandlerLevel(t *testing.T) {
	verbose := &recordingHandler{level: slog.LevelDebug}
	terse := &recordingHandler{level: slog.LevelError}
	logger := slog.New(&multiHandler{handlers: []slog.Handler{verbose, terse}})

	logger.Info("info record")
	logger.Error("error record")

	if verbose.count() != 2 {
		t.Errorf("verbose handler got %d records, want 2", verbose.count())
	}
	if terse.count() != 1 {
		t.Errorf("terse handler got %d records, want 1", terse.count())
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/.trackengine/logs", filepath.Join(home, ".trackengine/logs")},
		{"/var/log/trackengine", "/var/log/trackengine"},
		{"relative/logs", "relative/logs"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := expandPath(tt.input); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestArgsToMap(t *testing.T) {
	got := argsToMap([]any{"key", "value", "count", 3})
	if got["key"] != "value" || got["count"] != 3 {
		t.Errorf("argsToMap() = %v", got)
	}

	// Trailing key without a value is dropped.
	got = argsToMap([]any{"key", "value", "dangling"})
	if len(got) != 1 {
		t.Errorf("argsToMap() with dangling key = %v, want 1 entry", got)
	}

	// Non-string keys are skipped.
	got = argsToMap([]any{42, "value", "key", "kept"})
	if len(got) != 1 || got["key"] != "kept" {
		t.Errorf("argsToMap() with non-string key = %v", got)
	}

	if got := argsToMap(nil); len(got) != 0 {
		t.Errorf("argsToMap(nil) = %v, want empty", got)
	}
}
