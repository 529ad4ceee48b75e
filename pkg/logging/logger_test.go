package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pickware/shopware-platform-sub008/pkg/config"
)

// setupBuffered runs Setup on the log section cfg and captures the output.
func setupBuffered(t *testing.T, cfg config.Log) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	c := FromConfig(cfg)
	c.Output = buf
	Setup(c)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
	return buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line %q is not JSON: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name       string
		input      config.Log
		wantLevel  LogLevel
		wantPretty bool
	}{
		{name: "empty level keeps default", input: config.Log{}, wantLevel: LevelInfo},
		{name: "debug pretty", input: config.Log{Level: "debug", Pretty: true}, wantLevel: LevelDebug, wantPretty: true},
		{name: "warn", input: config.Log{Level: "warn"}, wantLevel: LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromConfig(tt.input)
			if cfg.Level != tt.wantLevel {
				t.Errorf("FromConfig().Level = %q, want %q", cfg.Level, tt.wantLevel)
			}
			if cfg.Pretty != tt.wantPretty {
				t.Errorf("FromConfig().Pretty = %v, want %v", cfg.Pretty, tt.wantPretty)
			}
			if cfg.Output == nil {
				t.Error("FromConfig().Output is nil")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	buf := setupBuffered(t, config.Log{Level: "info"})

	for _, component := range []string{"http-cache", "variants", "storefront"} {
		logger := NewLogger(component)
		logger.Info().Str("path", "/listing").Msg("Response cacheable")
	}

	entries := decodeLines(t, buf)
	if len(entries) != 3 {
		t.Fatalf("got %d log lines, want 3", len(entries))
	}
	for i, want := range []string{"http-cache", "variants", "storefront"} {
		if entries[i]["component"] != want {
			t.Errorf("line %d component = %v, want %q", i, entries[i]["component"], want)
		}
		if entries[i]["path"] != "/listing" {
			t.Errorf("line %d path = %v, want /listing", i, entries[i]["path"])
		}
		if _, ok := entries[i]["time"]; !ok {
			t.Errorf("line %d has no timestamp", i)
		}
	}
}

func TestSetup_DecisionLogsFollowLevel(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{level: "debug", wantDebug: true},
		{level: "info", wantDebug: false},
		{level: "warn", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := setupBuffered(t, config.Log{Level: tt.level})
			logger := NewLogger("http-cache")

			logger.Debug().Str("outcome", "no_directive").Msg("Response not cached")
			logger.Warn().Msg("Cart unavailable, serving uncached")

			output := buf.String()
			if got := strings.Contains(output, "Response not cached"); got != tt.wantDebug {
				t.Errorf("debug decision logged = %v, want %v", got, tt.wantDebug)
			}
			if !strings.Contains(output, "Cart unavailable") {
				t.Error("warning missing from output")
			}
		})
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := setupBuffered(t, config.Log{Level: "info", Pretty: true})

	logger := NewLogger("variants")
	logger.Info().Msg("Variant observations flushed")

	output := buf.String()
	if !strings.Contains(output, "Variant observations flushed") {
		t.Errorf("pretty output missing message: %q", output)
	}
	if json.Valid([]byte(strings.TrimSpace(output))) {
		t.Error("pretty output should not be JSON")
	}
}

func TestSetup_NilOutputFallsBack(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	// Must not panic on a zero Output.
	logger := Setup(Config{Level: LevelError})
	logger.Debug().Msg("discarded")
}
