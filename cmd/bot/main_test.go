package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/edgard/file2link/internal/config"
)

func TestNewAppLogger_TagsSessionName(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Logger:   config.LoggerConfig{Level: "info", JSON: true},
		Telegram: config.TelegramConfig{SessionName: "file2link-eu"},
	}

	var buf bytes.Buffer
	newAppLogger(&buf, cfg).Info("hello")
	newAppLogger(&buf, cfg).Debug("dropped")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if record["bot"] != "file2link-eu" {
		t.Errorf("bot attribute = %v, want %q", record["bot"], "file2link-eu")
	}
	if record["msg"] != "hello" {
		t.Errorf("msg = %v, want %q", record["msg"], "hello")
	}
}
