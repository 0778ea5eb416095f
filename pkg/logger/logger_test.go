package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	log := New()
	if log == nil {
		t.Fatal("New() returned nil logger")
	}

	if log.GetLevel() != INFO {
		t.Errorf("Expected default level INFO, got %v", log.GetLevel())
	}
}

func TestNewWithConfig(t *testing.T) {
	buf := bytes.NewBuffer(nil)

	log := NewWithConfig(Config{
		Level:     DEBUG,
		Output:    buf,
		Format:    "text",
		Component: "client",
	})

	log.Debug("calling simulator", "method", "Step")

	output := buf.String()
	if !strings.Contains(output, "[DEBUG] [client] calling simulator | method=Step") {
		t.Errorf("unexpected log line: %q", output)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	log := NewWithConfig(Config{Level: WARN, Output: buf})

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("messages below the level were written")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn message missing")
	}
}

func TestDerivedLoggerSharesLevel(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	parent := NewWithConfig(Config{Level: ERROR, Output: buf})
	child := parent.WithComponent("poller")

	parent.SetLevel(DEBUG)
	child.Debug("visible")

	if !strings.Contains(buf.String(), "[poller] visible") {
		t.Errorf("child did not follow parent level: %q", buf.String())
	}
}

func TestWithFieldsDoesNotModifyParent(t *testing.T) {
	log := New()

	newLog := log.WithFields("sink", "output", "count", 3).WithFields("odd")
	if len(newLog.fields) != 2 {
		t.Errorf("Expected 2 fields, got %d", len(newLog.fields))
	}
	if len(log.fields) != 0 {
		t.Error("Original logger was modified")
	}
}

func TestFieldsAreSorted(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	log := NewWithConfig(Config{Level: INFO, Output: buf})

	log.Info("read", "z", 1, "a", "two words", "err", errors.New("bad"), "took", 2*time.Second)

	want := `| a="two words" err="bad" took=2s z=1`
	if !strings.Contains(buf.String(), want) {
		t.Errorf("expected %q in %q", want, buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	log := NewWithConfig(Config{Level: INFO, Output: buf, Format: "json", Component: "recorder"})

	log.Info("flushed", "rows", 12, "err", errors.New("none"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "flushed" || entry["component"] != "recorder" || entry["level"] != "INFO" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["rows"] != float64(12) || entry["err"] != "none" {
		t.Errorf("unexpected fields: %v", entry)
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("nobody hears this")
	if log.GetLevel() != OFF {
		t.Errorf("expected OFF, got %v", log.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"", INFO, false},
		{"warning", WARN, false},
		{"error", ERROR, false},
		{"off", OFF, false},
		{"loud", INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
