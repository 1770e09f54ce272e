package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWrite_JSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Close()

	fields := map[string]any{"layer_key": "ROADS"}
	Info("layer_created", fields)

	if _, ok := fields["ts"]; ok {
		t.Fatal("caller map must not be mutated")
	}
	line := strings.TrimSpace(buf.String())
	var got map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("invalid json line %q: %v", line, err)
	}
	if got["msg"] != "layer_created" || got["level"] != "info" || got["layer_key"] != "ROADS" {
		t.Fatalf("unexpected entry: %v", got)
	}
}

func TestDebug_Disabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Close()

	SetDebug(false)
	Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("debug written while disabled: %q", buf.String())
	}
	SetDebug(true)
	defer SetDebug(false)
	Debug("shown", nil)
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Fatalf("debug not written: %q", buf.String())
	}
}
