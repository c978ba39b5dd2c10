package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/rs/zerolog"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log entry %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithOperation(ctx, "assignment.return")

	log.Error(ctx, "boom", errors.New("boom"))

	entry := decodeEntry(t, buf)
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request_id %v", entry["request_id"])
	}
	if entry["operation"] != "assignment.return" {
		t.Fatalf("unexpected operation %v", entry["operation"])
	}
	if entry["error"] != "boom" {
		t.Fatalf("unexpected error %v", entry["error"])
	}
	if _, ok := entry["stack"]; !ok {
		t.Fatal("expected stack on error entry")
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if _, ok := decodeEntry(t, buf)["stack"]; !ok {
		t.Fatal("expected stack when WarnStack is set")
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	if _, ok := decodeEntry(t, buf)["stack"]; ok {
		t.Fatal("unexpected stack when WarnStack is off")
	}
}

func TestWithFieldsDoesNotLeakIntoParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := log.WithUserID(context.Background(), "user-1")
	_ = log.WithFields(parent, map[string]any{"item_id": "item-9"})

	log.Info(parent, "parent")
	entry := decodeEntry(t, buf)
	if entry["user_id"] != "user-1" {
		t.Fatalf("unexpected user_id %v", entry["user_id"])
	}
	if _, ok := entry["item_id"]; ok {
		t.Fatal("child field leaked into parent context")
	}
}

func TestParseLevelDefaults(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"invalid": zerolog.InfoLevel,
		" WARN ":  zerolog.WarnLevel,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestLoggerErrorTagsDomainCodeWithoutStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	err := fmt.Errorf("assign: %w", pkgerrors.New(pkgerrors.CodeItemNotAvailable, "item is Under Repair"))
	log.Error(context.Background(), "assignment.rejected", err)

	entry := decodeEntry(t, buf)
	if entry["error_code"] != string(pkgerrors.CodeItemNotAvailable) {
		t.Fatalf("unexpected error_code %v", entry["error_code"])
	}
	if _, ok := entry["stack"]; ok {
		t.Fatal("domain errors should not carry a stack")
	}

	buf.Reset()
	log.Error(context.Background(), "db.down", pkgerrors.New(pkgerrors.CodeDependency, "postgres unavailable"))
	entry = decodeEntry(t, buf)
	if entry["error_code"] != string(pkgerrors.CodeDependency) {
		t.Fatalf("unexpected error_code %v", entry["error_code"])
	}
	if _, ok := entry["stack"]; !ok {
		t.Fatal("dependency errors should carry a stack")
	}
}

func TestLoggerRedactsCredentials(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	ctx := log.WithFields(context.Background(), map[string]any{
		"email":         "ana@example.com",
		"password":      "hunter22",
		"refresh_token": "r-1",
	})
	ctx = log.WithField(ctx, "tempPassword", "Temp#123")
	log.Info(ctx, "user.created")

	entry := decodeEntry(t, buf)
	if entry["email"] != "ana@example.com" {
		t.Fatalf("unexpected email %v", entry["email"])
	}
	for _, key := range []string{"password", "refresh_token", "tempPassword"} {
		if entry[key] != "[redacted]" {
			t.Errorf("%s not redacted: %v", key, entry[key])
		}
	}
}

func TestLoggerDebugRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %s", buf.String())
	}

	verbose := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	verbose.Debug(context.Background(), "shown")
	if msg := decodeEntry(t, buf)["message"]; msg != "shown" {
		t.Fatalf("unexpected message %v", msg)
	}
}
