package pagination

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-4, DefaultLimit},
		{10, 10},
		{MaxLimit + 50, MaxLimit},
	}
	for _, tc := range cases {
		if got := NormalizeLimit(tc.in); got != tc.want {
			t.Errorf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("LimitWithBuffer(10) = %d, want 11", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC),
		ID:        uuid.New(),
	}

	token := EncodeCursor(original)
	if strings.ContainsAny(token, "=+/") {
		t.Fatalf("cursor is not raw url-safe base64: %q", token)
	}

	parsed, err := ParseCursor(token)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected cursor")
	}
	if !original.CreatedAt.Equal(parsed.CreatedAt) || original.ID != parsed.ID {
		t.Fatalf("cursor mismatch: want %+v got %+v", original, *parsed)
	}
}

func TestParseCursorBlankIsFirstPage(t *testing.T) {
	parsed, err := ParseCursor("   ")
	if err != nil || parsed != nil {
		t.Fatalf("expected nil cursor, got %v err %v", parsed, err)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"!!!", "bm8tc2VwYXJhdG9y", "bm90LWEtdGltZXx4"} {
		if _, err := ParseCursor(token); err == nil {
			t.Errorf("expected error for %q", token)
		}
	}
}

func TestTrim(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Cursor, 4)
	for i := range rows {
		rows[i] = Cursor{CreatedAt: base.Add(-time.Duration(i) * time.Hour), ID: uuid.New()}
	}
	key := func(c Cursor) Cursor { return c }

	page, next := Trim(rows, 3, key)
	if len(page) != 3 || next == "" {
		t.Fatalf("expected 3 rows and a cursor, got %d rows cursor %q", len(page), next)
	}
	cursor, err := ParseCursor(next)
	if err != nil {
		t.Fatalf("parse next: %v", err)
	}
	if cursor.ID != rows[2].ID {
		t.Fatalf("next cursor should point at the last row shown, got %s", cursor.ID)
	}

	page, next = Trim(rows[:3], 3, key)
	if len(page) != 3 || next != "" {
		t.Fatalf("expected final page without cursor, got %d rows cursor %q", len(page), next)
	}
}
