package validators

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/google/uuid"
)

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items?limit=40", nil)
	got, err := ParseQueryInt(req, "limit", 25, 1, 100)
	if err != nil || got != 40 {
		t.Fatalf("expected 40, got %d err %v", got, err)
	}

	got, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/items", nil), "limit", 25, 1, 100)
	if err != nil || got != 25 {
		t.Fatalf("expected default 25, got %d err %v", got, err)
	}

	if _, err := ParseQueryInt(httptest.NewRequest(http.MethodGet, "/items?limit=500", nil), "limit", 25, 1, 100); err == nil {
		t.Fatal("expected error for out of range limit")
	}
	if _, err := ParseQueryInt(httptest.NewRequest(http.MethodGet, "/items?limit=ten", nil), "limit", 25, 1, 100); err == nil {
		t.Fatal("expected error for non-numeric limit")
	}
}

func TestParseQueryEnumUsesEnumSpelling(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items?status=under%20repair", nil)
	status, err := ParseQueryEnum(req, "status", enums.ParseItemStatus)
	if err != nil {
		t.Fatalf("parse status: %v", err)
	}
	if status == nil || *status != enums.ItemStatusUnderRepair {
		t.Fatalf("unexpected status %v", status)
	}

	status, err = ParseQueryEnum(httptest.NewRequest(http.MethodGet, "/items", nil), "status", enums.ParseItemStatus)
	if err != nil || status != nil {
		t.Fatalf("expected absent status, got %v err %v", status, err)
	}

	if _, err := ParseQueryEnum(httptest.NewRequest(http.MethodGet, "/items?status=lost", nil), "status", enums.ParseItemStatus); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestParseQueryUUID(t *testing.T) {
	id := uuid.New()
	got, err := ParseQueryUUID(httptest.NewRequest(http.MethodGet, "/assignments?itemId="+id.String(), nil), "itemId")
	if err != nil {
		t.Fatalf("parse uuid: %v", err)
	}
	if got == nil || *got != id {
		t.Fatalf("expected %s, got %v", id, got)
	}

	if _, err := ParseQueryUUID(httptest.NewRequest(http.MethodGet, "/assignments?itemId=nope", nil), "itemId"); err == nil {
		t.Fatal("expected error for malformed uuid")
	}
}
