package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/assettrack-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		name      string
		projectID string
		kind      string
		input     string
		want      string
	}{
		{"short topic", "acme", "topics", "asset-lifecycle-events", "projects/acme/topics/asset-lifecycle-events"},
		{"full topic kept", "acme", "topics", "projects/other/topics/t1", "projects/other/topics/t1"},
		{"short subscription", "acme", "subscriptions", " sub-1 ", "projects/acme/subscriptions/sub-1"},
		{"wrong kind prefixed", "acme", "subscriptions", "projects/other/topics/t1", "projects/acme/subscriptions/projects/other/topics/t1"},
		{"blank name", "acme", "topics", "  ", ""},
		{"missing project", "", "topics", "t1", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resourceName(tc.projectID, tc.kind, tc.input); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{AssetEventsTopic: "t"}, nil)
	if !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "acme"}, config.PubSubConfig{}, nil)
	if !errors.Is(err, errTopicRequired) {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.AssetEventsPublisher() != nil {
		t.Fatal("expected nil asset events publisher")
	}
	if c.Publisher("t1") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error on nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
}

func TestClientOptionsCredentialPrecedence(t *testing.T) {
	if got := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}); len(got) != 1 {
		t.Fatalf("expected inline json only, got %d options", len(got))
	}
	if got := clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}); len(got) != 1 {
		t.Fatalf("expected credentials file option, got %d options", len(got))
	}
	if got := clientOptions(config.GCPConfig{CredentialsJSON: "  "}); len(got) != 0 {
		t.Fatalf("expected no options for blank json, got %d", len(got))
	}
}
