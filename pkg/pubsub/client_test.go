package pubsub

import (
	"context"
	"slices"
	"testing"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"proj", "escrow-settlement-events", "projects/proj/topics/escrow-settlement-events"},
		{"proj", "  escrow-payout-events ", "projects/proj/topics/escrow-payout-events"},
		{"other", "projects/proj/topics/full", "projects/proj/topics/full"},
		{"", "escrow-settlement-events", ""},
		{"proj", "   ", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestResourceNamesDedupesAndSkipsBlank(t *testing.T) {
	names, err := resourceNames("proj", []string{"settle", " ", "payout", "projects/proj/topics/settle"})
	if err != nil {
		t.Fatalf("resource names: %v", err)
	}
	want := []string{"projects/proj/topics/settle", "projects/proj/topics/payout"}
	if !slices.Equal(names, want) {
		t.Fatalf("unexpected names %v", names)
	}
	if _, err := resourceNames("proj", []string{" "}); err != errNoTopics {
		t.Fatalf("expected no topics error, got %v", err)
	}
}

func TestProjectOf(t *testing.T) {
	if got := projectOf("projects/escrow-prod/topics/settle"); got != "escrow-prod" {
		t.Fatalf("unexpected project %q", got)
	}
	if got := projectOf("settle"); got != "" {
		t.Fatalf("expected empty project, got %q", got)
	}
}

func TestClientOptionsPrefersInlineCredentials(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}); len(opts) != 1 {
		t.Fatalf("expected one option, got %d", len(opts))
	}
}

func TestNewClientRequiresProjectAndTopics(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, []string{"settle"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "proj"}, nil, nil); err != errNoTopics {
		t.Fatalf("expected no topics error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("topic") != nil {
		t.Fatalf("expected nil publisher")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
