package instance

import "testing"

func TestGetIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("WORKER_ID", "worker-7")
	if got := GetID("api"); got != "web.1" {
		t.Fatalf("expected dyno id, got %q", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("WORKER_ID", "worker-7")
	if got := GetID("cron-worker"); got != "worker-7" {
		t.Fatalf("expected worker id, got %q", got)
	}

	t.Setenv("WORKER_ID", "")
	if got := GetID("cron-worker"); got != "cron-worker-local" {
		t.Fatalf("expected local id, got %q", got)
	}
	if got := GetID(""); got != "escrow-local" {
		t.Fatalf("expected default local id, got %q", got)
	}
}
