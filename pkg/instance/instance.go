package instance

import "os"

// GetID returns the process instance identifier used in log fields. Platform dyno names
// win over WORKER_ID; local runs fall back to "<kind>-local".
func GetID(kind string) string {
	for _, key := range []string{"DYNO", "WORKER_ID"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if kind == "" {
		kind = "escrow"
	}
	return kind + "-local"
}
