//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := doGet(t, path, nil)
			defer resp.Body.Close()

			expectStatus(t, resp, http.StatusOK)
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q, want application/json", ct)
			}

			body := decodeJSON[healthResponse](t, resp)
			if body.Status != "ok" {
				t.Fatalf("expected status ok, got %q (checks: %v)", body.Status, body.Checks)
			}
		})
	}
}
