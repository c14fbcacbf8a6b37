//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHealthProbes(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := httpClient.Get(baseURL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}

		var body struct {
			Status string `json:"status"`
		}
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}

		if resp.StatusCode != http.StatusOK || body.Status != "ok" {
			t.Fatalf("%s: status %d, body %q", path, resp.StatusCode, body.Status)
		}
	}
}
