package suite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSuite(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write suite: %v", err)
	}
	return p
}

func TestLoad_AppliesDefaults(t *testing.T) {
	p := writeSuite(t, "smoke.yaml", `
name: api smoke
defaults:
  maxDurationMs: 1500
checks:
  - url: https://api.example.com/healthz
    critical: true
  - id: users
    name: list users
    url: https://api.example.com/users
    method: get
    expectedStatus: 401
    maxDurationMs: 800
    headers:
      Authorization: Bearer tok
`)

	s, err := Load(p, 10*time.Second)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "api smoke" || len(s.Checks) != 2 {
		t.Fatalf("bad suite: %+v", s)
	}

	first := s.Checks[0]
	if first.ID != "check-1" || first.Name != "check-1" {
		t.Fatalf("positional id not applied: %+v", first)
	}
	if first.Method != "GET" || first.ExpectedStatus != 200 || first.MaxDurationMS != 1500 {
		t.Fatalf("defaults not applied: %+v", first)
	}
	if !first.Critical {
		t.Fatalf("critical flag lost: %+v", first)
	}

	second := s.Checks[1]
	if second.ID != "users" || second.Method != "GET" || second.ExpectedStatus != 401 || second.MaxDurationMS != 800 {
		t.Fatalf("explicit fields mangled: %+v", second)
	}
	if second.Headers["Authorization"] != "Bearer tok" {
		t.Fatalf("headers lost: %+v", second.Headers)
	}
}

func TestLoad_FallbackDeadlineWhenNoSuiteDefault(t *testing.T) {
	p := writeSuite(t, "s.yaml", `
checks:
  - url: https://example.com/
`)
	s, err := Load(p, 4*time.Second)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Checks[0].MaxDurationMS != 4000 {
		t.Fatalf("fallback deadline not applied: %+v", s.Checks[0])
	}
}

func TestLoad_RejectsDuplicateIDs(t *testing.T) {
	p := writeSuite(t, "s.yaml", `
checks:
  - id: same
    url: https://example.com/a
  - id: same
    url: https://example.com/b
`)
	if _, err := Load(p, time.Second); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("want duplicate id error, got %v", err)
	}
}

func TestLoad_RejectsMissingURL(t *testing.T) {
	p := writeSuite(t, "s.yaml", `
checks:
  - name: no url here
`)
	if _, err := Load(p, time.Second); err == nil || !strings.Contains(err.Error(), "url") {
		t.Fatalf("want url error, got %v", err)
	}
}

func TestLoad_RejectsNegativeDeadline(t *testing.T) {
	p := writeSuite(t, "s.yaml", `
checks:
  - url: https://example.com/
    maxDurationMs: -5
`)
	if _, err := Load(p, time.Second); err == nil || !strings.Contains(err.Error(), "maxDurationMs") {
		t.Fatalf("want deadline error, got %v", err)
	}
}

func TestLoad_RejectsEmptySuite(t *testing.T) {
	p := writeSuite(t, "s.yaml", `name: empty`)
	if _, err := Load(p, time.Second); err == nil {
		t.Fatalf("want error for empty suite")
	}
}

func TestLoad_JSONSuite(t *testing.T) {
	p := writeSuite(t, "s.json", `{
  "name": "json smoke",
  "checks": [
    {"id": "h", "url": "https://example.com/healthz", "expectedStatus": 200, "maxDurationMs": 1000}
  ]
}`)
	s, err := Load(p, time.Second)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "json smoke" || s.Checks[0].ID != "h" {
		t.Fatalf("json suite mangled: %+v", s)
	}
}
