package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("FRAUDSHIELD_API_KEY", "")
	t.Setenv("FRAUDSHIELD_DB_PATH", "")
	t.Setenv("FRAUDSHIELD_CONFIG", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestProtectionAndStatusCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "settings.db")

	if out := execute(t, "--db", db, "protection", "off"); !strings.Contains(out, "protection off") {
		t.Fatalf("unexpected output %q", out)
	}

	var st storedStatus
	if err := json.Unmarshal([]byte(execute(t, "--db", db, "status", "--format", "json")), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.ProtectionEnabled || st.Storage != db {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestScanCommandWritesAnnotatedPage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "page.html")
	output := filepath.Join(dir, "out.html")
	cfgPath := filepath.Join(dir, "config.yaml")

	page := `<html><body><p>URGENT: verify your account immediately or it will be suspended. Click here to log in.</p></body></html>`
	if err := os.WriteFile(input, []byte(page), 0o600); err != nil {
		t.Fatalf("write page: %v", err)
	}
	cfg := "platforms:\n  generic:\n    settleDelay: 1ms\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	execute(t, "--config", cfgPath, "--db", filepath.Join(dir, "s.db"), "--log-level", "error",
		"scan", "--input", input, "--url", "https://example.org/post", "--out", output)

	raw, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(raw), "fraudshield-warning") {
		t.Fatalf("expected an alert in the output:\n%s", raw)
	}
}
