package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/notes/internal/config"
	"github.com/vango-dev/notes/internal/errors"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRoutesCommand(t *testing.T) {
	out, err := run(t, "routes")
	if err != nil {
		t.Fatalf("routes error: %v", err)
	}
	for _, want := range []string{"/note/:id", "NoteDetails", "/analytics", "params"} {
		if !strings.Contains(out, want) {
			t.Errorf("routes output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveCommand(t *testing.T) {
	cfg := emptyConfig(t)

	out, err := run(t, "--config", cfg, "resolve", "/edit/9")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	var got resolveOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.View != "NoteForm" || got.Props["id"] != "9" {
		t.Errorf("resolve = %+v", got)
	}

	_, err = run(t, "--config", cfg, "resolve", "/nowhere")
	if errors.CodeOf(err) != "N401" {
		t.Errorf("unmatched error = %v, want N401", err)
	}

	_, err = run(t, "--config", cfg, "resolve", "http://evil.test/")
	if errors.CodeOf(err) != "N400" {
		t.Errorf("absolute URL error = %v, want N400", err)
	}
}

func TestResolveHashMode(t *testing.T) {
	t.Setenv("NOTES_HISTORY", "hash")
	out, err := run(t, "--config", emptyConfig(t), "resolve", "#/note/3")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if !strings.Contains(out, `"location": "/#/note/3"`) {
		t.Errorf("hash location missing:\n%s", out)
	}
}

func TestExportRequiresBucket(t *testing.T) {
	_, err := run(t, "--config", emptyConfig(t), "export")
	if errors.CodeOf(err) != "N503" {
		t.Errorf("error = %v, want N503", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil || !strings.HasPrefix(out, "notes dev") {
		t.Errorf("version = %q, %v", out, err)
	}
}

func TestSetupLoggerRejectsBadLevel(t *testing.T) {
	cfg := config.New()
	cfg.LogLevel = "loud"
	if _, err := setupLogger(cfg); errors.CodeOf(err) != "N101" {
		t.Errorf("error = %v, want N101", err)
	}

	cfg.LogLevel = "warn"
	logger, err := setupLogger(cfg)
	if err != nil || logger == nil {
		t.Fatalf("setupLogger() = %v, %v", logger, err)
	}
}

func TestServeRejectsBadCacheTTL(t *testing.T) {
	cfg := config.New()
	cfg.Database = ":memory:"
	cfg.Analytics.CacheTTL = "soon"
	if err := runServe(context.Background(), cfg); errors.CodeOf(err) != "N101" {
		t.Errorf("error = %v, want N101", err)
	}
}
