package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("VIMEO_DL_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestRunRejectsMissingShape(t *testing.T) {
	isolateConfig(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"vimeo-dl", "-p", "https://example.com/x/y/z/w/playlist.json", "-o", "clip"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d (stderr %q)", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "specify a mode") {
		t.Fatalf("expected a usage error, got %q", stderr.String())
	}
}

func TestRunJSONResult(t *testing.T) {
	isolateConfig(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"vimeo-dl", "--json", "-a", "-o", "clip"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	var payload struct {
		Error    string `json:"error"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("decode %q: %v", stdout.String(), err)
	}
	if payload.Error == "" || payload.Category != "invalid_args" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	isolateConfig(t)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"vimeo-dl", "--no-such-flag"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRunHelp(t *testing.T) {
	isolateConfig(t)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"vimeo-dl", "--help"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), "jsonPlaylist") {
		t.Fatalf("help output missing flags: %q", stdout.String())
	}
}
