package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDirMergesInFilenameOrder(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "20-extra.json", `{"model_profiles":{"mistral":{"model_id":"mistralai/Mistral-7B"}},"default_profile":"mistral"}`)
	writeTempFile(t, dir, "10-base.yaml", "model_profiles:\n  llama:\n    model_id: meta/llama\ndefault_profile: llama\nhardware_profiles:\n  a10: {vram_gb: 24}\n")
	writeTempFile(t, dir, "README.md", "ignored")
	writeTempFile(t, dir, ".hidden.yaml", "not: [valid")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if diff := cmp.Diff([]string{"llama", "mistral"}, c.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if c.DefaultID() != "llama" {
		t.Fatalf("expected first default to win, got %q", c.DefaultID())
	}
	if _, ok := c.HardwareProfiles()["a10"]; !ok {
		t.Fatalf("hardware_profiles not merged")
	}
	if c.Source() == "" || strings.HasSuffix(c.Source(), ".yaml") {
		t.Fatalf("expected directory source, got %q", c.Source())
	}
}

func TestLoadDirDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.yaml", "model_profiles:\n  llama:\n    model_id: meta/llama\n")
	writeTempFile(t, dir, "b.toml", "[model_profiles.llama]\nmodel_id = \"meta/llama-2\"\n")

	_, err := LoadDir(dir)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !strings.Contains(err.Error(), `"llama" already defined`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadDirEmpty(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "notes.txt", "x")
	if _, err := LoadDir(dir); err == nil {
		t.Fatalf("expected error for directory without documents")
	}
}
