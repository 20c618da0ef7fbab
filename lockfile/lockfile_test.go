package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tatoclean/bundlekit/bundle"
)

const esTarget = "src/locales/es/translation.json"

func newLock() *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}
}

func TestHashDeterministic(t *testing.T) {
	h1 := Hash("hello world")
	h2 := Hash("hello world")
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	h3 := Hash("different")
	if h1 == h3 {
		t.Errorf("Hash collision: %s == %s", h1, h3)
	}
}

func TestLoadNonExistent(t *testing.T) {
	lf, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if len(lf.Checksums) != 0 {
		t.Errorf("Checksums not empty: %v", lf.Checksums)
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("version: 99\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for newer lock version")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lf.Update(esTarget, "legal", `{"menu_title":"Legal"}`)
	lf.Update(esTarget, "legal.privacy", `{}`)
	lf.Update("src/locales/en/translation.json", "legal", `{"menu_title":"Legal"}`)

	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Lock file not created at %s", path)
	}

	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}

	targets, keys := lf2.Stats()
	if targets != 2 {
		t.Errorf("targets = %d, want 2", targets)
	}
	if keys != 3 {
		t.Errorf("keys = %d, want 3", keys)
	}
	if lf2.IsChanged(esTarget, "legal", `{"menu_title":"Legal"}`) {
		t.Error("reloaded entry should not be changed")
	}
}

func TestIsChanged(t *testing.T) {
	lf := newLock()

	if !lf.IsChanged(esTarget, "legal", "v1") {
		t.Error("new entry should be changed")
	}

	lf.Update(esTarget, "legal", "v1")
	if lf.IsChanged(esTarget, "legal", "v1") {
		t.Error("unchanged entry should not be changed")
	}

	if !lf.IsChanged(esTarget, "legal", "v2") {
		t.Error("modified entry should be changed")
	}

	if !lf.IsChanged("src/locales/en/translation.json", "legal", "v1") {
		t.Error("different target should be changed")
	}
}

func TestValueContentIsCanonical(t *testing.T) {
	a, _ := bundle.Parse([]byte("{\n  \"b\": 1,\n  \"a\": \"ñ\"\n}"))
	b, _ := bundle.Parse([]byte(`{"b":1,"a":"ñ"}`))

	ca, err := ValueContent(a)
	if err != nil {
		t.Fatalf("ValueContent: %v", err)
	}
	cb, _ := ValueContent(b)
	if ca != cb {
		t.Fatalf("whitespace changed content: %q vs %q", ca, cb)
	}
}

func TestClean(t *testing.T) {
	lf := newLock()

	lf.Update(esTarget, "legal", "x")
	lf.Update(esTarget, "legal.terms", "x")
	lf.Update(esTarget, "legal.old", "x")

	lf.Clean(esTarget, []string{"legal", "legal.terms"})

	if lf.IsChanged(esTarget, "legal", "x") {
		t.Error("legal should still be tracked")
	}
	if !lf.IsChanged(esTarget, "legal.old", "x") {
		t.Error("legal.old should be removed by Clean")
	}

	lf.Clean(esTarget, nil)
	if targets, _ := lf.Stats(); targets != 0 {
		t.Errorf("targets after cleaning everything = %d, want 0", targets)
	}
}

func TestTargetsAndSummary(t *testing.T) {
	lf := newLock()

	if lf.Summary() != "empty" {
		t.Errorf("empty summary = %q, want %q", lf.Summary(), "empty")
	}

	lf.Update(TargetKey(filepath.Join("src", "locales", "es", "translation.json")), "legal", "x")
	lf.Update(TargetKey(filepath.Join("src", "locales", "en", "translation.json")), "legal", "x")

	targets := lf.Targets()
	expected := []string{"src/locales/en/translation.json", esTarget}
	if len(targets) != len(expected) {
		t.Fatalf("targets len = %d, want %d", len(targets), len(expected))
	}
	for i, want := range expected {
		if targets[i] != want {
			t.Errorf("targets[%d] = %q, want %q", i, targets[i], want)
		}
	}

	if s := lf.Summary(); !strings.HasPrefix(s, "2 targets, 2 keys") {
		t.Errorf("Summary() = %q", s)
	}
}
