package vocabulary

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogLookup(t *testing.T) {
	cat := DefaultCatalog()

	region, ok := cat.Lookup("abdomen")
	if !ok {
		t.Fatal("expected abdomen in default catalog")
	}
	if region.Display != "Abdomen" || region.Group != "torso" {
		t.Fatalf("unexpected region: %+v", region)
	}

	if _, ok := cat.Lookup("Lower-Back"); !ok {
		t.Fatal("expected case-insensitive lookup")
	}
	if cat.Known("dorsal-fin") {
		t.Fatal("expected unknown area to be rejected")
	}
}

func TestLoadFallsBackWithoutPath(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !cat.Known("head") {
		t.Fatal("expected built-in catalog")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	content := []byte("regions:\n  sinuses:\n    display: Sinuses\n    group: upper\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	region, ok := cat.Lookup("sinuses")
	if !ok || region.Display != "Sinuses" {
		t.Fatalf("unexpected catalog: %+v", cat)
	}
	if cat.Known("head") {
		t.Fatal("file catalog must replace the built-in one")
	}
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("regions: {}\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}
