package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStoreAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewLocalStore(filepath.Join(tmpDir, "out"))
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	data := []byte("ATOM  fake structure for testing")
	if err := store.Write(ctx, "selected_prediction.pdb", data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	path := filepath.Join(tmpDir, "out", "selected_prediction.pdb")
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("content = %q, want %q", got, data)
	}

	// No leftover temp file after a successful write.
	entries, err := os.ReadDir(filepath.Join(tmpDir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file %s left behind", e.Name())
		}
	}
}

func TestLocalStoreURI(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalStore(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	uri := store.URI("gget_alphafold_results.png")
	if !filepath.IsAbs(uri) {
		t.Fatalf("URI %q is not absolute", uri)
	}
	if filepath.Base(uri) != "gget_alphafold_results.png" {
		t.Fatalf("URI %q does not end in the artifact name", uri)
	}
}

func TestNewStoreDispatchesLocal(t *testing.T) {
	store, err := NewStore(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, ok := store.(*LocalStore); !ok {
		t.Fatalf("store is %T, want *LocalStore for a plain path", store)
	}
}
