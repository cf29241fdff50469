package walker

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astra-rag/astra-context/pkg/types"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func testWalker() *Walker {
	return New(Config{
		AllowedExtensions: []string{".go", ".md"},
		IgnoredDirs:       []string{"node_modules", "vendor"},
		MaxFileSizeBytes:  1024,
	})
}

func TestCollectFiltersFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", []byte("package main"))
	writeFile(t, root, "docs/readme.md", []byte("# readme"))
	writeFile(t, root, "image.png", []byte("not eligible"))
	writeFile(t, root, "vendor/dep.go", []byte("package dep"))
	writeFile(t, root, "node_modules/x/index.go", []byte("package x"))
	writeFile(t, root, ".hidden/secret.go", []byte("package secret"))

	docs, failures, err := testWalker().Collect(root)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}

	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.Path
	}
	want := map[string]bool{"main.go": true, "docs/readme.md": true}
	if len(docs) != len(want) {
		t.Fatalf("got %v, want only %v", paths, want)
	}
	for _, p := range paths {
		if !want[p] {
			t.Errorf("unexpected path %q", p)
		}
		if strings.Contains(p, string(os.PathSeparator)) && os.PathSeparator != '/' {
			t.Errorf("path %q not slash-normalized", p)
		}
	}
}

func TestCollectSkipsOversizedAndBinary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.go", []byte(strings.Repeat("x", 2048)))
	writeFile(t, root, "binary.go", []byte("abc\x00def"))
	writeFile(t, root, "ok.go", []byte("package ok"))

	docs, failures, err := testWalker().Collect(root)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(docs) != 1 || docs[0].Path != "ok.go" {
		t.Fatalf("expected only ok.go, got %+v", docs)
	}
}

func TestCollectDocumentSnapshot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", []byte("package a"))

	docs, _, err := testWalker().Collect(root)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	doc := docs[0]
	if doc.Language != types.LangGo {
		t.Errorf("language = %q", doc.Language)
	}
	if doc.Content != "package a" {
		t.Errorf("content = %q", doc.Content)
	}
	if doc.SizeBytes != int64(len("package a")) {
		t.Errorf("size = %d", doc.SizeBytes)
	}
	var zero [32]byte
	if doc.Fingerprint == zero {
		t.Error("fingerprint not computed")
	}
}

func TestWalkInvalidRoot(t *testing.T) {
	_, err := testWalker().Walk(filepath.Join(t.TempDir(), "missing"), func(types.Document) error { return nil })
	if !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	// A file as root is also a configuration error.
	root := t.TempDir()
	writeFile(t, root, "f.go", []byte("package f"))
	_, err = testWalker().Walk(filepath.Join(root, "f.go"), func(types.Document) error { return nil })
	if !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("expected configuration error for file root, got %v", err)
	}
}

func TestWalkRecordsUnreadableFiles(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits are advisory for root")
	}

	root := t.TempDir()
	writeFile(t, root, "locked.go", []byte("package locked"))
	if err := os.Chmod(filepath.Join(root, "locked.go"), 0o000); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "open.go", []byte("package open"))

	docs, failures, err := testWalker().Collect(root)
	if err != nil {
		t.Fatalf("walk must continue past unreadable files: %v", err)
	}
	if len(docs) != 1 || docs[0].Path != "open.go" {
		t.Fatalf("expected open.go only, got %+v", docs)
	}
	if len(failures) != 1 || failures[0].Path != "locked.go" {
		t.Fatalf("expected one failure for locked.go, got %v", failures)
	}
}
