package walker

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/astra-rag/astra-context/pkg/types"
)

// binarySniffLen is how many leading bytes are checked for null bytes.
const binarySniffLen = 8192

// Config controls which files the walker yields.
type Config struct {
	AllowedExtensions []string
	IgnoredDirs       []string
	MaxFileSizeBytes  int64
}

// Walker enumerates eligible files under a project root and produces Document
// snapshots. Unreadable files are recorded as access failures and skipped; an
// invalid root aborts the walk with a configuration error.
type Walker struct {
	allowed map[string]bool
	ignored map[string]bool
	maxSize int64
}

// New creates a Walker from config.
func New(cfg Config) *Walker {
	w := &Walker{
		allowed: make(map[string]bool, len(cfg.AllowedExtensions)),
		ignored: make(map[string]bool, len(cfg.IgnoredDirs)),
		maxSize: cfg.MaxFileSizeBytes,
	}
	for _, ext := range cfg.AllowedExtensions {
		w.allowed[strings.ToLower(ext)] = true
	}
	for _, dir := range cfg.IgnoredDirs {
		w.ignored[dir] = true
	}
	return w
}

// Walk traverses root and calls fn for each eligible Document, in lexical
// path order. Per-file read failures do not stop the walk; they are returned
// as PathFailures wrapping ErrAccess semantics. The error return is non-nil
// only for a fatal condition (invalid root, or fn returning an error).
func (w *Walker) Walk(root string, fn func(doc types.Document) error) ([]types.PathFailure, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: project root %s: %v", types.ErrConfiguration, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: project root %s is not a directory", types.ErrConfiguration, root)
	}

	var failures []types.PathFailure

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directory entry: record and keep walking.
			rel := relOrSelf(root, path)
			failures = append(failures, types.PathFailure{
				Path:   rel,
				Reason: fmt.Sprintf("%v: %v", types.ErrAccess, err),
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && (w.ignored[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !w.eligibleName(path) {
			return nil
		}

		rel := relOrSelf(root, path)

		fi, err := d.Info()
		if err != nil {
			failures = append(failures, types.PathFailure{
				Path:   rel,
				Reason: fmt.Sprintf("%v: %v", types.ErrAccess, err),
			})
			return nil
		}
		if w.maxSize > 0 && fi.Size() > w.maxSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			failures = append(failures, types.PathFailure{
				Path:   rel,
				Reason: fmt.Sprintf("%v: %v", types.ErrAccess, err),
			})
			return nil
		}

		if isBinary(content) {
			return nil
		}

		return fn(types.NewDocument(rel, string(content), fi.ModTime()))
	})

	if walkErr != nil {
		return failures, walkErr
	}
	return failures, nil
}

// Collect runs Walk and gathers all documents into a slice.
func (w *Walker) Collect(root string) ([]types.Document, []types.PathFailure, error) {
	var docs []types.Document
	failures, err := w.Walk(root, func(doc types.Document) error {
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, failures, err
	}
	return docs, failures, nil
}

// eligibleName checks the extension allow-list.
func (w *Walker) eligibleName(path string) bool {
	if len(w.allowed) == 0 {
		return true
	}
	return w.allowed[strings.ToLower(filepath.Ext(path))]
}

// isBinary sniffs the leading bytes for nulls.
func isBinary(content []byte) bool {
	n := len(content)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

func relOrSelf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
