package types

import (
	"crypto/sha256"
	"path/filepath"
	"strings"
	"time"
)

// Language identifies the splitter family used for a document.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangMarkdown   Language = "markdown"
	LangText       Language = "text"
	LangUnknown    Language = "unknown"
)

// extensionLanguages maps file extensions to languages. Extensions not listed
// here fall back to LangUnknown and the sliding-window splitter.
var extensionLanguages = map[string]Language{
	".go":       LangGo,
	".py":       LangPython,
	".js":       LangJavaScript,
	".jsx":      LangJavaScript,
	".mjs":      LangJavaScript,
	".ts":       LangTypeScript,
	".tsx":      LangTypeScript,
	".rs":       LangRust,
	".java":     LangJava,
	".md":       LangMarkdown,
	".markdown": LangMarkdown,
	".rst":      LangText,
	".txt":      LangText,
}

// DetectLanguage infers the language of a file from its extension.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}
	return LangUnknown
}

// Structured reports whether the language has recognizable top-level
// declaration boundaries suitable for the structured splitter.
func (l Language) Structured() bool {
	switch l {
	case LangGo, LangPython, LangJavaScript, LangTypeScript, LangRust, LangJava:
		return true
	}
	return false
}

// Prose reports whether the language is prose or markup, split on blank-line
// and heading boundaries.
func (l Language) Prose() bool {
	return l == LangMarkdown || l == LangText
}

// Document is an immutable snapshot of one source file at scan time. A changed
// file produces a new Document on the next index pass; Documents are never
// mutated in place.
type Document struct {
	// Path is relative to the project root and unique within a project.
	Path string

	// Content is the raw file text.
	Content string

	Language    Language
	Fingerprint [32]byte
	ModTime     time.Time
	SizeBytes   int64
}

// NewDocument builds a Document snapshot, computing the content fingerprint.
func NewDocument(path, content string, modTime time.Time) Document {
	return Document{
		Path:        path,
		Content:     content,
		Language:    DetectLanguage(path),
		Fingerprint: sha256.Sum256([]byte(content)),
		ModTime:     modTime,
		SizeBytes:   int64(len(content)),
	}
}
