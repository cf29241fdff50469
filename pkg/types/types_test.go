package types

import (
	"testing"
	"time"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"main.go", LangGo},
		{"lib/mod.rs", LangRust},
		{"app/Main.java", LangJava},
		{"script.py", LangPython},
		{"ui/App.tsx", LangTypeScript},
		{"ui/app.jsx", LangJavaScript},
		{"README.md", LangMarkdown},
		{"notes.TXT", LangText},
		{"data.csv", LangUnknown},
		{"Makefile", LangUnknown},
	}
	for _, tt := range tests {
		if got := DetectLanguage(tt.path); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLanguageFamilies(t *testing.T) {
	if !LangGo.Structured() || LangGo.Prose() {
		t.Error("Go should be structured, not prose")
	}
	if !LangMarkdown.Prose() || LangMarkdown.Structured() {
		t.Error("Markdown should be prose, not structured")
	}
	if LangUnknown.Structured() || LangUnknown.Prose() {
		t.Error("unknown language belongs to neither family")
	}
}

func TestChunkIDDeterminism(t *testing.T) {
	a := ChunkID("p.go", 1, 5, "text")
	b := ChunkID("p.go", 1, 5, "text")
	if a != b {
		t.Error("identical inputs must produce identical IDs")
	}

	variants := []string{
		ChunkID("q.go", 1, 5, "text"),
		ChunkID("p.go", 2, 5, "text"),
		ChunkID("p.go", 1, 6, "text"),
		ChunkID("p.go", 1, 5, "other"),
	}
	for i, v := range variants {
		if v == a {
			t.Errorf("variant %d collides with base ID", i)
		}
	}
}

func TestChunkValidate(t *testing.T) {
	valid := Chunk{ID: "id", SourcePath: "p.go", Text: "x", StartLine: 1, EndLine: 2}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid chunk rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Chunk)
	}{
		{"missing ID", func(c *Chunk) { c.ID = "" }},
		{"missing path", func(c *Chunk) { c.SourcePath = "" }},
		{"empty text", func(c *Chunk) { c.Text = "" }},
		{"zero start line", func(c *Chunk) { c.StartLine = 0 }},
		{"inverted range", func(c *Chunk) { c.StartLine = 5; c.EndLine = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewDocumentFingerprint(t *testing.T) {
	now := time.Now()
	a := NewDocument("a.go", "content", now)
	b := NewDocument("a.go", "content", now.Add(time.Hour))
	if a.Fingerprint != b.Fingerprint {
		t.Error("fingerprint must depend on content only, not mod time")
	}

	c := NewDocument("a.go", "changed", now)
	if a.Fingerprint == c.Fingerprint {
		t.Error("changed content must change the fingerprint")
	}

	if a.Language != LangGo || a.SizeBytes != int64(len("content")) {
		t.Errorf("snapshot fields wrong: %+v", a)
	}
}
