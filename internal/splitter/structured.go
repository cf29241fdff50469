package splitter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/astra-rag/astra-context/pkg/types"
)

// boundaryPatterns matches top-level declaration starts at column zero, per
// language family. A line matching its language's pattern opens a new
// declaration segment.
var boundaryPatterns = map[types.Language]*regexp.Regexp{
	types.LangGo:         regexp.MustCompile(`^(func|type|const|var)\b`),
	types.LangPython:     regexp.MustCompile(`^(def|class|async[ \t]+def|@\w)`),
	types.LangJavaScript: regexp.MustCompile(`^(function|class|const|let|var|export|async[ \t]+function)\b`),
	types.LangTypeScript: regexp.MustCompile(`^(function|class|const|let|var|export|interface|type|enum|abstract|async[ \t]+function)\b`),
	types.LangRust:       regexp.MustCompile(`^(pub[ \t]+)?(fn|struct|enum|impl|trait|mod|const|static|macro_rules!)\b`),
	types.LangJava:       regexp.MustCompile(`^(public|final|abstract|class|interface|enum|record|@\w)\b`),
}

// symbolPattern extracts the first identifier after declaration keywords.
var symbolPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*[({:=<]`)

// declKeywords are stripped before identifier extraction so that e.g.
// "pub fn parse(" yields "parse" rather than "pub".
var declKeywords = map[string]bool{
	"func": true, "type": true, "const": true, "var": true,
	"def": true, "class": true, "async": true,
	"function": true, "export": true, "let": true, "default": true,
	"interface": true, "enum": true, "abstract": true, "record": true,
	"pub": true, "fn": true, "struct": true, "impl": true, "trait": true,
	"mod": true, "static": true,
	"public": true, "final": true,
	"package": true, "import": true, "from": true, "use": true,
}

// structured splits code at top-level declaration boundaries, emitting one
// span per declaration and merging trivially short declarations with their
// neighbors up to the ChunkSize ceiling. The spans of one document partition
// its lines: no gaps, no overlap.
type structured struct {
	cfg      Config
	boundary *regexp.Regexp
}

func newStructured(lang types.Language, cfg Config) *structured {
	re, ok := boundaryPatterns[lang]
	if !ok {
		re = boundaryPatterns[types.LangGo]
	}
	return &structured{cfg: cfg, boundary: re}
}

// segment is one top-level declaration with its preceding attached lines.
type segment struct {
	start  int // 0-based first line index
	end    int // 0-based last line index, inclusive
	size   int // character count including joining newlines
	symbol string
}

func (s *structured) Split(content string) ([]types.Span, error) {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil, nil
	}

	segs := s.segments(lines)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no segments produced", types.ErrSplit)
	}

	return s.merge(lines, segs), nil
}

// segments partitions the line range at declaration boundaries. The first
// segment always starts at line 0 so leading comments and directives stay
// attached to the first declaration.
func (s *structured) segments(lines []string) []segment {
	var bounds []int
	for i, line := range lines {
		if i > 0 && s.boundary.MatchString(line) {
			bounds = append(bounds, i)
		}
	}

	segs := make([]segment, 0, len(bounds)+1)
	start := 0
	for _, b := range bounds {
		segs = append(segs, s.segment(lines, start, b-1))
		start = b
	}
	segs = append(segs, s.segment(lines, start, len(lines)-1))
	return segs
}

func (s *structured) segment(lines []string, start, end int) segment {
	size := end - start // joining newlines
	for i := start; i <= end; i++ {
		size += len(lines[i])
	}
	return segment{
		start:  start,
		end:    end,
		size:   size,
		symbol: extractSymbol(firstNonBlank(lines, start, end)),
	}
}

// merge combines adjacent segments while the result stays within ChunkSize,
// using the minimize-overshoot tie-break when a segment straddles the target.
// A single declaration larger than ChunkSize is emitted whole; declarations
// are never split internally.
func (s *structured) merge(lines []string, segs []segment) []types.Span {
	var spans []types.Span

	cur := segs[0]
	for _, next := range segs[1:] {
		merged := cur.size + 1 + next.size
		if merged <= s.cfg.ChunkSize ||
			(cur.size < s.cfg.ChunkSize && preferMerge(cur.size, merged, s.cfg.ChunkSize)) {
			cur.end = next.end
			cur.size = merged
			continue
		}
		spans = append(spans, joinSpan(lines, cur.start, cur.end, cur.symbol, types.SpanDeclaration))
		cur = next
	}
	spans = append(spans, joinSpan(lines, cur.start, cur.end, cur.symbol, types.SpanDeclaration))
	return spans
}

// extractSymbol pulls the declared identifier out of a boundary line.
func extractSymbol(line string) string {
	fields := strings.Fields(line)
	for _, f := range fields {
		f = strings.TrimLeft(f, "@(")
		word := strings.TrimRight(f, "({:=<!,")
		if word == "" || declKeywords[strings.ToLower(word)] {
			continue
		}
		if m := symbolPattern.FindStringSubmatch(f + "("); m != nil {
			return m[1]
		}
		return word
	}
	return ""
}

func firstNonBlank(lines []string, start, end int) string {
	for i := start; i <= end; i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}
