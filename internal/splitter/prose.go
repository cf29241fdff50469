package splitter

import (
	"regexp"
	"strings"

	"github.com/astra-rag/astra-context/pkg/types"
)

var headingPattern = regexp.MustCompile(`^#{1,6}\s+`)

// prose splits text and markup on blank-line and heading boundaries. Blocks
// accumulate into spans up to the ChunkSize target; a block with no natural
// boundary within ChunkSize * 1.5 characters falls back to the sliding
// window so pathological inputs cannot produce an unbounded chunk.
type prose struct {
	cfg Config
}

func newProse(cfg Config) *prose {
	return &prose{cfg: cfg}
}

// block is a run of lines between blank-line or heading boundaries.
type block struct {
	start   int
	end     int
	size    int
	heading string
}

func (p *prose) Split(content string) ([]types.Span, error) {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil, nil
	}

	blocks := p.blocks(lines)
	return p.assemble(lines, blocks), nil
}

// blocks groups lines into paragraph/section blocks. A heading always opens
// a new block and names every block until the next heading.
func (p *prose) blocks(lines []string) []block {
	var out []block
	heading := ""
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		b := block{start: start, end: end, heading: heading}
		for i := start; i <= end; i++ {
			b.size += len(lines[i])
		}
		b.size += end - start
		out = append(out, b)
		start = -1
	}

	for i, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if blank {
			flush(i - 1)
			continue
		}
		if headingPattern.MatchString(line) {
			flush(i - 1)
			heading = strings.TrimSpace(headingPattern.ReplaceAllString(line, ""))
			start = i
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(lines) - 1)
	return out
}

// assemble merges blocks into spans bounded by ChunkSize, applying the
// minimize-overshoot tie-break at section boundaries and the window fallback
// for any single block exceeding the hard cap.
func (p *prose) assemble(lines []string, blocks []block) []types.Span {
	var spans []types.Span
	win := newWindow(p.cfg)

	var cur *block
	flushCur := func() {
		if cur == nil {
			return
		}
		spans = append(spans, joinSpan(lines, cur.start, cur.end, cur.heading, types.SpanSection))
		cur = nil
	}

	for i := range blocks {
		b := blocks[i]

		// No natural boundary within the cap: window-split this block.
		if b.size > p.cfg.cap() {
			flushCur()
			spans = append(spans, win.splitLineRange(lines, b.start, b.end, b.heading)...)
			continue
		}

		if cur == nil {
			cur = &b
			continue
		}

		merged := cur.size + 1 + b.size
		if merged <= p.cfg.ChunkSize ||
			(cur.size < p.cfg.ChunkSize && merged <= p.cfg.cap() &&
				preferMerge(cur.size, merged, p.cfg.ChunkSize)) {
			cur.end = b.end
			cur.size = merged
			continue
		}

		flushCur()
		cur = &b
	}
	flushCur()
	return spans
}
