package splitter

import (
	"github.com/astra-rag/astra-context/pkg/types"
)

// window is the fixed-size sliding-window splitter used for languages with no
// syntax-aware variant and as the recovery path after a split failure.
// Consecutive windows overlap by roughly ChunkOverlap characters; no window
// exceeds ChunkSize * 1.5.
type window struct {
	cfg Config
}

func newWindow(cfg Config) *window {
	return &window{cfg: cfg}
}

// overlap bounds the configured overlap so that a window carrying overlap
// plus one full-size line still fits under the hard cap.
func (w *window) overlap() int {
	max := w.cfg.ChunkSize / 3
	if w.cfg.ChunkOverlap < max {
		return w.cfg.ChunkOverlap
	}
	return max
}

func (w *window) Split(content string) ([]types.Span, error) {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil, nil
	}
	return w.splitLineRange(lines, 0, len(lines)-1, ""), nil
}

// splitLineRange windows the 0-based inclusive line range [start, end]. Cuts
// fall on line boundaries except for single lines longer than ChunkSize,
// which are cut mid-line so no chunk exceeds the cap.
func (w *window) splitLineRange(lines []string, start, end int, symbol string) []types.Span {
	var spans []types.Span

	curStart := start
	curSize := 0
	i := start

	for i <= end {
		l := len(lines[i])

		// A single line with no break opportunity gets character-level cuts.
		if l > w.cfg.ChunkSize {
			if curSize > 0 {
				spans = append(spans, joinSpan(lines, curStart, i-1, symbol, types.SpanWindow))
			}
			spans = append(spans, w.splitLongLine(lines[i], i, symbol)...)
			i++
			curStart = i
			curSize = 0
			continue
		}

		if curSize == 0 {
			curStart = i
			curSize = l
			i++
			continue
		}

		if curSize+1+l <= w.cfg.ChunkSize {
			curSize += 1 + l
			i++
			continue
		}

		// Window full: emit it, then start the next window with trailing
		// overlap lines. The new window always advances past curStart.
		spans = append(spans, joinSpan(lines, curStart, i-1, symbol, types.SpanWindow))
		newStart := i
		carried := 0
		for j := i - 1; j > curStart; j-- {
			if carried+len(lines[j])+1 > w.overlap() {
				break
			}
			carried += len(lines[j]) + 1
			newStart = j
		}
		curStart = newStart
		curSize = carried + 1 + l
		i++
	}

	if curSize > 0 {
		spans = append(spans, joinSpan(lines, curStart, end, symbol, types.SpanWindow))
	}
	return spans
}

// splitLongLine cuts one oversized line into overlapping character windows.
// lineIdx is 0-based; emitted spans carry the 1-based line number for both
// start and end.
func (w *window) splitLongLine(line string, lineIdx int, symbol string) []types.Span {
	step := w.cfg.ChunkSize - w.overlap()
	if step <= 0 {
		step = w.cfg.ChunkSize
	}

	var spans []types.Span
	for st := 0; ; st += step {
		en := st + w.cfg.ChunkSize
		if en > len(line) {
			en = len(line)
		}
		spans = append(spans, types.Span{
			Text:      line[st:en],
			StartLine: lineIdx + 1,
			EndLine:   lineIdx + 1,
			Symbol:    symbol,
			Kind:      types.SpanWindow,
		})
		if en == len(line) {
			break
		}
	}
	return spans
}
