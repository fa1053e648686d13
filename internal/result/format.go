// Package result renders retrieve.SearchResult slices into the two
// output shapes spec.md §4.J names: a compact structured form for
// programmatic consumers and a human-readable markdown variant.
// Grounded on the teacher's internal/output.Writer.Code (indented code
// block rendering), generalized to fenced code blocks with per-result
// separators; both functions here are pure, unlike the teacher's
// io.Writer-based Writer.
package result

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Aman-CERP/codesearch/internal/retrieve"
)

// MaxLinesPerResult bounds how many lines of code accompany each
// result before truncation, per spec.md §4.J.
const MaxLinesPerResult = 50

// Formatted is one compact, structured result as produced by
// FormatResults.
type Formatted struct {
	File      string `json:"file"`
	Lines     string `json:"lines"`
	Relevance int    `json:"relevance"`
	Code      string `json:"code"`
}

// FormatResults maps search results into the compact structured form:
// an ordered array of {file, lines, relevance, code}, with relevance
// the 0-100 rounded percentage of score and code truncated at
// MaxLinesPerResult.
func FormatResults(results []retrieve.SearchResult) []Formatted {
	out := make([]Formatted, len(results))
	for i, r := range results {
		out[i] = Formatted{
			File:      r.Chunk.Path,
			Lines:     fmt.Sprintf("%d-%d", r.Chunk.StartLine, r.Chunk.EndLine),
			Relevance: relevancePercent(r.Score),
			Code:      truncateCode(r.Chunk.Text, MaxLinesPerResult),
		}
	}
	return out
}

// FormatMarkdown renders the same fields as FormatResults into a
// human-readable markdown document, one fenced code block per result
// separated by a horizontal rule.
func FormatMarkdown(results []retrieve.SearchResult) string {
	if len(results) == 0 {
		return "No results found.\n"
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}

		fmt.Fprintf(&b, "### %s (lines %d-%d, relevance %d%%)\n\n",
			r.Chunk.Path, r.Chunk.StartLine, r.Chunk.EndLine, relevancePercent(r.Score))

		fence := "```" + r.Chunk.Language
		b.WriteString(fence)
		b.WriteString("\n")
		b.WriteString(truncateCode(r.Chunk.Text, MaxLinesPerResult))
		b.WriteString("\n```\n")
	}
	return b.String()
}

// relevancePercent rounds a 0-1 score to a 0-100 integer percentage.
func relevancePercent(score float32) int {
	pct := score * 100
	rounded := int(pct)
	if pct-float32(rounded) >= 0.5 {
		rounded++
	}
	return rounded
}

// truncateCode returns code unchanged when it fits within maxLines,
// otherwise the first maxLines lines followed by a "... (N more
// lines)" marker.
func truncateCode(code string, maxLines int) string {
	lines := strings.Split(code, "\n")
	if len(lines) <= maxLines {
		return code
	}

	remaining := len(lines) - maxLines
	kept := lines[:maxLines]
	return strings.Join(kept, "\n") + "\n... (" + strconv.Itoa(remaining) + " more lines)"
}
