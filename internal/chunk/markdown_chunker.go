package chunk

import (
	"context"
	"regexp"
	"strings"
)

// MarkdownChunkerOptions configures the markdown chunker behavior, all
// sizes expressed in characters.
type MarkdownChunkerOptions struct {
	MaxChunkSize      int
	MinChunkSize      int
	OverlapRatio      float64
	SplitOnParagraphs bool
}

// MarkdownChunker implements header-based Markdown chunking.
type MarkdownChunker struct {
	options MarkdownChunkerOptions
}

// Regex patterns for markdown parsing.
var (
	headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

	codeBlockPattern = regexp.MustCompile("(?s)```[^`]*```")

	mdxSelfClosingPattern = regexp.MustCompile(`<[A-Z][a-zA-Z0-9]*[^>]*/\s*>`)

	tablePattern = regexp.MustCompile(`(?m)^\|.+\|$(\n^\|[-:|]+\|$)?(\n^\|.+\|$)*`)
)

// NewMarkdownChunker creates a new markdown chunker with default options.
func NewMarkdownChunker() *MarkdownChunker {
	return NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{})
}

// NewMarkdownChunkerWithOptions creates a new markdown chunker with custom options.
func NewMarkdownChunkerWithOptions(opts MarkdownChunkerOptions) *MarkdownChunker {
	if opts.MaxChunkSize == 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.MinChunkSize == 0 {
		opts.MinChunkSize = MinChunkSize
	}
	if opts.OverlapRatio == 0 {
		opts.OverlapRatio = DefaultOverlapRatio
	}
	return &MarkdownChunker{options: opts}
}

// Close releases chunker resources. MarkdownChunker is stateless, so
// this is a no-op for interface consistency with CodeChunker.
func (c *MarkdownChunker) Close() {}

// SupportedExtensions returns file extensions this chunker handles.
func (c *MarkdownChunker) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".mdx"}
}

type headerMatch struct {
	level int
	title string
	line  int // 0-indexed line number
}

type rawSection struct {
	title     string
	content   string
	startLine int // 1-indexed
	endLine   int // 1-indexed inclusive
}

// Chunk splits a markdown file into header-bounded sections. Content
// before the first header becomes a "(document start)" chunk. Each
// header's chunk spans its header line through the next header of
// equal or higher level. Short sections merge into their predecessor;
// over-long sections split on paragraph boundaries, with every
// continuation repeating the section header.
func (c *MarkdownChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	fileHash := file.FileHash
	if fileHash == "" {
		fileHash = FileHash(file.Content)
	}

	lines := strings.Split(content, "\n")
	headers := findHeaders(lines)
	alloc := NewIDAllocator()

	if len(headers) == 0 {
		return c.emitSection(file, fileHash, alloc, rawSection{
			title:     "(document start)",
			content:   content,
			startLine: 1,
			endLine:   len(lines),
		}), nil
	}

	var raw []rawSection

	if headers[0].line > 0 {
		pre := strings.Join(lines[:headers[0].line], "\n")
		if strings.TrimSpace(pre) != "" {
			raw = append(raw, rawSection{
				title:     "(document start)",
				content:   strings.TrimRight(pre, "\n"),
				startLine: 1,
				endLine:   headers[0].line,
			})
		}
	}

	for i, h := range headers {
		end := len(lines)
		for j := i + 1; j < len(headers); j++ {
			if headers[j].level <= h.level {
				end = headers[j].line
				break
			}
		}
		sectionContent := strings.TrimRight(strings.Join(lines[h.line:end], "\n"), "\n")
		if strings.TrimSpace(sectionContent) == "" {
			continue
		}
		raw = append(raw, rawSection{
			title:     h.title,
			content:   sectionContent,
			startLine: h.line + 1,
			endLine:   end,
		})
	}

	merged := mergeShortSections(raw, c.options.MinChunkSize)

	var chunks []*Chunk
	for _, sec := range merged {
		chunks = append(chunks, c.emitSection(file, fileHash, alloc, sec)...)
	}

	return chunks, nil
}

func findHeaders(lines []string) []headerMatch {
	var headers []headerMatch
	for i, line := range lines {
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			headers = append(headers, headerMatch{
				level: len(m[1]),
				title: strings.TrimSpace(m[2]),
				line:  i,
			})
		}
	}
	return headers
}

// mergeShortSections folds any section shorter than minSize into its
// immediately preceding section, per the merge-up rule.
func mergeShortSections(raw []rawSection, minSize int) []rawSection {
	var merged []rawSection
	for _, s := range raw {
		if len(merged) > 0 && len(s.content) < minSize {
			last := &merged[len(merged)-1]
			last.content = last.content + "\n\n" + s.content
			last.endLine = s.endLine
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// emitSection turns one (possibly merged) section into one or more
// chunks, splitting on paragraph boundaries when it exceeds max size.
func (c *MarkdownChunker) emitSection(file *FileInput, fileHash string, alloc *IDAllocator, sec rawSection) []*Chunk {
	if len(sec.content) <= c.options.MaxChunkSize {
		id := alloc.Allocate(fileHash, sec.startLine, sec.title, 0)
		return []*Chunk{{
			ID:   id,
			Text: sec.content,
			Metadata: Metadata{
				Path:       file.Path,
				Language:   "markdown",
				SymbolType: SymbolTypeMarkdown,
				SymbolName: sec.title,
				StartLine:  sec.startLine,
				EndLine:    sec.endLine,
				FileHash:   fileHash,
			},
		}}
	}
	return c.splitSection(file, fileHash, alloc, sec)
}

// splitSection splits an over-long section on paragraph boundaries,
// repeating the section's header line at the top of every
// continuation (the sole overlap mechanism), plus a trailing-text
// carry-over sized by OverlapRatio.
func (c *MarkdownChunker) splitSection(file *FileInput, fileHash string, alloc *IDAllocator, sec rawSection) []*Chunk {
	atomicBlocks := findAtomicBlocks(sec.content)
	paragraphs := splitIntoParagraphs(sec.content, atomicBlocks)

	headerLine := ""
	if idx := strings.IndexByte(sec.content, '\n'); idx >= 0 {
		if first := sec.content[:idx]; headerPattern.MatchString(first) {
			headerLine = first
		}
	} else if headerPattern.MatchString(sec.content) {
		headerLine = sec.content
	}

	overlapChars := int(float64(c.options.MaxChunkSize) * c.options.OverlapRatio)

	var chunks []*Chunk
	var buf strings.Builder
	startLine := sec.startLine
	lineNo := sec.startLine
	part := 0
	var prevParagraph string

	flush := func(endLine int) {
		text := strings.TrimRight(buf.String(), "\n")
		if strings.TrimSpace(text) == "" {
			buf.Reset()
			return
		}
		part++
		id := alloc.Allocate(fileHash, startLine, sec.title, part)
		chunks = append(chunks, &Chunk{
			ID:   id,
			Text: text,
			Metadata: Metadata{
				Path:       file.Path,
				Language:   "markdown",
				SymbolType: SymbolTypeMarkdown,
				SymbolName: sec.title,
				StartLine:  startLine,
				EndLine:    endLine,
				FileHash:   fileHash,
			},
		})
		buf.Reset()
	}

	for _, para := range paragraphs {
		paraLines := strings.Count(para, "\n") + 1

		if buf.Len() > 0 && buf.Len()+len(para) > c.options.MaxChunkSize {
			flush(lineNo - 1)
			startLine = lineNo
			if headerLine != "" {
				buf.WriteString(headerLine)
				buf.WriteString("\n\n")
			}
			if overlapChars > 0 && prevParagraph != "" {
				tail := prevParagraph
				if len(tail) > overlapChars {
					tail = tail[len(tail)-overlapChars:]
				}
				buf.WriteString(tail)
				buf.WriteString("\n\n")
			}
		}

		buf.WriteString(para)
		buf.WriteString("\n\n")
		prevParagraph = para
		lineNo += paraLines + 1
	}
	flush(lineNo - 1)

	return chunks
}

// findAtomicBlocks finds positions of blocks that shouldn't be split:
// fenced code blocks, tables, and MDX components.
func findAtomicBlocks(content string) [][]int {
	var blocks [][]int
	blocks = append(blocks, codeBlockPattern.FindAllStringIndex(content, -1)...)
	blocks = append(blocks, tablePattern.FindAllStringIndex(content, -1)...)
	blocks = append(blocks, mdxSelfClosingPattern.FindAllStringIndex(content, -1)...)
	blocks = append(blocks, findMDXBlockComponents(content)...)
	return blocks
}

// findMDXBlockComponents finds MDX block components without backreferences.
func findMDXBlockComponents(content string) [][]int {
	var locs [][]int
	openTagPattern := regexp.MustCompile(`<([A-Z][a-zA-Z0-9]*)[^/>]*>`)
	matches := openTagPattern.FindAllStringSubmatchIndex(content, -1)

	for _, match := range matches {
		if len(match) >= 4 {
			tagName := content[match[2]:match[3]]
			closeTag := "</" + tagName + ">"
			startPos := match[0]
			if closePos := strings.Index(content[match[1]:], closeTag); closePos != -1 {
				endPos := match[1] + closePos + len(closeTag)
				locs = append(locs, []int{startPos, endPos})
			}
		}
	}
	return locs
}

// splitIntoParagraphs splits content by blank lines, then re-merges
// any paragraph that was torn out of an atomic block (a fenced code
// block split across the "\n\n" boundary).
func splitIntoParagraphs(content string, _ [][]int) []string {
	parts := strings.Split(content, "\n\n")

	var paragraphs []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	return mergeAtomicBlocks(paragraphs)
}

// mergeAtomicBlocks re-joins paragraphs that are fragments of an
// unclosed fenced code block.
func mergeAtomicBlocks(paragraphs []string) []string {
	var result []string
	var inCodeBlock bool
	var codeBlockBuilder strings.Builder

	for _, para := range paragraphs {
		if inCodeBlock {
			codeBlockBuilder.WriteString("\n\n")
			codeBlockBuilder.WriteString(para)
			if strings.Contains(para, "```") {
				result = append(result, codeBlockBuilder.String())
				codeBlockBuilder.Reset()
				inCodeBlock = false
			}
			continue
		}

		openCount := strings.Count(para, "```")
		if openCount > 0 && openCount%2 == 1 {
			inCodeBlock = true
			codeBlockBuilder.WriteString(para)
			continue
		}

		result = append(result, para)
	}

	if inCodeBlock {
		result = append(result, codeBlockBuilder.String())
	}

	return result
}
