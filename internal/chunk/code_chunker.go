package chunk

import (
	"context"
	"sort"
	"strings"
)

// CodeChunkerOptions configures the code chunker behavior.
type CodeChunkerOptions struct {
	MaxChunkSize int // characters per chunk before splitting (default: DefaultMaxChunkSize)
	MinChunkSize int // minimum size for a module-residue chunk (default: MinChunkSize)
}

// CodeChunker implements AST-aware code chunking using tree-sitter.
type CodeChunker struct {
	parser    *Parser
	extractor *SymbolExtractor
	registry  *LanguageRegistry
	options   CodeChunkerOptions
}

// NewCodeChunker creates a new code chunker with default options.
func NewCodeChunker() *CodeChunker {
	return NewCodeChunkerWithOptions(CodeChunkerOptions{})
}

// NewCodeChunkerWithOptions creates a new code chunker with custom options.
func NewCodeChunkerWithOptions(opts CodeChunkerOptions) *CodeChunker {
	if opts.MaxChunkSize == 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.MinChunkSize == 0 {
		opts.MinChunkSize = MinChunkSize
	}

	registry := DefaultRegistry()
	return &CodeChunker{
		parser:    NewParserWithRegistry(registry),
		extractor: NewSymbolExtractorWithRegistry(registry),
		registry:  registry,
		options:   opts,
	}
}

// Close releases chunker resources.
func (c *CodeChunker) Close() {
	if c.parser != nil {
		c.parser.Close()
	}
}

// SupportedExtensions returns file extensions this chunker handles.
func (c *CodeChunker) SupportedExtensions() []string {
	return c.registry.SupportedExtensions()
}

// Chunk splits a file into semantic chunks per the code chunker rules:
// one chunk per top-level function/class/method, with class bodies
// split into a header chunk plus one chunk per method, and remaining
// module-level residue folded into a single module chunk when large
// enough to matter. Falls back to a single "other" chunk when the
// language is unregistered or the grammar fails to parse.
func (c *CodeChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if len(file.Content) == 0 {
		return nil, nil
	}

	fileHash := file.FileHash
	if fileHash == "" {
		fileHash = FileHash(file.Content)
	}

	config, ok := c.registry.GetByName(file.Language)
	if !ok {
		return c.otherChunk(file, fileHash), nil
	}

	tree, err := c.parser.Parse(ctx, file.Content, file.Language)
	if err != nil || tree.Root == nil || tree.Root.HasError {
		return c.otherChunk(file, fileHash), nil
	}

	alloc := NewIDAllocator()
	var chunks []*Chunk
	var residueNodes []*Node

	for _, top := range tree.Root.Children {
		sym := c.extractor.extractSymbolFromNode(top, tree.Source, config, file.Language)
		if sym == nil && top.Type == "export_statement" {
			// `export class Foo {}` / `export function f() {}`: the
			// declaration is a child of the export statement.
			for _, child := range top.Children {
				if s := c.extractor.extractSymbolFromNode(child, tree.Source, config, file.Language); s != nil {
					sym = s
					break
				}
			}
		}
		if sym == nil {
			residueNodes = append(residueNodes, top)
			continue
		}

		switch sym.Kind {
		case SymbolKindClass:
			chunks = append(chunks, c.chunkClass(top, tree, file, fileHash, alloc, config, sym)...)
		case SymbolKindFunction, SymbolKindMethod:
			chunks = append(chunks, c.emitSymbolChunks(top, tree, file, fileHash, sym, alloc)...)
		default:
			// Interfaces, type aliases, constants, variables: module-level residue.
			residueNodes = append(residueNodes, top)
		}
	}

	if residueChunk := c.buildResidueChunk(residueNodes, tree, file, fileHash, alloc); residueChunk != nil {
		chunks = append(chunks, residueChunk)
	}

	if len(chunks) == 0 {
		return c.otherChunk(file, fileHash), nil
	}

	return chunks, nil
}

// chunkClass splits a class/struct node into a header chunk (class
// declaration plus non-method body) and one chunk per method.
func (c *CodeChunker) chunkClass(node *Node, tree *Tree, file *FileInput, fileHash string, alloc *IDAllocator, config *LanguageConfig, classSym *Symbol) []*Chunk {
	methodTypes := config.MethodTypes
	if len(methodTypes) == 0 {
		// Languages like Python have no distinct method node type:
		// methods are function_definition nodes nested in the class body.
		methodTypes = config.FunctionTypes
	}

	var methodNodes []*Node
	for _, mt := range methodTypes {
		methodNodes = append(methodNodes, node.FindAllByType(mt)...)
	}
	sort.Slice(methodNodes, func(i, j int) bool {
		return methodNodes[i].StartByte < methodNodes[j].StartByte
	})

	var header strings.Builder
	cursor := node.StartByte
	for _, m := range methodNodes {
		if m.StartByte > cursor {
			header.Write(tree.Source[cursor:m.StartByte])
		}
		cursor = m.EndByte
	}
	if cursor < node.EndByte {
		header.Write(tree.Source[cursor:node.EndByte])
	}
	headerText := strings.TrimRight(header.String(), "\n")

	var chunks []*Chunk
	if len(strings.TrimSpace(headerText)) > 0 {
		id := alloc.Allocate(fileHash, classSym.StartLine, classSym.Name, 0)
		chunks = append(chunks, &Chunk{
			ID:   id,
			Text: headerText,
			Metadata: Metadata{
				Path:       file.Path,
				Language:   file.Language,
				SymbolType: SymbolTypeClass,
				SymbolName: classSym.Name,
				StartLine:  classSym.StartLine,
				EndLine:    classSym.EndLine,
				FileHash:   fileHash,
			},
		})
	}

	for _, m := range methodNodes {
		msym := c.extractor.extractSymbolFromNode(m, tree.Source, config, file.Language)
		if msym == nil {
			continue
		}
		msym.Kind = SymbolKindMethod
		chunks = append(chunks, c.emitSymbolChunks(m, tree, file, fileHash, msym, alloc)...)
	}

	return chunks
}

// emitSymbolChunks produces one chunk for a symbol, or several
// continuation chunks if its content exceeds the max chunk size.
func (c *CodeChunker) emitSymbolChunks(node *Node, tree *Tree, file *FileInput, fileHash string, sym *Symbol, alloc *IDAllocator) []*Chunk {
	content := node.GetContent(tree.Source)
	if sym.DocComment != "" {
		content = c.getRawContentWithDocComment(node, tree.Source, sym.DocComment)
	}

	if len(content) <= c.options.MaxChunkSize {
		id := alloc.Allocate(fileHash, sym.StartLine, sym.Name, 0)
		return []*Chunk{{
			ID:   id,
			Text: content,
			Metadata: Metadata{
				Path:       file.Path,
				Language:   file.Language,
				SymbolType: sym.Kind.ToSymbolType(),
				SymbolName: sym.Name,
				StartLine:  sym.StartLine,
				EndLine:    sym.EndLine,
				FileHash:   fileHash,
			},
		}}
	}

	return c.splitSymbol(content, file, fileHash, sym, alloc)
}

// splitSymbol splits an over-long symbol body into numbered
// continuation chunks, cutting at a blank line when the next line
// would overflow the max chunk size and at any line once the buffer
// reaches the max chunk size. Each continuation repeats the symbol's
// signature as a leading context line. Line ranges refer to the
// original file.
func (c *CodeChunker) splitSymbol(content string, file *FileInput, fileHash string, sym *Symbol, alloc *IDAllocator) []*Chunk {
	signature := sym.Signature
	if signature == "" {
		signature = firstNonEmptyLine(content)
	}

	lines := strings.Split(content, "\n")
	var chunks []*Chunk
	var buf []string
	bufLen := 0
	part := 0
	lineNo := sym.StartLine
	chunkStartLine := lineNo

	flush := func(endLineNo int) {
		if len(buf) == 0 {
			return
		}
		part++
		var text string
		if part == 1 {
			text = strings.Join(buf, "\n")
		} else {
			text = signature + "\n" + strings.Join(buf, "\n")
		}
		id := alloc.Allocate(fileHash, chunkStartLine, sym.Name, part)
		chunks = append(chunks, &Chunk{
			ID:   id,
			Text: text,
			Metadata: Metadata{
				Path:       file.Path,
				Language:   file.Language,
				SymbolType: sym.Kind.ToSymbolType(),
				SymbolName: sym.Name,
				StartLine:  chunkStartLine,
				EndLine:    endLineNo,
				FileHash:   fileHash,
			},
		})
		buf = nil
		bufLen = 0
	}

	for _, line := range lines {
		isBlank := strings.TrimSpace(line) == ""
		if bufLen > 0 && isBlank && bufLen+len(line)+1 > c.options.MaxChunkSize {
			flush(lineNo - 1)
			chunkStartLine = lineNo
		}
		buf = append(buf, line)
		bufLen += len(line) + 1
		lineNo++
		if bufLen >= c.options.MaxChunkSize {
			flush(lineNo - 1)
			chunkStartLine = lineNo
		}
	}
	flush(lineNo - 1)

	return chunks
}

// buildResidueChunk folds the file's top-level non-symbol nodes
// (imports, package clauses, top-level consts/vars/types not claimed
// by a symbol chunk) into a single module chunk, when their combined
// size clears the minimum; otherwise it is discarded.
func (c *CodeChunker) buildResidueChunk(nodes []*Node, tree *Tree, file *FileInput, fileHash string, alloc *IDAllocator) *Chunk {
	if len(nodes) == 0 {
		return nil
	}

	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, n.GetContent(tree.Source))
	}
	text := strings.Join(parts, "\n\n")
	if len(strings.TrimSpace(text)) < c.options.MinChunkSize {
		return nil
	}

	startLine := int(nodes[0].StartPoint.Row) + 1
	endLine := int(nodes[len(nodes)-1].EndPoint.Row) + 1

	return &Chunk{
		ID:   alloc.Allocate(fileHash, startLine, "module", 0),
		Text: text,
		Metadata: Metadata{
			Path:       file.Path,
			Language:   file.Language,
			SymbolType: SymbolTypeModule,
			SymbolName: "module",
			StartLine:  startLine,
			EndLine:    endLine,
			FileHash:   fileHash,
		},
	}
}

// getRawContentWithDocComment extends a node's content to include its
// preceding doc comment lines.
func (c *CodeChunker) getRawContentWithDocComment(n *Node, source []byte, docComment string) string {
	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}

	docLines := strings.Count(docComment, "\n") + 1
	for i := 0; i < docLines && lineStart > 0; i++ {
		lineStart--
		for lineStart > 0 && source[lineStart-1] != '\n' {
			lineStart--
		}
	}

	return string(source[lineStart:n.EndByte])
}

// otherChunk is the whole-file fallback for unregistered languages and
// grammar failures.
func (c *CodeChunker) otherChunk(file *FileInput, fileHash string) []*Chunk {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	alloc := NewIDAllocator()
	return []*Chunk{{
		ID:   alloc.Allocate(fileHash, 1, "file", 0),
		Text: content,
		Metadata: Metadata{
			Path:       file.Path,
			Language:   file.Language,
			SymbolType: SymbolTypeOther,
			SymbolName: "file",
			StartLine:  1,
			EndLine:    len(lines),
			FileHash:   fileHash,
		},
	}}
}

func firstNonEmptyLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
