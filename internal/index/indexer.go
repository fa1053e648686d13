// Package index implements the per-file indexing pipeline: walk a
// directory, fingerprint each file, chunk it, embed and sparse-vectorize
// the chunks, and upsert the result into the vector store, skipping
// files whose content hash has not changed since the last run.
//
// Grounded on the teacher's Runner (internal/index/runner.go) for the
// dependency-injection shape and deterministic sorted-path file walk,
// narrowed to the spec's simpler {indexed, skipped, errors} contract
// and parallelized per-file with a bounded errgroup. File discovery is
// adapted onto sabhiram/go-gitignore (see internal/scanner for the
// language/content-type detection the teacher's scanner also provided).
package index

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/codesearch/internal/chunk"
	"github.com/Aman-CERP/codesearch/internal/embed"
	cserrors "github.com/Aman-CERP/codesearch/internal/errors"
	"github.com/Aman-CERP/codesearch/internal/scanner"
	"github.com/Aman-CERP/codesearch/internal/sparse"
	"github.com/Aman-CERP/codesearch/internal/vectorstore"
)

// defaultExtensions is the recognized set per spec.md §4.I, independent
// of whatever grammars the code chunker's registry supports.
var defaultExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".md":  true,
}

// defaultIgnorePatterns are applied in addition to any .gitignore files
// found under the indexed root and any caller-supplied exclude globs.
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"vendor/",
	"__pycache__/",
	"dist/",
	"build/",
}

// Embedder is the narrow embedding surface the indexer needs.
type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []*chunk.Chunk, opts embed.Options) ([]embed.EmbeddingResult, error)
}

// Store is the narrow vector-store surface the indexer needs.
type Store interface {
	Upsert(ctx context.Context, collection string, points []vectorstore.Point) error
	DeleteByFileHash(ctx context.Context, collection string, fileHash string) error
}

// Options configures a single index_directory call.
type Options struct {
	IncludeGlobs []string
	ExcludeGlobs []string

	// Concurrency bounds how many files are processed in parallel.
	// Defaults to runtime.NumCPU() when zero.
	Concurrency int
}

// Result is the outcome of index_directory or index_single_file.
type Result struct {
	Indexed int
	Skipped int
	Errors  []string
}

// Indexer runs the per-file indexing pipeline. The path->file_hash
// cache is private to the instance, per spec.md §5's shared-resource
// policy, and guarded by mu for safe concurrent per-file processing.
type Indexer struct {
	embedder        Embedder
	store           Store
	codeChunker     chunk.Chunker
	markdownChunker chunk.Chunker
	collection      string

	mu    sync.Mutex
	cache map[string]string // path -> file_hash
}

// New constructs an Indexer. codeChunker/markdownChunker default to
// chunk.NewCodeChunker/NewMarkdownChunker when nil.
func New(embedder Embedder, store Store, collection string, codeChunker, markdownChunker chunk.Chunker) *Indexer {
	if codeChunker == nil {
		codeChunker = chunk.NewCodeChunker()
	}
	if markdownChunker == nil {
		markdownChunker = chunk.NewMarkdownChunker()
	}
	return &Indexer{
		embedder:        embedder,
		store:           store,
		codeChunker:     codeChunker,
		markdownChunker: markdownChunker,
		collection:      collection,
		cache:           make(map[string]string),
	}
}

// Closer is an optional interface for chunkers that hold resources.
type Closer interface {
	Close()
}

// Close releases chunker resources (e.g. the code chunker's tree-sitter
// parser).
func (ix *Indexer) Close() {
	if c, ok := ix.codeChunker.(Closer); ok {
		c.Close()
	}
	if c, ok := ix.markdownChunker.(Closer); ok {
		c.Close()
	}
}

// ClearIndexCache empties the in-process path->file_hash map, forcing
// every file to be treated as new on the next run.
func (ix *Indexer) ClearIndexCache() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.cache = make(map[string]string)
}

// IndexDirectory walks root in deterministic sorted-path order and
// indexes every recognized, non-ignored file, per spec.md §4.I.
// Per-file errors are caught and appended to Result.Errors; they never
// abort the walk.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string, opts Options) (Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Result{}, cserrors.InvalidArgumentError(fmt.Sprintf("invalid root path %q: %v", root, err))
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return Result{}, cserrors.InvalidArgumentError(fmt.Sprintf("root path is not a directory: %s", root))
	}

	matcher := buildMatcher(absRoot, opts.ExcludeGlobs)

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if matcher.MatchesPath(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher.MatchesPath(relPath) {
			return nil
		}
		if !isRecognizedFile(relPath, ix.codeChunker) {
			return nil
		}
		if len(opts.IncludeGlobs) > 0 && !matchesAnyGlob(relPath, opts.IncludeGlobs) {
			return nil
		}

		paths = append(paths, relPath)
		return nil
	})
	if err != nil {
		return Result{}, cserrors.FileFailure(fmt.Sprintf("failed to walk %s", root), err)
	}
	sort.Strings(paths)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	var (
		mu     sync.Mutex
		result Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, relPath := range paths {
		relPath := relPath
		g.Go(func() error {
			absPath := filepath.Join(absRoot, relPath)
			content, readErr := os.ReadFile(absPath)
			if readErr != nil {
				mu.Lock()
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, readErr))
				mu.Unlock()
				return nil
			}

			indexed, skipped, fileErr := ix.indexFile(gctx, relPath, content)
			mu.Lock()
			defer mu.Unlock()
			if fileErr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, fileErr))
				return nil
			}
			if skipped {
				result.Skipped++
			} else if indexed {
				result.Indexed++
			}
			return nil
		})
	}
	_ = g.Wait() // per-file errors are already captured in result.Errors

	return result, nil
}

// IndexSingleFile indexes one file's content directly, bypassing the
// directory walk. path is used as the logical chunk/payload path and
// as the index-cache key.
func (ix *Indexer) IndexSingleFile(ctx context.Context, path string, content []byte) (Result, error) {
	indexed, skipped, err := ix.indexFile(ctx, path, content)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("%s: %v", path, err)}}, nil
	}
	if skipped {
		return Result{Skipped: 1}, nil
	}
	if indexed {
		return Result{Indexed: 1}, nil
	}
	return Result{}, nil
}

// indexFile runs the seven-step algorithm from spec.md §4.I for a
// single file's already-read content.
func (ix *Indexer) indexFile(ctx context.Context, path string, content []byte) (indexed, skipped bool, err error) {
	hash := chunk.FileHash(content)

	ix.mu.Lock()
	prevHash, known := ix.cache[path]
	ix.mu.Unlock()

	if known && prevHash == hash {
		return false, true, nil
	}

	if known {
		if err := ix.store.DeleteByFileHash(ctx, ix.collection, prevHash); err != nil {
			return false, false, cserrors.BackendUnavailable("failed to delete stale points", err).WithDetail("path", path)
		}
	}

	language := scanner.DetectLanguage(path)
	contentType := scanner.DetectContentType(language)

	input := &chunk.FileInput{Path: path, Content: content, Language: language, FileHash: hash}

	var chunks []*chunk.Chunk
	if contentType == scanner.ContentTypeMarkdown {
		chunks, err = ix.markdownChunker.Chunk(ctx, input)
	} else {
		chunks, err = ix.codeChunker.Chunk(ctx, input)
	}
	if err != nil {
		return false, false, cserrors.ParseFailure(fmt.Sprintf("failed to chunk %s", path), err)
	}

	if len(chunks) > 0 {
		embedded, err := ix.embedder.EmbedChunks(ctx, chunks, embed.Options{UseCache: true})
		if err != nil {
			return false, false, cserrors.BackendUnavailable("failed to embed chunks", err).WithDetail("path", path)
		}

		points := make([]vectorstore.Point, len(chunks))
		for i, c := range chunks {
			sv := sparse.Vectorize(c.Text)
			points[i] = vectorstore.Point{
				ChunkID:      c.ID,
				DenseVector:  embedded[i].DenseVector,
				SparseIdx:    sv.Indices,
				SparseValues: sv.Values,
				Path:         c.Metadata.Path,
				Language:     c.Metadata.Language,
				SymbolType:   string(c.Metadata.SymbolType),
				SymbolName:   c.Metadata.SymbolName,
				StartLine:    c.Metadata.StartLine,
				EndLine:      c.Metadata.EndLine,
				FileHash:     c.Metadata.FileHash,
				Text:         c.Text,
			}
		}

		if err := ix.store.Upsert(ctx, ix.collection, points); err != nil {
			return false, false, cserrors.BackendUnavailable("failed to upsert points", err).WithDetail("path", path)
		}
	}

	ix.mu.Lock()
	ix.cache[path] = hash
	ix.mu.Unlock()

	return true, false, nil
}

// buildMatcher compiles defaultIgnorePatterns, every .gitignore found
// under root, and the caller's exclude globs into a single matcher.
func buildMatcher(root string, excludeGlobs []string) *ignore.GitIgnore {
	patterns := make([]string, 0, len(defaultIgnorePatterns)+len(excludeGlobs))
	patterns = append(patterns, defaultIgnorePatterns...)

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != ".gitignore" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		dir, relErr := filepath.Rel(root, filepath.Dir(path))
		if relErr != nil {
			return nil
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if dir != "." {
				line = filepath.ToSlash(filepath.Join(dir, line))
			}
			patterns = append(patterns, line)
		}
		return nil
	})

	patterns = append(patterns, excludeGlobs...)
	return ignore.CompileIgnoreLines(patterns...)
}

// isRecognizedFile reports whether path is indexable: either one of
// spec.md §4.I's default extensions, or a language the code chunker's
// grammar registry supports.
func isRecognizedFile(path string, codeChunker chunk.Chunker) bool {
	ext := filepath.Ext(path)
	if defaultExtensions[ext] {
		return true
	}
	for _, supported := range codeChunker.SupportedExtensions() {
		if supported == ext {
			return true
		}
	}
	return false
}

// matchesAnyGlob reports whether path matches at least one include
// glob. Supports plain filepath.Match syntax plus a "**/" prefix
// meaning "at any depth".
func matchesAnyGlob(path string, globs []string) bool {
	base := filepath.Base(path)
	for _, g := range globs {
		pattern := g
		if strings.HasPrefix(pattern, "**/") {
			pattern = strings.TrimPrefix(pattern, "**/")
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(g, path); matched {
			return true
		}
	}
	return false
}
