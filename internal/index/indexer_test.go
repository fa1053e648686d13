package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/codesearch/internal/chunk"
	"github.com/Aman-CERP/codesearch/internal/embed"
	"github.com/Aman-CERP/codesearch/internal/vectorstore"
)

// fakeChunker produces one chunk per file, keyed by file hash, so tests
// don't depend on tree-sitter grammars.
type fakeChunker struct {
	err error
}

func (f *fakeChunker) Chunk(ctx context.Context, file *chunk.FileInput) ([]*chunk.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(file.Content) == 0 {
		return nil, nil
	}
	hash := file.FileHash
	if hash == "" {
		hash = chunk.FileHash(file.Content)
	}
	return []*chunk.Chunk{{
		ID:   hash + "-1-file",
		Text: string(file.Content),
		Metadata: chunk.Metadata{
			Path:       file.Path,
			Language:   file.Language,
			SymbolType: chunk.SymbolTypeModule,
			StartLine:  1,
			EndLine:    1,
			FileHash:   hash,
		},
	}}, nil
}

func (f *fakeChunker) SupportedExtensions() []string { return []string{".go", ".py"} }

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedChunks(ctx context.Context, chunks []*chunk.Chunk, opts embed.Options) ([]embed.EmbeddingResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	results := make([]embed.EmbeddingResult, len(chunks))
	for i, c := range chunks {
		results[i] = embed.EmbeddingResult{ChunkID: c.ID, DenseVector: []float32{0.1, 0.2}}
	}
	return results, nil
}

type fakeStore struct {
	err           error
	upserted      []vectorstore.Point
	deletedHashes []string
}

func (f *fakeStore) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *fakeStore) DeleteByFileHash(ctx context.Context, collection string, fileHash string) error {
	f.deletedHashes = append(f.deletedHashes, fileHash)
	return nil
}

func newTestIndexer(embedder Embedder, store Store) *Indexer {
	return New(embedder, store, "test-collection", &fakeChunker{}, &fakeChunker{})
}

func TestIndexSingleFile_NewFile_IndexesAndUpserts(t *testing.T) {
	store := &fakeStore{}
	ix := newTestIndexer(&fakeEmbedder{}, store)

	result, err := ix.IndexSingleFile(context.Background(), "main.go", []byte("package main"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	assert.Empty(t, result.Errors)
	assert.Len(t, store.upserted, 1)
}

func TestIndexSingleFile_UnchangedFile_IsSkipped(t *testing.T) {
	store := &fakeStore{}
	ix := newTestIndexer(&fakeEmbedder{}, store)

	content := []byte("package main")
	_, err := ix.IndexSingleFile(context.Background(), "main.go", content)
	require.NoError(t, err)

	result, err := ix.IndexSingleFile(context.Background(), "main.go", content)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Indexed)
	assert.Len(t, store.upserted, 1, "second pass must not re-upsert")
}

func TestIndexSingleFile_ChangedFile_DeletesOldHashThenReindexes(t *testing.T) {
	store := &fakeStore{}
	ix := newTestIndexer(&fakeEmbedder{}, store)

	_, err := ix.IndexSingleFile(context.Background(), "main.go", []byte("package main\nfunc A() {}"))
	require.NoError(t, err)

	result, err := ix.IndexSingleFile(context.Background(), "main.go", []byte("package main\nfunc B() {}"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	assert.Len(t, store.deletedHashes, 1)
	assert.Len(t, store.upserted, 2)
}

func TestIndexSingleFile_EmbedderError_IsCapturedNotFatal(t *testing.T) {
	store := &fakeStore{}
	ix := newTestIndexer(&fakeEmbedder{err: assertError("backend down")}, store)

	result, err := ix.IndexSingleFile(context.Background(), "main.go", []byte("package main"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Indexed)
	require.Len(t, result.Errors, 1)
}

func TestClearIndexCache_ForcesReindex(t *testing.T) {
	store := &fakeStore{}
	ix := newTestIndexer(&fakeEmbedder{}, store)

	content := []byte("package main")
	_, _ = ix.IndexSingleFile(context.Background(), "main.go", content)
	ix.ClearIndexCache()

	result, err := ix.IndexSingleFile(context.Background(), "main.go", content)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	assert.Len(t, store.upserted, 2)
}

func TestIndexDirectory_WalksAndIndexesRecognizedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o644))

	store := &fakeStore{}
	ix := newTestIndexer(&fakeEmbedder{}, store)

	result, err := ix.IndexDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexed)
	assert.Empty(t, result.Errors)
}

func TestIndexDirectory_RespectsGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("ignored.go\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.go"), []byte("package main"), 0o644))

	store := &fakeStore{}
	ix := newTestIndexer(&fakeEmbedder{}, store)

	result, err := ix.IndexDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
}

func TestIndexDirectory_SecondRunSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))

	store := &fakeStore{}
	ix := newTestIndexer(&fakeEmbedder{}, store)

	_, err := ix.IndexDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)

	result, err := ix.IndexDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Indexed)
	assert.Equal(t, 1, result.Skipped)
}

func TestIndexDirectory_EmbedErrorsAreCapturedInResult(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))

	store := &fakeStore{}
	ix := newTestIndexer(&fakeEmbedder{err: assertError("boom")}, store)

	result, err := ix.IndexDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Indexed)
	require.Len(t, result.Errors, 1)
}

func TestIndexDirectory_InvalidRoot_ReturnsError(t *testing.T) {
	ix := newTestIndexer(&fakeEmbedder{}, &fakeStore{})
	_, err := ix.IndexDirectory(context.Background(), "/no/such/directory/here", Options{})
	require.Error(t, err)
}

type assertErrorType struct{ msg string }

func (e assertErrorType) Error() string { return e.msg }

func assertError(msg string) error { return assertErrorType{msg: msg} }
