package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesearch/internal/chunk"
	"github.com/Aman-CERP/codesearch/internal/config"
	"github.com/Aman-CERP/codesearch/internal/embed"
	"github.com/Aman-CERP/codesearch/internal/index"
	"github.com/Aman-CERP/codesearch/internal/output"
	"github.com/Aman-CERP/codesearch/internal/vectorstore"
)

func newIndexCmd() *cobra.Command {
	var excludeGlobs []string
	var includeGlobs []string

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory into the vector store",
		Long: `Walks the given directory (default: current directory), chunks
every recognized source file, embeds and sparse-vectorizes the
chunks, and upserts the result into Qdrant. Files whose content hash
is unchanged since the last run are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runIndex(cmd.Context(), cmd, root, includeGlobs, excludeGlobs)
		},
	}

	cmd.Flags().StringSliceVar(&includeGlobs, "include", nil, "Only index files matching these glob patterns (repeatable)")
	cmd.Flags().StringSliceVar(&excludeGlobs, "exclude", nil, "Additional exclude glob patterns (repeatable)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, root string, includeGlobs, excludeGlobs []string) error {
	out := output.New(cmd.OutOrStdout())

	absRoot, err := resolveDir(root)
	if err != nil {
		return err
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := vectorstore.New(cfg.VectorStoreConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	defer store.Close()

	embedClient, err := embed.NewClientFromConfig(ctx, cfg.EmbedConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to ollama: %w", err)
	}

	if err := store.EnsureCollection(ctx, cfg.Collection, vectorstore.CollectionConfig{
		DenseDimensions: embedClient.Dimensions(),
	}); err != nil {
		return fmt.Errorf("failed to ensure collection %q: %w", cfg.Collection, err)
	}

	codeChunker := chunk.NewCodeChunkerWithOptions(chunk.CodeChunkerOptions{
		MaxChunkSize: cfg.Search.ChunkSize,
	})
	markdownChunker := chunk.NewMarkdownChunkerWithOptions(chunk.MarkdownChunkerOptions{
		MaxChunkSize: cfg.Search.ChunkSize,
	})

	indexer := index.New(embedClient, store, cfg.Collection, codeChunker, markdownChunker)
	defer indexer.Close()

	out.Statusf("📂", "Indexing %s into collection %q...", absRoot, cfg.Collection)

	// Configured path globs apply alongside the command-line flags.
	if len(includeGlobs) == 0 {
		includeGlobs = cfg.Paths.Include
	}
	excludeGlobs = append(append([]string{}, cfg.Paths.Exclude...), excludeGlobs...)

	result, err := indexer.IndexDirectory(ctx, absRoot, index.Options{
		IncludeGlobs: includeGlobs,
		ExcludeGlobs: excludeGlobs,
		Concurrency:  cfg.Performance.IndexWorkers,
	})
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	out.Successf("Indexed %d files, skipped %d unchanged", result.Indexed, result.Skipped)
	for _, e := range result.Errors {
		out.Warning(e)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d files failed to index", len(result.Errors))
	}
	return nil
}

// resolveDir validates that path is an existing directory and returns
// its absolute form.
func resolveDir(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", path)
	}
	return filepath.Abs(path)
}
