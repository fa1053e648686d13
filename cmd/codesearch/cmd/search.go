package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesearch/internal/config"
	"github.com/Aman-CERP/codesearch/internal/embed"
	"github.com/Aman-CERP/codesearch/internal/output"
	"github.com/Aman-CERP/codesearch/internal/result"
	"github.com/Aman-CERP/codesearch/internal/retrieve"
	"github.com/Aman-CERP/codesearch/internal/vectorstore"
)

type searchOptions struct {
	limit    int
	language string
	format   string // "text", "json", "markdown"
	bm25Only bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `Runs a hybrid (BM25 + semantic) search against the indexed
codebase and prints the ranked results.

Examples:
  codesearch search "authentication middleware"
  codesearch search "handleRequest" --limit 5 --language go
  codesearch search "error handling" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", retrieve.DefaultLimit, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Filter by language (e.g., go, python)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, markdown")
	cmd.Flags().BoolVar(&opts.bm25Only, "bm25-only", false, "Use keyword search only (skip semantic search)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	root, err := resolveDir(".")
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
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

	retriever := retrieve.New(embedClient, store)

	searchOpts := retrieve.NewOptions()
	searchOpts.Limit = opts.limit
	searchOpts.UseHybrid = !opts.bm25Only
	if opts.language != "" {
		searchOpts.Filters = vectorstore.Filters{Language: opts.language}
	}

	resp, err := retriever.HybridSearchWithWarning(ctx, cfg.Collection, query, searchOpts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if resp.Warning != "" {
		out.Warning(resp.Warning)
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result.FormatResults(resp.Results))
	case "markdown":
		_, err := fmt.Fprint(cmd.OutOrStdout(), result.FormatMarkdown(resp.Results))
		return err
	default:
		return printTextResults(out, resp.Results)
	}
}

func printTextResults(out *output.Writer, results []retrieve.SearchResult) error {
	if len(results) == 0 {
		out.Status("", "No results found.")
		return nil
	}
	for _, r := range results {
		out.Statusf("", "%s:%d-%d", r.Chunk.Path, r.Chunk.StartLine, r.Chunk.EndLine)
		out.Code(r.Chunk.Text)
		out.Newline()
	}
	return nil
}
