package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okets/folder-mcp-core/internal/config"
	"github.com/okets/folder-mcp-core/internal/embedpipeline"
	"github.com/okets/folder-mcp-core/internal/vectorsearch"
)

func newSearchCmd() *cobra.Command {
	var topK int
	var threshold float64
	var all bool

	cmd := &cobra.Command{
		Use:   "search <folder> <query>...",
		Short: "Embed a query and search an indexed folder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := args[0]
			query := strings.Join(args[1:], " ")
			return runSearch(folder, query, topK, threshold, all)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (0 = default)")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", -1, "minimum similarity score (-1 = default)")
	cmd.Flags().BoolVar(&all, "all", false, "search every registered folder instead of just <folder>")

	return cmd
}

func runSearch(folder, query string, topK int, threshold float64, all bool) error {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", folder, err)
	}

	registry := embedpipeline.NewBackendRegistry(flagRemoteHost)
	defer registry.CloseAll()

	ctx := context.Background()
	backend, err := registry.Get(ctx, flagModel)
	if err != nil {
		return fmt.Errorf("load embedding backend: %w", err)
	}

	embeddings, err := backend.Embed(ctx, []string{query})
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0].Vector) == 0 {
		return fmt.Errorf("embedding backend returned no vector for query")
	}

	pool := vectorsearch.New(config.DefaultSearchPoolConfig())
	defer pool.Shutdown()

	folderCfg := config.DefaultFolderConfig()
	folderCfg.FolderID = abs
	folderCfg.FolderPath = abs
	folderCfg.Model = flagModel
	folderCfg.ModelDimension = flagDimension
	pool.Register(abs, folderCfg)

	var results []vectorsearch.SearchResult
	if all {
		results, err = pool.SearchAll(embeddings[0].Vector, topK, threshold)
	} else {
		results, err = pool.SearchInFolder(embeddings[0].Vector, abs, topK, threshold)
	}
	if err != nil {
		return err
	}

	for i, r := range results {
		fmt.Printf("%d. [%.4f] %s#%d: %s\n", i+1, r.Score, r.FilePath, r.ChunkIndex, truncate(r.Content, 120))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
