// Package cmd provides the CLI commands for folderd.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/okets/folder-mcp-core/internal/logging"
)

var (
	flagModel      string
	flagDimension  int
	flagRemoteHost string
	loggingCleanup func()
)

// NewRootCmd builds the root folderd command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "folderd",
		Short: "Per-folder semantic search indexing engine",
		Long: `folderd scans folders, embeds their files, and answers
vector-similarity queries against the results.

It is the exercise entry point wiring MultiFolderCoordinator and
VectorSearchPool together; it is not a production daemon.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cleanup, err := logging.SetupDefault()
			if err != nil {
				return err
			}
			loggingCleanup = cleanup
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if loggingCleanup != nil {
				loggingCleanup()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagModel, "model", "local:minilm", `embedding model id, "<provider>:<name>"`)
	root.PersistentFlags().IntVar(&flagDimension, "dimension", 256, "embedding vector dimension for --model")
	root.PersistentFlags().StringVar(&flagRemoteHost, "remote-host", "", "host for remote: models (defaults to http://localhost:11434)")

	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newStatusCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func logger() *slog.Logger {
	return slog.Default()
}
