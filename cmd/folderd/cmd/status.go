package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okets/folder-mcp-core/internal/config"
	"github.com/okets/folder-mcp-core/internal/coordinator"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <folder>...",
		Short: "Report each folder's current lifecycle status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(args)
		},
	}
}

func runStatus(paths []string) error {
	c := coordinator.New(config.DefaultCoordinatorConfig(), flagRemoteHost)

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		folderCfg := config.DefaultFolderConfig()
		folderCfg.FolderID = abs
		folderCfg.FolderPath = abs
		folderCfg.Model = flagModel
		folderCfg.ModelDimension = flagDimension
		if err := c.RegisterFolder(abs, folderCfg); err != nil {
			return err
		}
	}

	agg := c.GetAllFoldersStatus()
	fmt.Printf("%d folder(s), %.0f%% overall\n", agg.TotalFolders, agg.OverallPercent)
	for _, f := range agg.Folders {
		fmt.Printf("  %-40s %-10s %.0f%%\n", f.FolderPath, f.Status, f.Progress.Percentage)
	}
	return nil
}
