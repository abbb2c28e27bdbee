// Command folderd is a thin CLI over MultiFolderCoordinator and
// VectorSearchPool: index one or more folders, then query them back.
package main

import (
	"os"

	"github.com/okets/folder-mcp-core/cmd/folderd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
