package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kursio/weft"
	mcpadapter "github.com/kursio/weft/pkg/adapters/mcp"
	"github.com/kursio/weft/pkg/llm/openai"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <graph-file>...",
	Short: "Serve training flows as an MCP server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		ssePort, _ := cmd.Flags().GetInt("sse-port")

		engine := weft.New(openai.New(), weft.WithLogger(logger))
		for _, path := range args {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if err := engine.Graphs().RegisterFile(name, path); err != nil {
				return fmt.Errorf("load graph %s: %w", path, err)
			}
		}

		srv := mcpadapter.NewServer(engine, mcpadapter.WithLogger(logger))
		if ssePort > 0 {
			return srv.ServeSSE(cmd.Context(), ssePort)
		}
		return srv.ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().Int("sse-port", 0, "Serve over SSE on this port instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}
