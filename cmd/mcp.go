package cmd

import (
	"github.com/dukerupert/graphium/internal/config"
	mcpserver "github.com/dukerupert/graphium/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve graphium tools over MCP on stdin/stdout",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	def := connName
	if def == "" {
		def = prefs.String(config.KeyDefaultServer)
	}
	srv := mcpserver.New(mcpserver.Deps{
		Store:             conns,
		Client:            client,
		DefaultConnection: def,
	})
	return srv.ServeStdio()
}
