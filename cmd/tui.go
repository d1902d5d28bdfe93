package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dukerupert/graphium/internal/config"
	"github.com/dukerupert/graphium/tui"
	"github.com/dukerupert/graphium/tui/connections"
	"github.com/dukerupert/graphium/tui/graphlist"
	"github.com/dukerupert/graphium/tui/menu"
	"github.com/dukerupert/graphium/tui/versions"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	session := &tui.Session{
		Store:  conns,
		Client: client,
		Graph:  prefs.String(config.KeyDefaultGraph),
	}

	// Preselect the default connection; failure only means starting unbound.
	if conn, err := selectedConnection(); err == nil {
		if err := client.Connect(cmd.Context(), *conn); err != nil {
			grip.Warning(message.WrapError(err, message.Fields{
				"message":    "default connection unreachable",
				"connection": conn.Name,
			}))
		}
	}

	factories := map[tui.Screen]tui.ScreenFactory{
		tui.ScreenMenu:        func() tea.Model { return menu.New(session) },
		tui.ScreenConnections: func() tea.Model { return connections.New(session) },
		tui.ScreenGraphs:      func() tea.Model { return graphlist.New(session) },
		tui.ScreenVersions:    func() tea.Model { return versions.New(session) },
	}
	screens := map[tui.Screen]tea.Model{
		tui.ScreenMenu: menu.New(session),
	}

	return tui.Run(tui.ScreenMenu, screens, factories)
}
