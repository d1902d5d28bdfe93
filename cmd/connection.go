package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/graphium/internal/config"
	"github.com/dukerupert/graphium/internal/connection"
	"github.com/dukerupert/graphium/internal/health"
	"github.com/spf13/cobra"
)

var connectionCmd = &cobra.Command{
	Use:     "connection",
	Aliases: []string{"conn"},
	Short:   "Manage Graphium server connections",
}

var connectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured connections",
	RunE:  runConnectionList,
}

var connectionAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionAdd,
}

var connectionEditCmd = &cobra.Command{
	Use:   "edit [name]",
	Short: "Change fields of a connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionEdit,
}

var connectionRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionRemove,
}

var connectionCheckCmd = &cobra.Command{
	Use:   "check [name]",
	Short: "Check that a connection reaches a Graphium server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConnectionCheck,
}

var connectionSelectCmd = &cobra.Command{
	Use:   "select [name]",
	Short: "Make a connection the default",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionSelect,
}

func init() {
	for _, c := range []*cobra.Command{connectionAddCmd, connectionEditCmd} {
		c.Flags().String("host", connection.DefaultHost, "Server host, with or without scheme")
		c.Flags().Int("port", 0, "Server port (0 for none)")
		c.Flags().String("base-path", connection.DefaultBasePath, "Path the API is mounted under")
		c.Flags().String("kind", string(connection.KindPostgres), "Backend kind (POSTGRES or NEO4J)")
		c.Flags().String("auth-ref", "", "Credential reference for Basic auth (see 'graphium auth set')")
		c.Flags().Bool("read-only", false, "Refuse mutating requests on this connection")
	}
	connectionListCmd.Flags().String("kind", "", "Only list connections of this kind")

	connectionCmd.AddCommand(connectionListCmd)
	connectionCmd.AddCommand(connectionAddCmd)
	connectionCmd.AddCommand(connectionEditCmd)
	connectionCmd.AddCommand(connectionRemoveCmd)
	connectionCmd.AddCommand(connectionCheckCmd)
	connectionCmd.AddCommand(connectionSelectCmd)
	rootCmd.AddCommand(connectionCmd)
}

func runConnectionList(cmd *cobra.Command, args []string) error {
	var filter *connection.Kind
	if k, _ := cmd.Flags().GetString("kind"); k != "" {
		kind, err := connection.ParseKind(k)
		if err != nil {
			return err
		}
		filter = &kind
	}
	all, err := conns.Load(filter)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No connections configured.")
		return nil
	}

	def := prefs.String(config.KeyDefaultServer)
	w := newTable()
	fmt.Fprintln(w, "NAME\tKIND\tURL\tAUTH\tREAD-ONLY\tDEFAULT")
	fmt.Fprintln(w, "────\t────\t───\t────\t─────────\t───────")
	for _, c := range all {
		auth := c.AuthRef
		if auth == "" {
			auth = "-"
		}
		mark := ""
		if c.Name == def {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Name, c.Kind, c.URL(), auth, yesNo(c.ReadOnly), mark)
	}
	return w.Flush()
}

func applyConnectionFlags(cmd *cobra.Command, c *connection.Connection) error {
	flags := cmd.Flags()
	if flags.Changed("host") || c.Host == "" {
		c.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		port, _ := flags.GetInt("port")
		if port == 0 {
			c.Port = nil
		} else {
			c.Port = connection.IntPtr(port)
		}
	}
	if flags.Changed("base-path") {
		c.BasePath, _ = flags.GetString("base-path")
	}
	if flags.Changed("kind") {
		k, _ := flags.GetString("kind")
		kind, err := connection.ParseKind(k)
		if err != nil {
			return err
		}
		c.Kind = kind
	}
	if flags.Changed("auth-ref") {
		c.AuthRef, _ = flags.GetString("auth-ref")
	}
	if flags.Changed("read-only") {
		c.ReadOnly, _ = flags.GetBool("read-only")
	}
	return nil
}

func runConnectionAdd(cmd *cobra.Command, args []string) error {
	existing, err := conns.SelectByName(args[0], nil)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("connection %q already exists, use 'graphium connection edit'", args[0])
	}

	c := connection.New(args[0])
	if err := applyConnectionFlags(cmd, &c); err != nil {
		return err
	}
	if err := conns.Add(c); err != nil {
		return err
	}
	fmt.Printf("Added connection %s (%s)\n", c.Name, c.URL())
	return nil
}

func runConnectionEdit(cmd *cobra.Command, args []string) error {
	c, err := conns.SelectByName(args[0], nil)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("connection %q not found", args[0])
	}
	if err := applyConnectionFlags(cmd, c); err != nil {
		return err
	}
	if err := conns.Update(args[0], *c); err != nil {
		return err
	}
	fmt.Printf("Updated connection %s (%s)\n", c.Name, c.URL())
	return nil
}

func runConnectionRemove(cmd *cobra.Command, args []string) error {
	if err := conns.Remove(args[0]); err != nil {
		return err
	}
	if prefs.String(config.KeyDefaultServer) == args[0] {
		if err := prefs.Set(config.KeyDefaultServer, ""); err != nil {
			return err
		}
	}
	fmt.Printf("Removed connection %s\n", args[0])
	return nil
}

func runConnectionCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		connName = args[0]
	}
	conn, err := selectedConnection()
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}

	r, err := health.Check(cmd.Context(), client, *conn)
	if err != nil {
		return err
	}

	fmt.Printf("Connection:   %s\n", r.Connection)
	fmt.Printf("URL:          %s\n", r.URL)
	fmt.Printf("Server:       [%s] ", r.Server.Status)
	if r.Server.Error != "" {
		fmt.Println(r.Server.Error)
	} else {
		fmt.Printf("%s %s (%s)\n", r.Server.ServerName, r.Server.ServerVersion, r.Server.Latency.Round(time.Millisecond))
	}
	fmt.Printf("Capabilities: [%s] ", r.Capabilities.Status)
	switch {
	case r.Capabilities.Error != "":
		fmt.Println(r.Capabilities.Error)
	case len(r.Capabilities.Names) > 0:
		fmt.Println(strings.Join(r.Capabilities.Names, ", "))
	default:
		fmt.Println("not reported")
	}
	fmt.Printf("Read-only:    [%s] %s\n", r.ReadOnly, yesNo(conn.ReadOnly))
	fmt.Printf("\nSummary: %s\n", r.Summary)
	if r.Summary == health.StatusFail {
		return fmt.Errorf("connection %s failed its check", conn.Name)
	}
	return nil
}

func runConnectionSelect(cmd *cobra.Command, args []string) error {
	c, err := conns.SelectByName(args[0], nil)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("connection %q not found", args[0])
	}
	if err := prefs.Set(config.KeyDefaultServer, c.Name); err != nil {
		return err
	}
	fmt.Printf("Default connection set to %s\n", c.Name)
	return nil
}
