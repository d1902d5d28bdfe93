package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/graphium/internal/config"
	"github.com/dukerupert/graphium/internal/connection"
	"github.com/dukerupert/graphium/internal/rest"
	"github.com/joho/godotenv"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/send"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const masterPasswordEnv = "GRAPHIUM_MASTER_PASSWORD"

var (
	Version = "dev"
	store   *config.SQLiteStore
	prefs   *config.Preferences
	conns   *connection.Store

	debug    bool
	connName string
)

var rootCmd = &cobra.Command{
	Use:   "graphium",
	Short: "Client for Graphium road graph servers",
	Long: `Graphium manages connections to Graphium servers and works with their graphs:
list and upload versions, export segments, map-match tracks, route, and run the
OSM and GIP converters.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}
		if store == nil || prefs == nil {
			return fmt.Errorf("no settings database available")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log requests at debug level")
	rootCmd.PersistentFlags().StringVarP(&connName, "connection", "c", "", "Connection to use (defaults to default_server)")
	cobra.OnInitialize(initStore)
}

func initStore() {
	// .env is optional
	_ = godotenv.Load()

	s, err := config.NewSQLiteStore(config.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open database: %v\n", err)
		return
	}
	store = s
	conns = connection.NewStore(store)

	p, err := config.NewPreferences(config.PreferencesPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read preferences: %v\n", err)
		return
	}
	prefs = p
}

// setupLogging sends log output to stderr so stdout stays usable for tables,
// JSON documents and the MCP stdio transport.
func setupLogging() error {
	threshold := level.Info
	if debug {
		threshold = level.Debug
	}
	sender := send.MakeErrorLogger()
	sender.SetName("graphium")
	if err := sender.SetLevel(send.LevelInfo{Default: level.Info, Threshold: threshold}); err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	return grip.SetSender(sender)
}

// credentialSource opens sealed credentials, asking for the master password
// on first use when it is not in the environment.
type credentialSource struct {
	vault *config.Vault
}

func newCredentialSource() (*credentialSource, error) {
	v, err := config.NewVault(store, os.Getenv(masterPasswordEnv))
	if err != nil {
		return nil, err
	}
	return &credentialSource{vault: v}, nil
}

func (c *credentialSource) Credentials(authRef string) (string, string, error) {
	user, pass, err := c.vault.Credentials(authRef)
	if !errors.Is(err, config.ErrLocked) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return user, pass, err
	}
	master, err := promptSecret("Master password: ")
	if err != nil {
		return "", "", err
	}
	v, err := config.NewVault(store, master)
	if err != nil {
		return "", "", err
	}
	c.vault = v
	return v.Credentials(authRef)
}

func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// newClient returns an unbound client configured from preferences.
func newClient() (*rest.Client, error) {
	creds, err := newCredentialSource()
	if err != nil {
		return nil, err
	}
	timeout := rest.DefaultTimeout
	if prefs != nil {
		timeout = prefs.Timeout()
	}
	return rest.New(rest.WithTimeout(timeout), rest.WithCredentials(creds)), nil
}

// selectedConnection resolves --connection, then default_server, then the
// only configured connection.
func selectedConnection() (*connection.Connection, error) {
	name := connName
	if name == "" && prefs != nil {
		name = prefs.String(config.KeyDefaultServer)
	}
	if name == "" {
		all, err := conns.Load(nil)
		if err != nil {
			return nil, err
		}
		switch len(all) {
		case 0:
			return nil, fmt.Errorf("no connections configured, run 'graphium connection add' first")
		case 1:
			return &all[0], nil
		default:
			return nil, fmt.Errorf("several connections configured, pass --connection or run 'graphium connection select'")
		}
	}
	c, err := conns.SelectByName(name, nil)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("connection %q not found", name)
	}
	return c, nil
}

// connect returns a client bound to the selected connection after probing it.
func connect(ctx context.Context) (*rest.Client, error) {
	conn, err := selectedConnection()
	if err != nil {
		return nil, err
	}
	c, err := newClient()
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx, *conn); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", conn.Name, err)
	}
	return c, nil
}

func hdDefault(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("hd") {
		hd, _ := cmd.Flags().GetBool("hd")
		return hd
	}
	return prefs != nil && prefs.Bool(config.KeyHDEnabled)
}
