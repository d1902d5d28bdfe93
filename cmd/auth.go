package cmd

import (
	"fmt"
	"os"

	"github.com/dukerupert/graphium/internal/config"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Basic auth credentials referenced by connections",
}

var authSetCmd = &cobra.Command{
	Use:   "set [ref]",
	Short: "Store a username and password under a reference",
	Long: `Stores credentials under [ref]. Point a connection at them with
'graphium connection edit <name> --auth-ref <ref>'. When GRAPHIUM_MASTER_PASSWORD
is set, or --seal is given, the password is sealed with the master password.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthSet,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credential references",
	RunE:  runAuthList,
}

var authDeleteCmd = &cobra.Command{
	Use:   "delete [ref]",
	Short: "Delete stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthDelete,
}

func init() {
	authSetCmd.Flags().StringP("user", "u", "", "Username (required)")
	authSetCmd.Flags().Bool("seal", false, "Prompt for a master password and seal the password")
	authSetCmd.MarkFlagRequired("user")

	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authDeleteCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	master := os.Getenv(masterPasswordEnv)
	if seal, _ := cmd.Flags().GetBool("seal"); seal && master == "" {
		var err error
		if master, err = promptSecret("Master password: "); err != nil {
			return err
		}
	}
	vault, err := config.NewVault(store, master)
	if err != nil {
		return err
	}

	pass, err := promptSecret(fmt.Sprintf("Password for %s: ", user))
	if err != nil {
		return err
	}
	if err := vault.Set(args[0], user, pass); err != nil {
		return err
	}
	state := "plain"
	if vault.Sealing() {
		state = "sealed"
	}
	fmt.Printf("Stored credentials %s (%s)\n", args[0], state)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	vault, err := config.NewVault(store, "")
	if err != nil {
		return err
	}
	refs, err := vault.Refs()
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Println("No credentials stored.")
		return nil
	}

	users := make(map[string][]string)
	all, err := conns.Load(nil)
	if err != nil {
		return err
	}
	for _, c := range all {
		if c.AuthRef != "" {
			users[c.AuthRef] = append(users[c.AuthRef], c.Name)
		}
	}

	w := newTable()
	fmt.Fprintln(w, "REF\tUSED BY")
	fmt.Fprintln(w, "───\t───────")
	for _, r := range refs {
		used := "-"
		if names := users[r]; len(names) > 0 {
			used = fmt.Sprint(names)
		}
		fmt.Fprintf(w, "%s\t%s\n", r, used)
	}
	return w.Flush()
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	vault, err := config.NewVault(store, "")
	if err != nil {
		return err
	}
	if err := vault.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted credentials %s\n", args[0])
	return nil
}
