package cmd

import (
	"fmt"
	"sort"

	"github.com/dukerupert/graphium/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change graphium preferences",
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print current preferences",
	RunE:  runConfigView,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a preference",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "List raw entries of the settings database",
	RunE:  runConfigSettings,
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSettingsCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigView(cmd *cobra.Command, args []string) error {
	out, err := yaml.Marshal(prefs.All())
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n", config.PreferencesPath())
	fmt.Print(string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := prefs.Set(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", args[0], args[1])
	return nil
}

func runConfigSettings(cmd *cobra.Command, args []string) error {
	settings, err := store.ListSettings()
	if err != nil {
		return err
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })

	fmt.Printf("# %s\n", config.DBPath())
	w := newTable()
	fmt.Fprintln(w, "KEY\tVALUE")
	fmt.Fprintln(w, "───\t─────")
	for _, s := range settings {
		v := s.Value
		if len(v) > 60 {
			v = v[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\n", s.Key, v)
	}
	return w.Flush()
}
