package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukerupert/graphium/internal/config"
	"github.com/dukerupert/graphium/internal/graphs"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// countWorkers bounds the concurrent version listings of 'graph count'.
const countWorkers = 4

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Work with graphs and graph versions",
}

var graphListCmd = &cobra.Command{
	Use:   "list",
	Short: "List graph names",
	RunE:  runGraphList,
}

var graphVersionsCmd = &cobra.Command{
	Use:   "versions [graph]",
	Short: "List the versions of a graph",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGraphVersions,
}

var graphUploadCmd = &cobra.Command{
	Use:   "upload [graph] [version] [file]",
	Short: "Upload a Graphium JSON file as a new graph version",
	Args:  cobra.ExactArgs(3),
	RunE:  runGraphUpload,
}

var graphRemoveCmd = &cobra.Command{
	Use:   "remove [graph] [version]",
	Short: "Remove a graph version",
	Args:  cobra.ExactArgs(2),
	RunE:  runGraphRemove,
}

var graphSetCmd = &cobra.Command{
	Use:   "set [graph] [version] [attribute] [value]",
	Short: "Set a metadata attribute of a graph version",
	Long:  "Sets one metadata attribute such as state, validFrom, validTo or description. The server decides whether the change is allowed.",
	Args:  cobra.ExactArgs(4),
	RunE:  runGraphSet,
}

var graphActivateCmd = &cobra.Command{
	Use:   "activate [graph] [version]",
	Short: "Set a graph version's state to ACTIVE",
	Args:  cobra.ExactArgs(2),
	RunE:  runGraphActivate,
}

var graphChangesCmd = &cobra.Command{
	Use:   "changes [graph] [from] [to]",
	Short: "List changesets of a graph, or the changes between two versions",
	Args:  cobra.RangeArgs(1, 3),
	RunE:  runGraphChanges,
}

var graphDetectCmd = &cobra.Command{
	Use:   "detect [graph] [from] [to]",
	Short: "Run change detection between two versions",
	Args:  cobra.ExactArgs(3),
	RunE:  runGraphDetect,
}

var graphCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count versions per graph",
	RunE:  runGraphCount,
}

func init() {
	graphVersionsCmd.Flags().String("state", "", "Only list versions in this state")
	graphVersionsCmd.Flags().Bool("json", false, "Print the raw metadata as JSON")
	graphCountCmd.Flags().String("state", "", "Only count versions in this state")

	graphUploadCmd.Flags().Bool("hd", false, "Upload as HD segments")
	graphUploadCmd.Flags().Bool("override", false, "Replace the version if it already exists")
	graphRemoveCmd.Flags().Bool("hd", false, "Remove HD segments")
	graphRemoveCmd.Flags().Bool("keep-metadata", true, "Keep the metadata and mark the version DELETED (--keep-metadata=false removes it)")

	graphCmd.AddCommand(graphListCmd)
	graphCmd.AddCommand(graphVersionsCmd)
	graphCmd.AddCommand(graphUploadCmd)
	graphCmd.AddCommand(graphRemoveCmd)
	graphCmd.AddCommand(graphSetCmd)
	graphCmd.AddCommand(graphActivateCmd)
	graphCmd.AddCommand(graphChangesCmd)
	graphCmd.AddCommand(graphDetectCmd)
	graphCmd.AddCommand(graphCountCmd)
	rootCmd.AddCommand(graphCmd)
}

func newGraphsAPI(cmd *cobra.Command) (*graphs.API, error) {
	c, err := connect(cmd.Context())
	if err != nil {
		return nil, err
	}
	return graphs.NewAPI(c), nil
}

// graphArg returns args[0] or the default_graph preference.
func graphArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if g := prefs.String(config.KeyDefaultGraph); g != "" {
		return g, nil
	}
	return "", fmt.Errorf("no graph given and no default_graph configured")
}

func runGraphList(cmd *cobra.Command, args []string) error {
	api, err := newGraphsAPI(cmd)
	if err != nil {
		return err
	}
	names, err := api.GraphNames(cmd.Context())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No graphs found.")
		return nil
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func runGraphVersions(cmd *cobra.Command, args []string) error {
	graph, err := graphArg(args)
	if err != nil {
		return err
	}
	api, err := newGraphsAPI(cmd)
	if err != nil {
		return err
	}
	state, _ := cmd.Flags().GetString("state")
	versions, err := api.Versions(cmd.Context(), graph, strings.ToUpper(state))
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(versions)
	}
	if len(versions) == 0 {
		fmt.Printf("No versions of %s found.\n", graph)
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "VERSION\tSTATE\tSEGMENTS\tVALID FROM\tVALID TO\tCREATED")
	fmt.Fprintln(w, "───────\t─────\t────────\t──────────\t────────\t───────")
	for _, v := range versions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Version,
			v.State,
			humanize.Comma(int64(v.SegmentsCount)),
			millis(v.ValidFrom),
			millis(v.ValidTo),
			millis(v.CreationTimestamp),
		)
	}
	return w.Flush()
}

func runGraphUpload(cmd *cobra.Command, args []string) error {
	graph, version, path := args[0], args[1], args[2]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	api, err := newGraphsAPI(cmd)
	if err != nil {
		return err
	}
	override, _ := cmd.Flags().GetBool("override")
	fmt.Printf("Uploading %s (%s) as %s/%s...\n", filepath.Base(path), humanize.Bytes(uint64(info.Size())), graph, version)
	meta, err := api.AddVersion(cmd.Context(), f, filepath.Base(path), graph, version, hdDefault(cmd), override)
	if err != nil {
		return err
	}
	return printJSON(meta)
}

func runGraphRemove(cmd *cobra.Command, args []string) error {
	api, err := newGraphsAPI(cmd)
	if err != nil {
		return err
	}
	keep, _ := cmd.Flags().GetBool("keep-metadata")
	if _, err := api.RemoveVersion(cmd.Context(), args[0], args[1], hdDefault(cmd), keep); err != nil {
		return err
	}
	if keep {
		fmt.Printf("Removed segments of %s/%s, metadata kept as DELETED\n", args[0], args[1])
	} else {
		fmt.Printf("Removed %s/%s\n", args[0], args[1])
	}
	return nil
}

func runGraphSet(cmd *cobra.Command, args []string) error {
	api, err := newGraphsAPI(cmd)
	if err != nil {
		return err
	}
	res, err := api.SetAttribute(cmd.Context(), args[0], args[1], args[2], args[3])
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runGraphActivate(cmd *cobra.Command, args []string) error {
	api, err := newGraphsAPI(cmd)
	if err != nil {
		return err
	}
	if _, err := api.Activate(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("%s/%s is now %s\n", args[0], args[1], graphs.StateActive)
	return nil
}

func runGraphChanges(cmd *cobra.Command, args []string) error {
	if len(args) == 2 {
		return fmt.Errorf("give both [from] and [to] versions, or neither")
	}
	api, err := newGraphsAPI(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		sets, err := api.Changesets(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(sets)
	}
	changes, err := api.Changes(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return err
	}
	return printJSON(changes)
}

func runGraphDetect(cmd *cobra.Command, args []string) error {
	api, err := newGraphsAPI(cmd)
	if err != nil {
		return err
	}
	res, err := api.DetectChanges(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runGraphCount(cmd *cobra.Command, args []string) error {
	api, err := newGraphsAPI(cmd)
	if err != nil {
		return err
	}
	names, err := api.GraphNames(cmd.Context())
	if err != nil {
		return err
	}
	state, _ := cmd.Flags().GetString("state")
	counts, err := graphs.CountVersions(cmd.Context(), graphs.WorkerFactory(api), names, strings.ToUpper(state), countWorkers)
	if err != nil {
		return err
	}

	w := newTable()
	fmt.Fprintln(w, "GRAPH\tVERSIONS")
	fmt.Fprintln(w, "─────\t────────")
	total := 0
	for i, n := range names {
		fmt.Fprintf(w, "%s\t%d\n", n, counts[i])
		total += counts[i]
	}
	fmt.Fprintf(w, "\t%s total\n", humanize.Comma(int64(total)))
	return w.Flush()
}
