package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dukerupert/graphium/internal/config"
	"github.com/dukerupert/graphium/internal/graphdata"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Read the segments of a graph version",
}

var segmentGetCmd = &cobra.Command{
	Use:   "get [graph] [version] [id...]",
	Short: "Print segments by ID",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runSegmentGet,
}

var segmentExportCmd = &cobra.Command{
	Use:   "export [graph] [version]",
	Short: "Export all segments of a version to a file",
	Long:  "Writes the version metadata and segments to a JSON file. A .gz suffix compresses the output.",
	Args:  cobra.ExactArgs(2),
	RunE:  runSegmentExport,
}

var segmentAttrCmd = &cobra.Command{
	Use:   "attr [graph] [version] [attribute] [id...]",
	Short: "Look up one attribute for many segments",
	Args:  cobra.MinimumNArgs(4),
	RunE:  runSegmentAttr,
}

func init() {
	for _, c := range []*cobra.Command{segmentGetCmd, segmentExportCmd, segmentAttrCmd} {
		c.Flags().Bool("hd", false, "Query HD segments")
	}
	segmentExportCmd.Flags().StringP("output", "o", "", "Output file (defaults to <output_dir>/<graph>_<version>.json)")
	segmentExportCmd.Flags().Bool("force", false, "Export even if the version is deleted or empty")
	segmentAttrCmd.Flags().Int("batch", graphdata.DefaultBatchSize, "IDs per request")

	segmentCmd.AddCommand(segmentGetCmd)
	segmentCmd.AddCommand(segmentExportCmd)
	segmentCmd.AddCommand(segmentAttrCmd)
	rootCmd.AddCommand(segmentCmd)
}

func newGraphDataAPI(cmd *cobra.Command) (*graphdata.API, error) {
	c, err := connect(cmd.Context())
	if err != nil {
		return nil, err
	}
	return graphdata.NewAPI(c), nil
}

func runSegmentGet(cmd *cobra.Command, args []string) error {
	api, err := newGraphDataAPI(cmd)
	if err != nil {
		return err
	}
	e, err := api.Segments(cmd.Context(), args[0], args[1], args[2:], hdDefault(cmd))
	if err != nil {
		return err
	}
	return printJSON(e)
}

func runSegmentExport(cmd *cobra.Command, args []string) error {
	graph, version := args[0], args[1]
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = filepath.Join(prefs.String(config.KeyOutputDir), graph+"_"+version+".json")
	}

	api, err := newGraphDataAPI(cmd)
	if err != nil {
		return err
	}
	e, err := api.Export(cmd.Context(), graph, version, hdDefault(cmd))
	if err != nil {
		return err
	}
	if force, _ := cmd.Flags().GetBool("force"); !force {
		if err := graphdata.SummaryCheck(e); err != nil {
			return fmt.Errorf("%w (use --force to export anyway)", err)
		}
	}

	size, err := graphdata.WriteExport(out, e)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %s segments of %s/%s to %s (%s)\n",
		humanize.Comma(int64(len(e.Segments))), graph, version, out, humanize.Bytes(uint64(size)))
	return nil
}

func runSegmentAttr(cmd *cobra.Command, args []string) error {
	api, err := newGraphDataAPI(cmd)
	if err != nil {
		return err
	}
	batch, _ := cmd.Flags().GetInt("batch")
	attrs, err := api.SegmentAttributes(cmd.Context(), args[0], args[1], args[3:], args[2], hdDefault(cmd), batch)
	if len(attrs) > 0 {
		ids := make([]string, 0, len(attrs))
		for id := range attrs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		w := newTable()
		fmt.Fprintf(w, "ID\t%s\n", args[2])
		for _, id := range ids {
			fmt.Fprintf(w, "%s\t%v\n", id, attrs[id])
		}
		if ferr := w.Flush(); ferr != nil {
			return ferr
		}
	}
	return err
}
