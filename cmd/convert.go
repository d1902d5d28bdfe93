package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/dukerupert/graphium/internal/config"
	"github.com/dukerupert/graphium/internal/converter"
	"github.com/dukerupert/graphium/internal/rest"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert OSM or GIP data into Graphium JSON",
}

var convertOSMCmd = &cobra.Command{
	Use:   "osm [input]",
	Short: "Run OSM2Graphium on an OSM PBF file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvertOSM,
}

var convertGIPCmd = &cobra.Command{
	Use:   "gip [input]",
	Short: "Run IDF2Graphium on a GIP IDF export",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvertGIP,
}

func init() {
	for _, c := range []*cobra.Command{convertOSMCmd, convertGIPCmd} {
		c.Flags().StringP("name", "n", "", "Graph name (required)")
		c.Flags().StringP("version", "v", "", "Graph version (required)")
		c.Flags().StringP("output-dir", "o", "", "Output directory (defaults to output_dir)")
		c.Flags().String("valid-from", "", "Validity start, "+converter.ValidityFormat)
		c.Flags().String("valid-to", "", "Validity end, "+converter.ValidityFormat)
		c.Flags().Bool("keep-converted", false, "Keep the intermediate converted file")
		c.Flags().Bool("import", false, "Upload the result to the selected connection")
		c.Flags().Bool("override", false, "Replace the version on the server if it exists")
		c.MarkFlagRequired("name")
		c.MarkFlagRequired("version")
	}
	convertOSMCmd.Flags().StringSlice("highway-types", nil, "Highway types to keep (default all)")
	convertOSMCmd.Flags().Bool("all-tags", false, "Keep all OSM tags")
	convertGIPCmd.Flags().StringSlice("frcs", nil, "Functional road classes to import")
	convertGIPCmd.Flags().StringSlice("access-types", nil, "Access types to import")
	convertGIPCmd.Flags().Bool("skip-pixel-cut", false, "Skip the pixel cut step")

	convertCmd.AddCommand(convertOSMCmd)
	convertCmd.AddCommand(convertGIPCmd)
	rootCmd.AddCommand(convertCmd)
}

func commonConvertOptions(cmd *cobra.Command, input, jarKey string) (converter.Common, error) {
	flags := cmd.Flags()
	c := converter.Common{
		Java:     prefs.String(config.KeyJavaExe),
		JavaOpts: prefs.String(config.KeyJavaOpts),
		Jar:      prefs.String(jarKey),
		Input:    input,
	}
	if c.Jar == "" {
		return c, fmt.Errorf("%s is not configured, run 'graphium config set %s <path>'", jarKey, jarKey)
	}
	c.Name, _ = flags.GetString("name")
	c.Version, _ = flags.GetString("version")
	c.OutputDir, _ = flags.GetString("output-dir")
	if c.OutputDir == "" {
		c.OutputDir = prefs.String(config.KeyOutputDir)
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return c, fmt.Errorf("creating output directory: %w", err)
	}

	var err error
	vf, _ := flags.GetString("valid-from")
	if c.ValidFrom, err = converter.ParseValidity(vf); err != nil {
		return c, fmt.Errorf("--valid-from: %w", err)
	}
	vt, _ := flags.GetString("valid-to")
	if c.ValidTo, err = converter.ParseValidity(vt); err != nil {
		return c, fmt.Errorf("--valid-to: %w", err)
	}
	c.KeepConvertedFile, _ = flags.GetBool("keep-converted")
	c.OverrideIfExists, _ = flags.GetBool("override")

	if imp, _ := flags.GetBool("import"); imp {
		conn, err := selectedConnection()
		if err != nil {
			return c, err
		}
		// the converter uploads directly, so the read-only policy is applied here
		if conn.ReadOnly {
			return c, &rest.Error{Kind: rest.KindPolicy, Msg: rest.MsgReadOnly}
		}
		c.Import = conn
	}
	return c, nil
}

func runConvertOSM(cmd *cobra.Command, args []string) error {
	common, err := commonConvertOptions(cmd, args[0], config.KeyOSM2GraphiumJar)
	if err != nil {
		return err
	}
	opts := converter.OSMOptions{Common: common}
	opts.AllTags, _ = cmd.Flags().GetBool("all-tags")
	types, _ := cmd.Flags().GetStringSlice("highway-types")
	for _, t := range types {
		h, err := converter.ParseHighwayType(t)
		if err != nil {
			return err
		}
		opts.HighwayTypes = append(opts.HighwayTypes, h)
	}

	out, err := converter.NewRunner(os.Stdout, nil).RunOSM(cmd.Context(), opts)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

func runConvertGIP(cmd *cobra.Command, args []string) error {
	common, err := commonConvertOptions(cmd, args[0], config.KeyIDF2GraphiumJar)
	if err != nil {
		return err
	}
	opts := converter.GIPOptions{Common: common}
	opts.SkipPixelCut, _ = cmd.Flags().GetBool("skip-pixel-cut")
	frcs, _ := cmd.Flags().GetStringSlice("frcs")
	for _, s := range frcs {
		f, err := converter.ParseFRC(s)
		if err != nil {
			return err
		}
		opts.FRCs = append(opts.FRCs, f)
	}
	access, _ := cmd.Flags().GetStringSlice("access-types")
	for _, s := range access {
		a, err := converter.ParseAccess(strings.ToUpper(s))
		if err != nil {
			return err
		}
		opts.AccessTypes = append(opts.AccessTypes, a)
	}

	out, err := converter.NewRunner(os.Stdout, nil).RunGIP(cmd.Context(), opts)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}
