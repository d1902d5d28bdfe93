package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dukerupert/graphium/internal/config"
	"github.com/dukerupert/graphium/internal/track"
	"github.com/dukerupert/graphium/internal/utilities"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match [graph] [track]",
	Short: "Map-match a GPX or Graphium track file onto a graph",
	Args:  cobra.ExactArgs(2),
	RunE:  runMatch,
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Work with GPS tracks",
}

var trackConvertCmd = &cobra.Command{
	Use:   "convert [gpx]",
	Short: "Convert a GPX file into a Graphium track document",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackConvert,
}

func init() {
	matchCmd.Flags().Bool("current", false, "Match against the currently valid version")
	matchCmd.Flags().Bool("json", false, "Print the full result as JSON")
	rootCmd.AddCommand(matchCmd)

	trackConvertCmd.Flags().StringP("output", "o", "", "Output file (defaults to the input with a .json suffix)")
	trackCmd.AddCommand(trackConvertCmd)
	rootCmd.AddCommand(trackCmd)
}

// loadTrack reads a .gpx file or a Graphium track document. Relative GPX
// paths are also looked up in gpx_dir.
func loadTrack(path string) (*track.Track, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) && !filepath.IsAbs(path) {
		if dir := prefs.String(config.KeyGPXDir); dir != "" {
			f, err = os.Open(filepath.Join(dir, path))
		}
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".gpx") {
		return track.FromGPX(f)
	}
	return track.Read(f)
}

func runMatch(cmd *cobra.Command, args []string) error {
	t, err := loadTrack(args[1])
	if err != nil {
		return err
	}
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	mode := ""
	if current, _ := cmd.Flags().GetBool("current"); current {
		mode = utilities.VersionCurrentlyValid
	}
	res, err := utilities.NewAPI(c).MapMatch(cmd.Context(), t, args[0], mode)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(res)
	}

	fmt.Printf("Track:          %d (%d points)\n", res.TrackID, t.Metadata.NumberOfPoints)
	fmt.Printf("Matched points: %d\n", res.MatchedPoints)
	fmt.Printf("Matched factor: %.3f\n", res.MatchedFactor)
	fmt.Printf("Length:         %s m\n", humanize.CommafWithDigits(res.Length, 1))
	fmt.Printf("U-turns:        %d\n", res.NrOfUTurns)
	fmt.Printf("Segments:       %d\n", len(res.Segments))
	return nil
}

func runTrackConvert(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	t, err := track.FromGPX(f)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".json"
	}
	w, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := t.Write(w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s: %d points, %s m, %s\n", out, t.Metadata.NumberOfPoints,
		humanize.CommafWithDigits(t.Metadata.Length, 1), time.Duration(t.Metadata.Duration)*time.Millisecond)
	return nil
}
