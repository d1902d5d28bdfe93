package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// millis renders an epoch-millisecond timestamp, or "-" when unset.
func millis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	t := time.UnixMilli(ms)
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04"), humanize.Time(t))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
