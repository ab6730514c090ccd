package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Seann-Moser/go-bench/pkg/dashboard"
)

const (
	OutputFlag = "output"

	FormatTable = "table"
	FormatJSON  = "json"
)

func Write(w io.Writer, format string, groups []dashboard.GroupState) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	case FormatTable, "":
		return WriteTable(w, groups)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteTable prints one row per endpoint. Failed measurements show as "-".
func WriteTable(w io.Writer, groups []dashboard.GroupState) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "GROUP\tENDPOINT\tVALUE\tREQUESTS\tSUCCESSFUL")
	for _, g := range groups {
		if len(g.Data) == 0 {
			_, _ = fmt.Fprintf(tw, "%s\t-\t-\t-\t-\n", g.Name)
			continue
		}
		for _, d := range g.Data {
			value := "-"
			if d.Value.Valid() {
				value = fmt.Sprintf("%.0f %s", float64(d.Value), g.Unit)
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", g.Name, d.Name, value, d.TotalRequests, d.SuccessfulResponses)
		}
	}
	return tw.Flush()
}
