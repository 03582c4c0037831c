package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var recordsJSON bool

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List stored records",
	RunE:  runRecords,
}

func init() {
	recordsCmd.Flags().BoolVar(&recordsJSON, "json", false,
		"Print records as JSON")
}

func runRecords(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	items := a.records.List(ctx)
	out := cmd.OutOrStdout()

	if recordsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "No records.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSCHEDULED\tIMMEDIATE\tOUTCOME\tTEXT")
	for _, rec := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%d\t%s\n",
			rec.ID, rec.Status, rec.ScheduledAt.Format(time.DateTime),
			rec.Immediate, rec.OutcomeCode, truncate(rec.Text, 40))
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
