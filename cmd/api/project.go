package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/travelplan/itinerary-api/internal/adapters/snapshot"
	"github.com/travelplan/itinerary-api/internal/app/views"
	"github.com/travelplan/itinerary-api/internal/domain"
)

var projectCmd = &cobra.Command{
	Use:   "project <snapshot.json>",
	Short: "Print the timeline of a saved trip snapshot",
	Long: `Print the timeline of a trip snapshot document, one row per city,
followed by the trip totals. Use "-" to read the snapshot from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		t, err := snapshot.Decode(in)
		if err != nil {
			return err
		}
		return printTimeline(cmd.OutOrStdout(), t)
	},
}

func printTimeline(w io.Writer, t domain.Trip) error {
	tl := t.Timeline()
	chart := views.BuildChart(tl, 0)

	fmt.Fprintf(w, "%s\n\n", t.Name)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCITY\tDAYS\tSTART\tEND")
	for i, e := range tl.Entries {
		start, end := chart.Bars[i].StartLabel, "Day "+strconv.Itoa(e.EndOffset)
		if e.EndDate != nil {
			end = e.EndDate.Format("Jan 2")
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", i+1, e.City.Name, e.Days(), start, end)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %s\n", plural(tl.Stats.TotalDays))
	if tl.Stats.EndDate != nil {
		fmt.Fprintf(w, "Trip ends: %s\n", tl.Stats.EndDate.Format(time.DateOnly))
	}
	if r := tl.Stats.RemainingOrOverDays; r != nil {
		if tl.Stats.IsOverBudget {
			fmt.Fprintf(w, "Over budget by %s\n", plural(-*r))
		} else {
			fmt.Fprintf(w, "Remaining: %s\n", plural(*r))
		}
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return "1 day"
	}
	return strconv.Itoa(n) + " days"
}
