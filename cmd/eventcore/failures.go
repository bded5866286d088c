package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/eventcore/pkg/eventcore/failurelog"
)

var (
	failuresEvent string
	failuresLimit int
	failuresClear bool
)

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List handler failures recorded in the failure journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := failurelog.NewSQLiteStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening failure journal: %w", err)
		}
		defer store.Close()

		if failuresClear {
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clearing failures: %w", err)
			}
			logger.Info("failure journal cleared", "path", dbPath)
			return nil
		}

		entries, err := store.List(failurelog.Query{EventName: failuresEvent, Limit: failuresLimit})
		if err != nil {
			return fmt.Errorf("listing failures: %w", err)
		}

		if jsonOutput {
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No failures recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tTIME\tEVENT\tHANDLER\tKIND\tMESSAGE")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.Sequence, e.Time.Local().Format(time.DateTime), e.EventName, e.Handler, e.Kind, e.Message)
		}
		return w.Flush()
	},
}

func init() {
	failuresCmd.Flags().StringVar(&failuresEvent, "event", "", "only show failures for this event name")
	failuresCmd.Flags().IntVar(&failuresLimit, "limit", 20, "show at most this many recent failures (0 for all)")
	failuresCmd.Flags().BoolVar(&failuresClear, "clear", false, "remove every recorded failure")
}
