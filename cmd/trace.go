package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wardsim/wardsim/sim/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "Summarize a JSON-lines trace written by run --trace-file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		records, err := trace.ReadFile(args[0])
		if err != nil {
			logrus.Fatalf("Reading trace failed: %v", err)
		}
		printTraceSummary(os.Stdout, trace.Summarize(records))
	},
}

func printTraceSummary(w io.Writer, s *trace.Summary) {
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Events      : %s\n", humanize.Comma(int64(s.Events)))
	for _, id := range s.RunIDs {
		fmt.Fprintf(w, "Run         : %s\n", id)
	}
	if s.Events > 0 {
		fmt.Fprintf(w, "Window      : %s .. %s (%d h)\n",
			s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339), int(s.Last.Sub(s.First).Hours()))
	}
	for _, kind := range s.Kinds() {
		fmt.Fprintf(w, "  %-20s %s\n", kind, humanize.Comma(int64(s.ByKind[kind])))
	}
	fmt.Fprintf(w, "Prescription anomaly rate: %.2f%%\n", 100*s.PrescriptionAnomalyRate)
	fmt.Fprintf(w, "Supply anomaly rate      : %.2f%%\n", 100*s.SupplyAnomalyRate)

	prescribers := make([]int64, 0, len(s.Flagged))
	for id := range s.Flagged {
		prescribers = append(prescribers, id)
	}
	sort.Slice(prescribers, func(i, j int) bool {
		a, b := prescribers[i], prescribers[j]
		if s.Flagged[a] != s.Flagged[b] {
			return s.Flagged[a] > s.Flagged[b]
		}
		return a < b
	})
	for _, id := range prescribers {
		fmt.Fprintf(w, "  prescriber %-8d %s flagged\n", id, humanize.Comma(int64(s.Flagged[id])))
	}
}

func init() {
	rootCmd.AddCommand(traceCmd)
}
