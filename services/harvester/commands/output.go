package commands

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/scan"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printScanReport(w io.Writer, r scan.Report) {
	fmt.Fprintf(w, "run %s: %d stream(s), %d ok, %d failed (%.1f%%), %d layer(s)\n",
		r.RunID, r.Total, r.Succeeded, r.Failed, 100*r.SuccessRate(), r.Layers)

	reasons := lo.Keys(r.FailuresByReason)
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		fmt.Fprintf(w, "  %-18s %d\n", reason, r.FailuresByReason[reason])
	}

	failures := r.Failures()
	if len(failures) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nURL\tREASON\tERROR")
	for _, o := range failures {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.URL, o.Reason, o.Error)
	}
	_ = tw.Flush()
}

func printProbeReport(w io.Writer, r scan.ProbeReport) {
	fmt.Fprintf(w, "run %s: %d layer(s), %d queryable\n", r.RunID, r.Total, r.Queryable)
	outcomes := lo.Keys(r.ByOutcome)
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-18s %d\n", o, r.ByOutcome[o])
	}
}
