package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentsync/internal/runlog"
)

// renderRunResult prints the summary line and a per-item outcome table.
func renderRunResult(cmd *cobra.Command, result *runlog.RunResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Message)
	if len(result.Items) == 0 {
		return
	}

	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		errText := ""
		if item.Error != nil {
			errText = item.Error.Message
		}
		rows = append(rows, []string{
			item.SourceID,
			item.TargetID,
			string(item.Status),
			string(item.Action),
			errText,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Source ID", "Target ID", "Status", "Action", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}
