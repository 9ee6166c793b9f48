package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"vttlink/internal/runner"
)

// renderSummary prints the run outcome: a rounded metric/value table on a
// terminal, plain key=value lines when output is redirected.
func renderSummary(writer io.Writer, outDir string, summary *runner.Summary) {
	rows := summaryRows(summary)
	if isTerminal(writer) {
		fmt.Fprintln(writer, renderSummaryTable(rows))
	} else {
		for _, row := range rows {
			fmt.Fprintf(writer, "%s=%s\n", row[0], row[1])
		}
	}
	fmt.Fprintf(writer, "Outputs written to %s\n", outDir)
}

func summaryRows(summary *runner.Summary) [][2]string {
	rows := [][2]string{
		{"Files processed", strconv.Itoa(summary.FilesProcessed)},
		{"Files failed", strconv.Itoa(summary.FilesFailed)},
		{"Cues skipped", strconv.Itoa(summary.CuesSkipped)},
		{"Segments", strconv.Itoa(summary.Segments)},
		{"Mentions", strconv.Itoa(summary.Mentions)},
		{"Accepted links", strconv.Itoa(summary.AcceptedLinks)},
		{"Flagged for review", strconv.Itoa(summary.ReviewFlagged)},
	}
	if summary.EnrichmentFetches > 0 || summary.EnrichmentCacheHits > 0 {
		rows = append(rows,
			[2]string{"Authority fetches", strconv.Itoa(summary.EnrichmentFetches)},
			[2]string{"Authority cache hits", strconv.Itoa(summary.EnrichmentCacheHits)})
	}
	rows = append(rows, [2]string{"Elapsed", summary.Elapsed.Round(10 * time.Millisecond).String()})
	return rows
}

// renderSummaryTable lays the metric/value pairs out with metrics left-aligned
// and counts right-aligned.
func renderSummaryTable(rows [][2]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
