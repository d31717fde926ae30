package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/poi-ingest/internal/domain"
)

// printSummary печатает итог прогона и отказавшие файлы
func printSummary(w io.Writer, result *domain.ImportResult) {
	p := message.NewPrinter(language.English)
	s := result.Stats

	fmt.Fprintln(w)
	if result.Options.DryRun {
		fmt.Fprintln(w, "Import summary (dry run, nothing was written)")
	} else {
		fmt.Fprintln(w, "Import summary")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		label string
		value string
	}{
		{"Run ID", result.RunID},
		{"Files seen", p.Sprintf("%d", s.FilesSeen)},
		{"Files processed", p.Sprintf("%d", s.FilesProcessed)},
		{"Files skipped", p.Sprintf("%d", s.FilesSkipped)},
		{"Records parsed", p.Sprintf("%d", s.RecordsOK)},
		{"Records skipped", p.Sprintf("%d", s.RecordsSkipped)},
		{"Created", p.Sprintf("%d", s.Created)},
		{"Updated", p.Sprintf("%d", s.Updated)},
		{"Errors", p.Sprintf("%d", s.Errors)},
		{"Success rate", p.Sprintf("%.1f%%", s.SuccessRate())},
		{"Duration", s.Elapsed.Round(time.Millisecond).String()},
		{"Rate", p.Sprintf("%.1f records/s", s.RecordsPerSecond())},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "  %s\t%s\n", row.label, row.value)
	}
	_ = tw.Flush()

	failed := make([]domain.FileReport, 0)
	for _, f := range result.Files {
		if f.State == domain.StateAborted {
			failed = append(failed, f)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skipped files:")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, f := range failed {
			fmt.Fprintf(tw, "  %s\t%s\n", f.Path, f.Error)
		}
		_ = tw.Flush()
	}

	if result.Stopped {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Stopped early because of --stop-on-error.")
	}
}
