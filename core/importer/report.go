package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Row is the outcome of one localStorage key.
type Row struct {
	Target   string
	Key      string
	Found    int
	Imported int
	Skipped  int
	Warnings []string
}

type Report struct {
	DryRun    bool
	Rows      []Row
	Unmatched []string
}

func (r *Report) add(row Row) { r.Rows = append(r.Rows, row) }

func (r *Report) Imported() (n int) {
	for _, row := range r.Rows {
		n += row.Imported
	}
	return n
}

func (r *Report) Skipped() (n int) {
	for _, row := range r.Rows {
		n += row.Skipped
	}
	return n
}

func (r *Report) Warnings() (n int) {
	for _, row := range r.Rows {
		n += len(row.Warnings)
	}
	return n
}

// Render writes the report as a table followed by the warnings.
func (r *Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Target", "Key", "Found", "Imported", "Skipped", "Warnings"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	var found int
	for _, row := range r.Rows {
		found += row.Found
		table.Append([]string{
			row.Target, row.Key,
			strconv.Itoa(row.Found), strconv.Itoa(row.Imported), strconv.Itoa(row.Skipped),
			strconv.Itoa(len(row.Warnings)),
		})
	}
	table.SetFooter([]string{"", "Total", strconv.Itoa(found), strconv.Itoa(r.Imported()), strconv.Itoa(r.Skipped()), strconv.Itoa(r.Warnings())})
	table.Render()

	for _, row := range r.Rows {
		for _, warn := range row.Warnings {
			_, _ = fmt.Fprintf(w, "warning: %s (%s): %s\n", row.Target, row.Key, warn)
		}
	}
	if len(r.Unmatched) > 0 {
		_, _ = fmt.Fprintf(w, "ignored keys: %s\n", strings.Join(r.Unmatched, ", "))
	}
	if r.DryRun {
		_, _ = fmt.Fprintln(w, "dry run: nothing was written")
	}
}
