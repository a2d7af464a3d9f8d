package cmd

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// renderTable writes headers and rows as an aligned table.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := pterm.DefaultTable.WithHasHeader(true)
	table = table.WithHeaderStyle(pterm.NewStyle(pterm.FgCyan, pterm.Bold))

	data := pterm.TableData{headers}
	data = append(data, rows...)
	out, err := table.WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
