package main

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// maxCellWidth caps a column's display width; longer cells end in "...".
const maxCellWidth = 72

// writeTable writes rows as space-aligned columns under header, padding by
// display width so CJK titles line up.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	cells := make([][]string, 0, len(rows)+1)
	for _, row := range append([][]string{header}, rows...) {
		line := make([]string, len(header))
		for i := range header {
			if i < len(row) {
				line[i] = runewidth.Truncate(strings.TrimSpace(row[i]), maxCellWidth, "...")
			}
			if cw := runewidth.StringWidth(line[i]); cw > widths[i] {
				widths[i] = cw
			}
		}
		cells = append(cells, line)
	}

	var sb strings.Builder
	for _, line := range cells {
		sb.Reset()
		for i, cell := range line {
			if i == len(line)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
