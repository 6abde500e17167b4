package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"parcel/internal/manager"
	"parcel/internal/publish"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorize(text, color string, enabled bool) string {
	if !enabled || color == "" {
		return text
	}
	return color + text + ansiReset
}

// renderFailures prints one line per validation failure.
func renderFailures(out io.Writer, failures []manager.Failure, color bool) {
	for _, failure := range failures {
		task := failure.Task
		detail := "rejected"
		if failure.Err != nil {
			detail = failure.Err.Error()
		}
		fmt.Fprintf(out, "%s %s: %s\n",
			colorize("FAIL", ansiRed, color), task.Name(), detail)
	}
}

// itemRows flattens a tree into table rows, one per item plus one per task.
func itemRows(tree *publish.Tree) [][]string {
	var rows [][]string
	for _, item := range tree.Items() {
		rows = append(rows, []string{
			item.Name(),
			item.Type(),
			item.Context().String(),
			flags(item.Active(), item.Checked(), item.Persistent()),
			item.Properties().String(publish.PropCollectedFilePath),
		})
		for _, task := range item.Tasks() {
			rows = append(rows, []string{
				"  " + task.Plugin().Name(),
				"task",
				string(task.Status()),
				flags(task.Active(), task.Checked(), false),
				"",
			})
		}
	}
	return rows
}

func flags(active, checked, persistent bool) string {
	var parts []string
	if active {
		parts = append(parts, "active")
	}
	if checked {
		parts = append(parts, "checked")
	}
	if persistent {
		parts = append(parts, "persistent")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}
