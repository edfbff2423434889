// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasktracker/internal/service"
)

// EmptyList is printed when there are no tasks.
const EmptyList = "No task to show"

// FormatTask formats a task line.
// Format: "{N:>4}  {TEXT}[  ({DAY})][  [reminder]]\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d  %s", num, normalizeText(task.Text))
	if day := normalizeLine(task.Day); day != "" {
		fmt.Fprintf(&b, "  (%s)", day)
	}
	if task.Reminder {
		b.WriteString("  [reminder]")
	}
	b.WriteByte('\n')
	io.WriteString(w, b.String())
}

// FormatTasks formats every task, numbered from 1, or EmptyList.
func FormatTasks(w io.Writer, tasks []service.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, EmptyList)
		return
	}
	for i, task := range tasks {
		FormatTask(w, i+1, task)
	}
}

// CountLine returns the task count line shown above the list.
func CountLine(n int) string {
	if n > 0 {
		return fmt.Sprintf("There are %d tasks", n)
	}
	return "No tasks"
}

// normalizeText normalizes task text for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = normalizeLine(text)
	if text == "" {
		return "(untitled)"
	}
	return text
}

func normalizeLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
