// package formatter renders tasks and task snapshots as text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/shared"
)

// Supported output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Formats lists every supported format.
var Formats = []string{FormatText, FormatJSON, FormatMarkdown, FormatCSV}

const placeholder = "-"

// FormatTasks renders a task list in format. An empty format means text.
func FormatTasks(tasks []models.TaskSummary, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText, "txt":
		return TasksToText(tasks)
	case FormatJSON:
		return TasksToJSON(tasks)
	case FormatMarkdown, "md":
		return TasksToMarkdown(tasks)
	case FormatCSV:
		return TasksToCSV(tasks)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// FormatSnapshot renders one snapshot in format. CSV is not supported for single snapshots.
func FormatSnapshot(snap models.TaskSnapshot, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText, "txt":
		return SnapshotToText(snap), nil
	case FormatJSON:
		return shared.MarshalJSON(snap, true)
	case FormatMarkdown, "md":
		return SnapshotToMarkdown(snap), nil
	default:
		return nil, fmt.Errorf("%w: unknown snapshot format %q", shared.ErrInvalidArgument, format)
	}
}

// TasksToCSV converts tasks to CSV with columns: ID, Link, Status, Title, Crawled, Inaccessible, Error
func TasksToCSV(tasks []models.TaskSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Link", "Status", "Title", "Crawled", "Inaccessible", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, task := range tasks {
		record := []string{
			strconv.Itoa(task.ID),
			task.Link,
			task.Status.String(),
			value(task.PageTitle),
			intValue(task.CrawledLinks),
			intValue(task.InaccessibleLinks),
			value(task.Error),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TasksToMarkdown converts tasks to a Markdown table.
func TasksToMarkdown(tasks []models.TaskSummary) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Tasks\n\n")
	if len(tasks) == 0 {
		buf.WriteString("_No tasks yet._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| ID | Link | Status | Title | Crawled | Error |\n")
	buf.WriteString("|---:|------|--------|-------|--------:|-------|\n")
	for _, task := range tasks {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s |\n",
			task.ID,
			escapeCell(task.Link),
			task.Status,
			escapeCell(optional(task.PageTitle)),
			intValue(task.CrawledLinks),
			escapeCell(optional(task.Error)),
		)
	}

	return buf.Bytes(), nil
}

// TasksToText converts tasks to one block per task.
func TasksToText(tasks []models.TaskSummary) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Tasks: %d\n", len(tasks))
	for _, task := range tasks {
		fmt.Fprintf(&buf, "\n#%d %s\n", task.ID, task.Link)
		if task.PageTitle != nil && *task.PageTitle != "" {
			fmt.Fprintf(&buf, "  %s\n", *task.PageTitle)
		}
		fmt.Fprintf(&buf, "  Task status: %s\n", task.Status)
		if task.Error != nil && *task.Error != "" {
			fmt.Fprintf(&buf, "  Error encountered: %s\n", *task.Error)
		}
	}

	return buf.Bytes(), nil
}

// TasksToJSON converts tasks to indented JSON.
func TasksToJSON(tasks []models.TaskSummary) ([]byte, error) {
	if tasks == nil {
		tasks = []models.TaskSummary{}
	}
	return shared.MarshalJSON(tasks, true)
}

// WriteTasks renders tasks in format and writes them to path.
func WriteTasks(tasks []models.TaskSummary, format, path string) error {
	data, err := FormatTasks(tasks, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SnapshotFields returns the labelled fields of a task report in display order.
//
// Missing values are rendered as "-".
func SnapshotFields(snap models.TaskSnapshot) [][2]string {
	fields := [][2]string{
		{"Link", snap.Link},
		{"Internal links", intValue(snap.InternalLinks)},
		{"External links", intValue(snap.ExternalLinks)},
		{"Inaccessible links", intValue(snap.InaccessibleLinks)},
		{"Links crawled in total", strconv.Itoa(snap.CrawledLinks)},
		{"Html version", optional(snap.HTMLVersion)},
		{"Page title", optional(snap.PageTitle)},
		{"Login form", boolValue(snap.LoginFormPresent)},
	}
	for i := range 6 {
		count := placeholder
		if snap.HeadingsByLevel != nil {
			count = strconv.Itoa(snap.HeadingsByLevel[i])
		}
		fields = append(fields, [2]string{fmt.Sprintf("<h%d> headings", i+1), count})
	}
	return fields
}

// SnapshotToText renders a full task report.
func SnapshotToText(snap models.TaskSnapshot) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Task #%s\n", intValue(snap.ID))
	fmt.Fprintf(&buf, "Status: %s\n", snap.Status)
	if snap.Error != nil && *snap.Error != "" {
		fmt.Fprintf(&buf, "Encountered error: %s\n", *snap.Error)
		return buf.Bytes()
	}

	for _, f := range SnapshotFields(snap) {
		fmt.Fprintf(&buf, "  %-24s %s\n", f[0], f[1])
	}
	return buf.Bytes()
}

// SnapshotToMarkdown renders a full task report as a Markdown table.
func SnapshotToMarkdown(snap models.TaskSnapshot) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "## Task #%s\n\n", intValue(snap.ID))
	fmt.Fprintf(&buf, "**Status**: %s\n\n", snap.Status)
	if snap.Error != nil && *snap.Error != "" {
		fmt.Fprintf(&buf, "**Encountered error**: %s\n", *snap.Error)
		return buf.Bytes()
	}

	buf.WriteString("| Field | Value |\n|-------|-------|\n")
	for _, f := range SnapshotFields(snap) {
		fmt.Fprintf(&buf, "| %s | %s |\n", escapeCell(f[0]), escapeCell(f[1]))
	}
	return buf.Bytes()
}

// ProgressLine renders a one-line progress summary such as
//
//	#42 TRYING_LINKS [##########----------]  50.0% (5/10 links)
func ProgressLine(snap models.TaskSnapshot, width int) string {
	percent, _ := models.ProgressPercent(&snap)
	display := models.ClampPercent(percent)
	if width <= 0 {
		width = 20
	}

	filled := int(display / 100 * float64(width))
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	line := fmt.Sprintf("#%s %s [%s] %5.1f%% (%d/%d links)",
		intValue(snap.ID), snap.Status, bar, display, snap.CrawledLinks, snap.TotalLinks())
	if snap.Error != nil && *snap.Error != "" {
		line += ": " + *snap.Error
	}
	return line
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s *string) string {
	if s == nil || *s == "" {
		return placeholder
	}
	return *s
}

func intValue(n *int) string {
	if n == nil {
		return placeholder
	}
	return strconv.Itoa(*n)
}

func boolValue(b *bool) string {
	switch {
	case b == nil:
		return placeholder
	case *b:
		return "yes"
	default:
		return "no"
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
