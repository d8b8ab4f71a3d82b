// package formatter renders collection pages and writes exported files (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/shared"
)

// Format selects a page rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat maps a flag value onto a [Format].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatCSV, FormatMarkdown, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: format %q", shared.ErrInvalidArgument, s)
	}
}

// Render renders page in format f.
func Render(page *models.TablePage, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return PageToCSV(page)
	case FormatMarkdown:
		return PageToMarkdown(page)
	case FormatJSON:
		return shared.MarshalJSON(page, true)
	default:
		return PageToText(page)
	}
}

func cells(row models.Row, width int) []string {
	out := make([]string, 0, width+1)
	out = append(out, strconv.Itoa(row.ID))
	out = append(out, row.Cells...)
	for len(out) < width+1 {
		out = append(out, "")
	}
	return out[:width+1]
}

func headers(page *models.TablePage) []string {
	return append([]string{"ID"}, page.Columns...)
}

// PageToCSV converts a page to CSV with an ID column followed by the page's columns
func PageToCSV(page *models.TablePage) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers(page)); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range page.Rows {
		if err := writer.Write(cells(row, len(page.Columns))); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// PageToMarkdown converts a page to a Markdown table
func PageToMarkdown(page *models.TablePage) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", page.Collection)
	fmt.Fprintf(&buf, "**Page**: %s\n\n", PageLabel(page.Page, page.Last))

	h := headers(page)
	buf.WriteString("| " + strings.Join(h, " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(h)) + "\n")
	for _, row := range page.Rows {
		escaped := cells(row, len(page.Columns))
		for i, c := range escaped {
			escaped[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
	}

	return buf.Bytes(), nil
}

// PageToText converts a page to a bordered plain text table
func PageToText(page *models.TablePage) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s: %s\n", page.Collection, PageLabel(page.Page, page.Last))
	if len(page.Rows) == 0 {
		buf.WriteString("(no rows)\n")
		return buf.Bytes(), nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers(page)...)
	for _, row := range page.Rows {
		t.Row(cells(row, len(page.Columns))...)
	}

	buf.WriteString(t.String())
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// PageLabel formats a zero-based page index for people, e.g. "3 of 7".
func PageLabel(page, last int) string {
	if last < 0 {
		return fmt.Sprintf("%d of ?", page+1)
	}
	return fmt.Sprintf("%d of %d", page+1, last+1)
}

// SnapshotToText describes a snapshot and its position in the sequence
func SnapshotToText(s models.Snapshot, position string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Snapshot %d (%s)\n", s.ID, position)
	if !s.Date.IsZero() {
		fmt.Fprintf(&buf, "Saved: %s\n", s.Date.Format("2006-01-02 15:04:05"))
	}
	if s.Sprite != "" {
		fmt.Fprintf(&buf, "Sprite: %s\n", s.Sprite)
	}
	buf.WriteString("\n")
	buf.WriteString(s.Code)
	if !strings.HasSuffix(s.Code, "\n") {
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// SnapshotKind selects which representation of a snapshot is downloaded.
type SnapshotKind string

const (
	SnapshotXML  SnapshotKind = "xml"
	SnapshotJSON SnapshotKind = "json"
)

// DownloadName names a single snapshot download, e.g. xml_12_uid_4_eid_2.xml.
func DownloadName(kind SnapshotKind, snapshot, user, experiment int) string {
	return fmt.Sprintf("%s_%d_uid_%d_eid_%d.%s", kind, snapshot, user, experiment, kind)
}

// WriteSnapshot writes the XML or code of a snapshot into dir and returns the file path.
func WriteSnapshot(s models.Snapshot, kind SnapshotKind, user, experiment int, dir string) (string, error) {
	var content string
	switch kind {
	case SnapshotXML:
		content = s.XML
	case SnapshotJSON:
		content = s.Code
	default:
		return "", fmt.Errorf("%w: snapshot kind %q", shared.ErrInvalidArgument, kind)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, DownloadName(kind, s.ID, user, experiment))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return path, nil
}

// WriteDownload writes a download into dir under its own base name and returns the path and size.
func WriteDownload(d *models.Download, dir string) (string, int64, error) {
	name := filepath.Base(d.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", 0, fmt.Errorf("%w: download has no file name", shared.ErrMissingArgument)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, d.Content, 0644); err != nil {
		return "", 0, fmt.Errorf("failed to write download: %w", err)
	}

	return path, int64(len(d.Content)), nil
}

// WritePage renders page in format f to path.
func WritePage(page *models.TablePage, f Format, path string) error {
	data, err := Render(page, f)
	if err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write page file: %w", err)
	}

	return nil
}

// Extension returns the file extension used for pages rendered in f.
func Extension(f Format) string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
