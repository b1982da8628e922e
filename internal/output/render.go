package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
)

// Renderer handles styled terminal output.
type Renderer struct {
	width int

	Summary lipgloss.Style
	Muted   lipgloss.Style
	Data    lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
}

// NewRenderer creates a renderer. Colors are disabled when NO_COLOR is set
// or when w is not a terminal and forceStyled is false.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	width, tty := terminalInfo(w)
	r := &Renderer{width: width}

	if (tty || forceStyled) && os.Getenv("NO_COLOR") == "" {
		r.Summary = lipgloss.NewStyle().Foreground(lipgloss.Color("#6D28D9")).Bold(true)
		r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
		r.Data = lipgloss.NewStyle()
		r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
		r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
		r.Header = lipgloss.NewStyle().Bold(true).Padding(0, 1)
		r.Cell = lipgloss.NewStyle().Padding(0, 1)
		return r
	}

	r.Summary = lipgloss.NewStyle()
	r.Muted = lipgloss.NewStyle()
	r.Data = lipgloss.NewStyle()
	r.Error = lipgloss.NewStyle()
	r.Hint = lipgloss.NewStyle()
	r.Header = lipgloss.NewStyle().Padding(0, 1)
	r.Cell = lipgloss.NewStyle().Padding(0, 1)
	return r
}

// terminalInfo returns the terminal width and whether the writer is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 100
	if f, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(f.Fd()); err == nil && cols >= 40 {
			width = cols
		}
		isTTY = term.IsTerminal(f.Fd())
	}
	return width, isTTY
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n\n")
	}

	r.renderData(&b, NormalizeData(resp.Data))

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n")
		for _, bc := range resp.Breadcrumbs {
			b.WriteString(r.Muted.Render(fmt.Sprintf("  %s: %s", bc.Description, bc.Cmd)))
			b.WriteString("\n")
		}
	}

	if stats, ok := resp.Meta["stats"].(map[string]any); ok {
		b.WriteString("\n")
		b.WriteString(r.Muted.Render(formatStats(stats)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder
	b.WriteString(r.Error.Render("Error: " + resp.Error))
	b.WriteString("\n")
	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: " + resp.Hint))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		r.renderTable(b, d)
	case map[string]any:
		for _, k := range sortedKeys(d) {
			fmt.Fprintf(b, "%s %s\n", r.Muted.Render(k+":"), r.Data.Render(formatCell(d[k])))
		}
	case []any:
		for _, item := range d {
			fmt.Fprintf(b, "- %s\n", formatCell(item))
		}
	case nil:
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")
	default:
		b.WriteString(r.Data.Render(formatCell(d)))
		b.WriteString("\n")
	}
}

func (r *Renderer) renderTable(b *strings.Builder, rows []map[string]any) {
	cols := tableColumns(rows, r.width)

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Width(r.width).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			return r.Cell
		})
	t.Headers(cols...)
	for _, item := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = formatCell(item[c])
		}
		t.Row(cells...)
	}

	b.WriteString(t.String())
	b.WriteString("\n")
}

// Column priority for table rendering (lower = higher priority).
var columnPriority = map[string]int{
	"id":        1,
	"name":      2,
	"title":     2,
	"email":     3,
	"status":    4,
	"role":      4,
	"subject":   5,
	"content":   6,
	"createdAt": 9,
}

// tableColumns picks scalar columns from the first row, ordered by priority,
// and drops the lowest-priority ones until the table fits in width.
func tableColumns(rows []map[string]any, width int) []string {
	var cols []string
	for k, v := range rows[0] {
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		cols = append(cols, k)
	}
	sort.Slice(cols, func(i, j int) bool {
		pi, pj := priority(cols[i]), priority(cols[j])
		if pi != pj {
			return pi < pj
		}
		return cols[i] < cols[j]
	})

	maxCols := max(width/16, 2)
	if len(cols) > maxCols {
		cols = cols[:maxCols]
	}
	return cols
}

func priority(col string) int {
	if p, ok := columnPriority[col]; ok {
		return p
	}
	return 7
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatStats(stats map[string]any) string {
	var parts []string
	for _, k := range sortedKeys(stats) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatCell(stats[k])))
	}
	return "Stats: " + strings.Join(parts, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarkdownRenderer emits literal Markdown (pipeable to glow, bat, files).
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a Markdown renderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// RenderResponse renders a success response as Markdown.
func (m *MarkdownRenderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder
	if resp.Summary != "" {
		fmt.Fprintf(&b, "## %s\n\n", resp.Summary)
	}

	switch d := NormalizeData(resp.Data).(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString("*No results*\n")
			break
		}
		cols := tableColumns(d, 200)
		b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
		for _, row := range d {
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = strings.ReplaceAll(formatCell(row[c]), "|", "\\|")
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	case map[string]any:
		for _, k := range sortedKeys(d) {
			fmt.Fprintf(&b, "- **%s:** %s\n", k, formatCell(d[k]))
		}
	case nil:
		b.WriteString("*No data*\n")
	default:
		fmt.Fprintf(&b, "%s\n", formatCell(d))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response as Markdown.
func (m *MarkdownRenderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	out := fmt.Sprintf("**Error:** %s\n", resp.Error)
	if resp.Hint != "" {
		out += fmt.Sprintf("\n*Hint:* %s\n", resp.Hint)
	}
	_, err := io.WriteString(w, out)
	return err
}
