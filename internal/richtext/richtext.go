// Package richtext renders Markdown for the terminal and detects upload
// content types.
package richtext

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the wrap width when the terminal width is unknown.
const DefaultWidth = 80

// RenderMarkdown renders Markdown for terminal display using glamour.
func RenderMarkdown(md string) (string, error) {
	return RenderMarkdownWithWidth(md, DefaultWidth)
}

// RenderMarkdownWithWidth renders Markdown wrapped at width columns.
func RenderMarkdownWithWidth(md string, width int) (string, error) {
	if md == "" {
		return "", nil
	}
	if width <= 0 {
		width = DefaultWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}

	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Turn is one message of a conversation transcript.
type Turn struct {
	Role    string
	Content string
	At      time.Time
}

// Transcript assembles a conversation as a single Markdown document, one
// heading per turn. Assistant turns are already Markdown; user turns are
// quoted so stray syntax in questions doesn't restyle the page.
func Transcript(title string, turns []Turn) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "### %s", speaker(t.Role))
		if !t.At.IsZero() {
			fmt.Fprintf(&b, " · %s", t.At.Local().Format("Jan 2 15:04"))
		}
		b.WriteString("\n\n")
		if strings.EqualFold(t.Role, "user") {
			for line := range strings.SplitSeq(strings.TrimRight(t.Content, "\n"), "\n") {
				b.WriteString("> ")
				b.WriteString(line)
				b.WriteString("\n")
			}
			continue
		}
		b.WriteString(strings.TrimSpace(t.Content))
		b.WriteString("\n")
	}
	return b.String()
}

func speaker(role string) string {
	switch strings.ToLower(role) {
	case "user":
		return "You"
	case "assistant", "model", "ai":
		return "Assistant"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(role[:1]) + strings.ToLower(role[1:])
	}
}

var markdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#{1,6}\s`),
	regexp.MustCompile(`\*\*[^*]+\*\*`),
	regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`),
	regexp.MustCompile("```"),
	regexp.MustCompile(`(?m)^[-*+]\s`),
	regexp.MustCompile(`(?m)^\d+\.\s`),
	regexp.MustCompile(`(?m)^>\s`),
	regexp.MustCompile(`\$\$?[^$]+\$\$?`),
}

// IsMarkdown reports whether s looks like Markdown rather than plain text.
// This is a heuristic.
func IsMarkdown(s string) bool {
	if s == "" {
		return false
	}
	for _, re := range markdownPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
