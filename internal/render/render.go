// Package render presents an outline as Markdown, sanitized HTML or a styled
// terminal tree.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// Markdown renders the outline as a nested list under the title. Nesting
// never skips a level, so an H3 directly under the title is shown one level
// deep.
func Markdown(res *outline.Result) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(escape(res.Title))
	sb.WriteString("\n")
	if len(res.Outline) == 0 {
		return sb.String()
	}
	sb.WriteString("\n")

	prev := 0
	for _, h := range res.Outline {
		depth := min(h.Level.Depth(), prev+1)
		prev = depth
		sb.WriteString(strings.Repeat("  ", depth-1))
		fmt.Fprintf(&sb, "- %s (p. %d)\n", escape(h.Text), h.Page)
	}
	return sb.String()
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`,
	"#", `\#`, "|", `\|`, "!", `\!`, "&", `\&`,
)

// escape makes s literal inline Markdown, including leading characters that
// would otherwise open a nested list.
func escape(s string) string {
	s = mdEscaper.Replace(s)
	if s == "" {
		return s
	}
	switch s[0] {
	case '-', '+':
		return `\` + s
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return s[:i] + `\` + s[i:]
	}
	return s
}

var policy = bluemonday.UGCPolicy()

// HTML converts the Markdown rendering to HTML and sanitizes it.
func HTML(res *outline.Result) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(Markdown(res)), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// Terminal writes an indented, styled tree. Colors are only emitted when w
// is a terminal.
func Terminal(w io.Writer, res *outline.Result) error {
	r := lipgloss.NewRenderer(w)
	titleStyle := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFAA00"))
	levelStyles := map[outline.Level]lipgloss.Style{
		outline.H1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")),
		outline.H2: r.NewStyle().Foreground(lipgloss.Color("#DDDDDD")),
		outline.H3: r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	}
	pageStyle := r.NewStyle().Foreground(lipgloss.Color("#666666"))

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(res.Title))
	sb.WriteString("\n")
	for _, h := range res.Outline {
		indent := strings.Repeat("  ", h.Level.Depth())
		fmt.Fprintf(&sb, "%s%s %s  %s\n",
			indent,
			pageStyle.Render(string(h.Level)),
			levelStyles[h.Level].Render(h.Text),
			pageStyle.Render(fmt.Sprintf("p.%d", h.Page)),
		)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
