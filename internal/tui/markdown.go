package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Assistant replies arrive as markdown. This renderer covers the subset the
// model actually emits: headings, bullet and numbered lists, fenced code
// blocks, block quotes, inline code and links. Everything else passes through
// as plain text.

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	codeBlock    = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	codeLangStyle = lipgloss.NewStyle().Faint(true)
	quoteStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
	bulletStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	linkStyle     = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("14"))
	boldStyle     = lipgloss.NewStyle().Bold(true)
)

var (
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	numberedRe   = regexp.MustCompile(`^(\d+)\. (.*)$`)
)

// RenderMarkdown renders assistant markdown for the terminal, wrapped to
// width columns.
func RenderMarkdown(content string, width int) string {
	if width <= 0 {
		width = 80
	}

	var out []string
	var code []string
	var codeLang string
	inCode := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimRight(line, " \t")

		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				out = append(out, renderCodeBlock(code, codeLang, width))
				code = nil
				inCode = false
			} else {
				inCode = true
				codeLang = strings.TrimPrefix(trimmed, "```")
			}
			continue
		}

		if inCode {
			code = append(code, line)
			continue
		}

		out = append(out, renderLine(trimmed, width))
	}

	// Unterminated fence: render what we have rather than dropping it.
	if inCode {
		out = append(out, renderCodeBlock(code, codeLang, width))
	}

	return strings.Join(out, "\n")
}

func renderCodeBlock(lines []string, lang string, width int) string {
	block := codeBlock.Width(width - 2).Render(strings.Join(lines, "\n"))
	if lang != "" {
		return codeLangStyle.Render(lang) + "\n" + block
	}
	return block
}

func renderLine(line string, width int) string {
	switch {
	case strings.HasPrefix(line, "### "):
		return headingStyle.Render(strings.TrimPrefix(line, "### "))
	case strings.HasPrefix(line, "## "):
		return headingStyle.Render(strings.TrimPrefix(line, "## "))
	case strings.HasPrefix(line, "# "):
		return headingStyle.Render(strings.TrimPrefix(line, "# "))
	case strings.HasPrefix(line, "> "):
		return quoteStyle.Render("│ " + renderInline(strings.TrimPrefix(line, "> ")))
	case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
		return bulletStyle.Render("•") + " " + renderInline(line[2:])
	}

	if m := numberedRe.FindStringSubmatch(line); m != nil {
		return bulletStyle.Render(m[1]+".") + " " + renderInline(m[2])
	}

	return wrap(renderInline(line), width)
}

func renderInline(s string) string {
	s = linkRe.ReplaceAllStringFunc(s, func(match string) string {
		m := linkRe.FindStringSubmatch(match)
		return linkStyle.Render(m[1]) + codeLangStyle.Render(fmt.Sprintf(" (%s)", m[2]))
	})
	s = inlineCodeRe.ReplaceAllStringFunc(s, func(match string) string {
		m := inlineCodeRe.FindStringSubmatch(match)
		return codeStyle.Render(m[1])
	})
	s = boldRe.ReplaceAllStringFunc(s, func(match string) string {
		m := boldRe.FindStringSubmatch(match)
		return boldStyle.Render(m[1])
	})
	return s
}

// wrap breaks a styled line on spaces. ANSI sequences make exact width math
// unreliable, so wrapping is word-based and approximate.
func wrap(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}

	words := strings.Fields(s)
	var lines []string
	var cur string
	for _, w := range words {
		if cur == "" {
			cur = w
			continue
		}
		if lipgloss.Width(cur)+1+lipgloss.Width(w) > width {
			lines = append(lines, cur)
			cur = w
		} else {
			cur += " " + w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return strings.Join(lines, "\n")
}
