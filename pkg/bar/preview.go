package bar

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Preview renders each status line as styled terminal text instead of
// JSON. It is meant for checking a bar layout by eye.
type Preview struct {
	w *bufio.Writer
	// TitleWidth caps the rendered title; zero means unlimited.
	TitleWidth int

	title lipgloss.Style
	dim   lipgloss.Style
	clock lipgloss.Style
}

// NewPreview returns a preview sink writing to w.
func NewPreview(w io.Writer) *Preview {
	return &Preview{
		w:          bufio.NewWriter(w),
		TitleWidth: 80,
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")),
		clock: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")),
	}
}

// Begin is a no-op; the preview has no header.
func (p *Preview) Begin() error { return nil }

// Emit writes one rendered line.
func (p *Preview) Emit(blocks []Block) error {
	if _, err := fmt.Fprintln(p.w, p.Render(blocks)); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	if err := p.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Render joins the styled blocks with a dim separator.
func (p *Preview) Render(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Name {
		case NameTitle:
			title := b.FullText
			if title == "" {
				title = "-"
			}
			style := p.title
			if p.TitleWidth > 0 {
				style = style.MaxWidth(p.TitleWidth)
			}
			parts = append(parts, style.Render(title))
		case NameDatetime:
			parts = append(parts, p.clock.Render(b.FullText))
		default:
			parts = append(parts, p.dim.Render(b.FullText))
		}
	}
	return strings.Join(parts, p.dim.Render(" │ "))
}
