package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
)

const (
	descriptionLimit = 200
	endpointLimit    = 5
)

type printer struct {
	w       io.Writer
	title   lipgloss.Style
	label   lipgloss.Style
	ok      lipgloss.Style
	warning lipgloss.Style
}

// newPrinter styles output for w; a non-terminal writer gets plain text
func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		label:   r.NewStyle().Foreground(lipgloss.Color("241")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("42")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func (p *printer) header(text string) {
	fmt.Fprintf(p.w, "\n%s\n\n", p.title.Render(text))
}

func (p *printer) item(rank int, title, score, description string, endpoints []models.Endpoint) {
	fmt.Fprintf(p.w, "%s (score=%s)\n", p.title.Render(fmt.Sprintf("%d. %s", rank, title)), score)
	fmt.Fprintf(p.w, "   %s %s\n", p.label.Render("desc:"), truncateDescription(description))
	fmt.Fprintf(p.w, "   %s %s\n\n", p.label.Render("endpoints:"), formatEndpoints(endpoints))
}

func (p *printer) success(text string) {
	fmt.Fprintln(p.w, p.ok.Render(text))
}

func (p *printer) warn(text string) {
	fmt.Fprintln(p.w, p.warning.Render(text))
}

func truncateDescription(description string) string {
	runes := []rune(description)
	if len(runes) > descriptionLimit {
		runes = runes[:descriptionLimit]
	}
	return strings.ReplaceAll(string(runes), "\n", " ") + "..."
}

func formatEndpoints(endpoints []models.Endpoint) string {
	if len(endpoints) > endpointLimit {
		endpoints = endpoints[:endpointLimit]
	}
	parts := make([]string, len(endpoints))
	for i, e := range endpoints {
		parts[i] = e.Method + " " + e.Path
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
