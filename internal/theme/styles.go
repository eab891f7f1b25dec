package theme

import (
	"github.com/artpar/requst/internal/core"
	"github.com/charmbracelet/lipgloss"
)

// Styles renders terminal output in a theme's colors.
type Styles struct {
	Theme  Theme
	Title  lipgloss.Style
	Muted  lipgloss.Style
	Border lipgloss.Style
	Group  lipgloss.Style
}

// NewStyles builds the lipgloss styles of t.
func NewStyles(t Theme) Styles {
	c := t.Colors
	return Styles{
		Theme:  t,
		Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Primary)),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color(c.Secondary)),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(c.Border)).Padding(0, 1),
		Group:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Text)),
	}
}

// Method renders an HTTP method badge.
func (s Styles) Method(method string) string {
	color := s.Theme.Colors.Color(MethodColor(method))
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(method)
}

// Status renders a response status in the color of its class.
func (s Styles) Status(status core.Status, text string) string {
	c := s.Theme.Colors
	color := c.Secondary
	switch {
	case status.IsError() || status >= 500:
		color = c.Danger
	case status >= 400:
		color = c.Warning
	case status >= 300:
		color = c.Info
	case status >= 200:
		color = c.Success
	}
	label := status.String()
	if text != "" {
		label += " " + text
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(label)
}
