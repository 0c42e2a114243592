package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/limbo/routinewidget/pkg/entity"
)

type palette struct {
	accent lipgloss.Color
	fg     lipgloss.Color
	bg     lipgloss.Color
}

var palettes = map[entity.Theme]palette{
	entity.ThemePink:         {accent: "#FF6FA5", fg: "#4A1530", bg: "#FFE4EF"},
	entity.ThemePurple:       {accent: "#9B5DE5", fg: "#2B1145", bg: "#EFE3FF"},
	entity.ThemeBlue:         {accent: "#3A86FF", fg: "#0B2545", bg: "#DDEBFF"},
	entity.ThemeMono:         {accent: "#555555", fg: "#111111", bg: "#F2F2F2"},
	entity.ThemePastelBlue:   {accent: "#8EC5FC", fg: "#23415E", bg: "#EEF6FF"},
	entity.ThemePastelPurple: {accent: "#C3AED6", fg: "#3F2E56", bg: "#F6F0FB"},
}

func paletteFor(th entity.Theme) palette {
	if p, ok := palettes[th]; ok {
		return p
	}
	return palettes[entity.ThemePink]
}

func cardStyle(th entity.Theme) lipgloss.Style {
	p := paletteFor(th)
	return lipgloss.NewStyle().
		Foreground(p.fg).
		Background(p.bg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.accent).
		Padding(1, 2)
}

func accentStyle(th entity.Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(paletteFor(th).accent).Bold(true)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6FA5"))
	faintStyle = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7263D"))
	debugStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)
