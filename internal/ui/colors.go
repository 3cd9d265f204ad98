package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/scrapectl/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	label lipgloss.Style

	okColor  string
	errColor string
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:    NewBold(t).MarginBottom(1),
		ok:       NewBold(s),
		err:      NewBold(e),
		warn:     NewStyle(w),
		help:     NewEm(h),
		label:    NewStyle(h).Width(24),
		okColor:  s,
		errColor: e,
	}
}

// Status picks the style for a task status: red for error states, green once finished.
func (p *Palette) Status(s models.TaskStatus) lipgloss.Style {
	switch {
	case models.IsErrorState(s):
		return p.err
	case s == models.StatusFinished:
		return p.ok
	case s == models.StatusInterrupting:
		return p.warn
	default:
		return lipgloss.NewStyle().Bold(true)
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
