package ui

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#5FD7FF"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#5FFF87"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD75F"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#8A8A8A"}
)

var (
	SuggestionStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess)
	WarningStyle    = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle      = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	MutedStyle      = lipgloss.NewStyle().Foreground(ColorMuted)
)

// Theme maps the palette onto huh form states.
func Theme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(ColorPrimary)
	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorPrimary)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorPrimary)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorError)
	t.Focused.Description = t.Focused.Description.Foreground(ColorMuted)
	t.Blurred.Title = t.Blurred.Title.Foreground(ColorMuted)

	return t
}

// ColorEnabled is false when NO_COLOR is set.
func ColorEnabled() bool {
	_, noColor := os.LookupEnv("NO_COLOR")
	return !noColor
}

func render(style lipgloss.Style, s string) string {
	if !ColorEnabled() {
		return s
	}
	return style.Render(s)
}

// Suggestion renders a generated message for display.
func Suggestion(message string) string { return render(SuggestionStyle, message) }

func Warning(s string) string { return render(WarningStyle, s) }

func Error(s string) string { return render(ErrorStyle, s) }

func Muted(s string) string { return render(MutedStyle, s) }
