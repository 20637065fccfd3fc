package render

import (
	"fmt"
	"log/slog"
	"strings"

	darkmode "github.com/thiagokokada/dark-mode-go"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

var detectDarkMode = darkmode.IsDarkMode

// ParseTheme accepts auto, light or dark, case insensitive. An empty value
// means auto.
func ParseTheme(raw string) (ThemePreference, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ThemeAuto.String():
		return ThemeAuto, nil
	case ThemeLight.String():
		return ThemeLight, nil
	case ThemeDark.String():
		return ThemeDark, nil
	default:
		return ThemeAuto, fmt.Errorf("unknown theme %q (want auto, light or dark)", raw)
	}
}

// IsDark resolves the preference, asking the desktop environment when it is
// auto. Detection failures fall back to light.
func (p ThemePreference) IsDark() bool {
	switch p {
	case ThemeDark:
		return true
	case ThemeLight:
		return false
	}
	if detectDarkMode == nil {
		return false
	}
	dark, err := detectDarkMode()
	if err != nil {
		slog.Debug("detect dark-mode", slog.Any("error", err))
		return false
	}
	return dark
}
