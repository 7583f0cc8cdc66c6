package style

import (
	"testing"
)

func TestGetThemeByName(t *testing.T) {
	for _, name := range []string{"Default", "Dark", "Light", "Retro"} {
		t.Run(name, func(t *testing.T) {
			if got := GetThemeByName(name).Name; got != name {
				t.Errorf("GetThemeByName(%q).Name = %q", name, got)
			}
		})
	}

	for _, name := range []string{"", "Nonexistent", "dark"} {
		if got := GetThemeByName(name).Name; got != "Default" {
			t.Errorf("GetThemeByName(%q).Name = %q, want Default", name, got)
		}
	}
}

func TestNextThemeName(t *testing.T) {
	tests := []struct {
		current  string
		expected string
	}{
		{"Default", "Dark"},
		{"Light", "Retro"},
		{"Retro", "Default"},
		{"Unknown", "Default"},
	}
	for _, tc := range tests {
		if got := NextThemeName(tc.current); got != tc.expected {
			t.Errorf("NextThemeName(%q) = %q, want %q", tc.current, got, tc.expected)
		}
	}
}

func TestApplyTheme(t *testing.T) {
	orig := CurrentThemeName
	defer ApplyThemeByName(orig)

	ApplyTheme(ThemeDark)

	if Background != ThemeDark.Background || Surface != ThemeDark.Surface ||
		Primary != ThemeDark.Primary || PrimaryHover != ThemeDark.PrimaryHover {
		t.Error("surface colors not updated after ApplyTheme")
	}
	if Text != ThemeDark.Text || TextSecondary != ThemeDark.TextSecondary {
		t.Error("text colors not updated after ApplyTheme")
	}
	if Accent != ThemeDark.Accent || Border != ThemeDark.Border ||
		Error != ThemeDark.Error || OverlayBackground != ThemeDark.OverlayBackground {
		t.Error("accent colors not updated after ApplyTheme")
	}
	if CurrentThemeName != "Dark" {
		t.Errorf("CurrentThemeName = %q, want \"Dark\"", CurrentThemeName)
	}

	ApplyThemeByName("DoesNotExist")
	if CurrentThemeName != "Default" {
		t.Errorf("CurrentThemeName = %q, want \"Default\" for unknown theme", CurrentThemeName)
	}
}

func TestThemeNamesUnique(t *testing.T) {
	names := ThemeNames()
	if len(names) != len(AvailableThemes) {
		t.Fatalf("ThemeNames returned %d names for %d themes", len(names), len(AvailableThemes))
	}
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate theme name %q", n)
		}
		seen[n] = true
	}
}

func TestThemeColorsOpaque(t *testing.T) {
	for _, theme := range AvailableThemes {
		t.Run(theme.Name, func(t *testing.T) {
			colors := map[string]uint8{
				"Background":        theme.Background.A,
				"Surface":           theme.Surface.A,
				"Primary":           theme.Primary.A,
				"PrimaryHover":      theme.PrimaryHover.A,
				"Text":              theme.Text.A,
				"TextSecondary":     theme.TextSecondary.A,
				"Accent":            theme.Accent.A,
				"Border":            theme.Border.A,
				"Error":             theme.Error.A,
				"OverlayBackground": theme.OverlayBackground.A,
			}
			for name, alpha := range colors {
				if alpha != 0xff {
					t.Errorf("%s.%s alpha = 0x%02x, want 0xff", theme.Name, name, alpha)
				}
			}
		})
	}
}
