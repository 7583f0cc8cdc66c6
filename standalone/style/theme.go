package style

import (
	"bytes"
	"image/color"
	"log"

	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// Theme colors, replaced by ApplyTheme.
var (
	Background        = ThemeDefault.Background
	Surface           = ThemeDefault.Surface
	Primary           = ThemeDefault.Primary
	PrimaryHover      = ThemeDefault.PrimaryHover
	Text              = ThemeDefault.Text
	TextSecondary     = ThemeDefault.TextSecondary
	Accent            = ThemeDefault.Accent
	Border            = ThemeDefault.Border
	Error             = ThemeDefault.Error
	OverlayBackground = ThemeDefault.OverlayBackground
)

// Theme holds all color values for a UI theme
type Theme struct {
	Name              string
	Background        color.NRGBA
	Surface           color.NRGBA
	Primary           color.NRGBA
	PrimaryHover      color.NRGBA
	Text              color.NRGBA
	TextSecondary     color.NRGBA
	Accent            color.NRGBA
	Border            color.NRGBA
	Error             color.NRGBA
	OverlayBackground color.NRGBA
}

var (
	ThemeDefault = Theme{
		Name:              "Default",
		Background:        color.NRGBA{0x1a, 0x1a, 0x2e, 0xff},
		Surface:           color.NRGBA{0x25, 0x25, 0x3a, 0xff},
		Primary:           color.NRGBA{0x4a, 0x4a, 0x8a, 0xff},
		PrimaryHover:      color.NRGBA{0x5a, 0x5a, 0x9a, 0xff},
		Text:              color.NRGBA{0xff, 0xff, 0xff, 0xff},
		TextSecondary:     color.NRGBA{0xaa, 0xaa, 0xaa, 0xff},
		Accent:            color.NRGBA{0xff, 0xd7, 0x00, 0xff},
		Border:            color.NRGBA{0x3a, 0x3a, 0x5a, 0xff},
		Error:             color.NRGBA{0x9a, 0x20, 0x30, 0xff},
		OverlayBackground: color.NRGBA{0x1a, 0x1a, 0x2e, 0xff},
	}

	ThemeDark = Theme{
		Name:              "Dark",
		Background:        color.NRGBA{0x0a, 0x0a, 0x0a, 0xff},
		Surface:           color.NRGBA{0x1a, 0x1a, 0x1a, 0xff},
		Primary:           color.NRGBA{0x1e, 0x40, 0x7a, 0xff},
		PrimaryHover:      color.NRGBA{0x2a, 0x50, 0x8a, 0xff},
		Text:              color.NRGBA{0xff, 0xff, 0xff, 0xff},
		TextSecondary:     color.NRGBA{0x88, 0x88, 0x88, 0xff},
		Accent:            color.NRGBA{0x00, 0xc8, 0x53, 0xff},
		Border:            color.NRGBA{0x2a, 0x2a, 0x2a, 0xff},
		Error:             color.NRGBA{0x8b, 0x1a, 0x1a, 0xff},
		OverlayBackground: color.NRGBA{0x0a, 0x0a, 0x0a, 0xff},
	}

	ThemeLight = Theme{
		Name:              "Light",
		Background:        color.NRGBA{0xe8, 0xe8, 0xe8, 0xff},
		Surface:           color.NRGBA{0xf5, 0xf5, 0xf5, 0xff},
		Primary:           color.NRGBA{0x1a, 0x56, 0xdb, 0xff},
		PrimaryHover:      color.NRGBA{0x2a, 0x66, 0xeb, 0xff},
		Text:              color.NRGBA{0x1a, 0x1a, 0x1a, 0xff},
		TextSecondary:     color.NRGBA{0x66, 0x66, 0x66, 0xff},
		Accent:            color.NRGBA{0xe6, 0x5c, 0x00, 0xff},
		Border:            color.NRGBA{0xcc, 0xcc, 0xcc, 0xff},
		Error:             color.NRGBA{0xf0, 0xb0, 0xb0, 0xff},
		OverlayBackground: color.NRGBA{0xe8, 0xe8, 0xe8, 0xff},
	}

	// Retro borrows the N64 logo palette.
	ThemeRetro = Theme{
		Name:              "Retro",
		Background:        color.NRGBA{0x1c, 0x1c, 0x1c, 0xff},
		Surface:           color.NRGBA{0x28, 0x28, 0x28, 0xff},
		Primary:           color.NRGBA{0x00, 0x3d, 0x99, 0xff},
		PrimaryHover:      color.NRGBA{0x1a, 0x57, 0xb3, 0xff},
		Text:              color.NRGBA{0xd0, 0xd0, 0xd0, 0xff},
		TextSecondary:     color.NRGBA{0x80, 0x80, 0x80, 0xff},
		Accent:            color.NRGBA{0x00, 0x99, 0x3d, 0xff},
		Border:            color.NRGBA{0x3c, 0x3c, 0x3c, 0xff},
		Error:             color.NRGBA{0xcc, 0x1f, 0x1f, 0xff},
		OverlayBackground: color.NRGBA{0x1c, 0x1c, 0x1c, 0xff},
	}

	// AvailableThemes lists all themes for UI selection
	AvailableThemes = []Theme{ThemeDefault, ThemeDark, ThemeLight, ThemeRetro}

	// CurrentThemeName tracks the active theme name
	CurrentThemeName = "Default"
)

// ThemeNames returns the list of valid theme name strings.
func ThemeNames() []string {
	names := make([]string, len(AvailableThemes))
	for i, t := range AvailableThemes {
		names[i] = t.Name
	}
	return names
}

// GetThemeByName returns theme by name, or ThemeDefault if not found
func GetThemeByName(name string) Theme {
	for _, t := range AvailableThemes {
		if t.Name == name {
			return t
		}
	}
	return ThemeDefault
}

// NextThemeName returns the theme after name in AvailableThemes, wrapping.
func NextThemeName(name string) string {
	for i, t := range AvailableThemes {
		if t.Name == name {
			return AvailableThemes[(i+1)%len(AvailableThemes)].Name
		}
	}
	return ThemeDefault.Name
}

// ApplyTheme updates package-level color variables from a theme
func ApplyTheme(theme Theme) {
	Background = theme.Background
	Surface = theme.Surface
	Primary = theme.Primary
	PrimaryHover = theme.PrimaryHover
	Text = theme.Text
	TextSecondary = theme.TextSecondary
	Accent = theme.Accent
	Border = theme.Border
	Error = theme.Error
	OverlayBackground = theme.OverlayBackground
	CurrentThemeName = theme.Name
}

// ApplyThemeByName applies theme by name with fallback to Default
func ApplyThemeByName(name string) {
	ApplyTheme(GetThemeByName(name))
}

// currentFontSize is the current font size in points (default 14)
var currentFontSize float64 = 14

// dpiScale is the device pixel ratio (1.0 on non-retina, 2.0 on retina)
var dpiScale float64 = 1.0

// Px converts a logical pixel value to physical pixels using the current DPI scale.
func Px(logical int) int {
	return int(float64(logical) * dpiScale)
}

// SetDPIScale sets the DPI scale factor and recalculates all spatial vars.
func SetDPIScale(scale float64) {
	if scale < 1.0 {
		scale = 1.0
	}
	dpiScale = scale

	DefaultPadding = Px(baseDefaultPadding)
	DefaultSpacing = Px(baseDefaultSpacing)
	SmallSpacing = Px(baseSmallSpacing)
	TinySpacing = Px(baseTinySpacing)
	ButtonPaddingSmall = Px(baseButtonPaddingSmall)
	ButtonPaddingMedium = Px(baseButtonPaddingMedium)
	SectionMinWidth = Px(baseSectionMinWidth)
	OverlayPadding = Px(baseOverlayPadding)
	OverlayMargin = Px(baseOverlayMargin)

	ApplyFontSize(int(currentFontSize))
}

// sharedFontSource is the cached TrueType font source shared by all font faces
var sharedFontSource *text.GoTextFaceSource

// fontFace is the cached font face
var fontFace text.Face

func loadFontSource() *text.GoTextFaceSource {
	if sharedFontSource == nil {
		source, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
		if err != nil {
			log.Printf("Failed to load font source: %v", err)
			return nil
		}
		sharedFontSource = source
	}
	return sharedFontSource
}

// FontFace returns the font face to use for UI text
func FontFace() *text.Face {
	if fontFace == nil {
		source := loadFontSource()
		if source == nil {
			return &fontFace
		}
		fontFace = &text.GoTextFace{
			Source: source,
			Size:   currentFontSize * dpiScale,
		}
	}
	return &fontFace
}

// ApplyFontSize sets the font size and recalculates font-dependent layout.
func ApplyFontSize(size int) {
	s := float64(size)
	currentFontSize = s

	// Widgets hold &fontFace, so the face is swapped in place rather than
	// cleared.
	if source := loadFontSource(); source != nil {
		fontFace = &text.GoTextFace{
			Source: source,
			Size:   s * dpiScale,
		}
	}

	RowHeight = int(baseRowHeight * s / 14.0 * dpiScale)
}

// ButtonImage creates a standard button image set
func ButtonImage() *widget.ButtonImage {
	return &widget.ButtonImage{
		Idle:     image.NewNineSliceColor(Surface),
		Hover:    image.NewNineSliceColor(PrimaryHover),
		Pressed:  image.NewNineSliceColor(Primary),
		Disabled: image.NewNineSliceColor(Border),
	}
}

// PrimaryButtonImage creates a prominent button image set
func PrimaryButtonImage() *widget.ButtonImage {
	return &widget.ButtonImage{
		Idle:     image.NewNineSliceColor(Primary),
		Hover:    image.NewNineSliceColor(PrimaryHover),
		Pressed:  image.NewNineSliceColor(Surface),
		Disabled: image.NewNineSliceColor(Border),
	}
}

// ActiveButtonImage returns a button image based on active state.
func ActiveButtonImage(active bool) *widget.ButtonImage {
	if active {
		return PrimaryButtonImage()
	}
	return ButtonImage()
}

// SliderButtonImage creates a slider handle button image
func SliderButtonImage() *widget.ButtonImage {
	return &widget.ButtonImage{
		Idle:     image.NewNineSliceColor(Primary),
		Hover:    image.NewNineSliceColor(PrimaryHover),
		Pressed:  image.NewNineSliceColor(Primary),
		Disabled: image.NewNineSliceColor(Border),
	}
}

// ButtonTextColor returns the standard button text colors
func ButtonTextColor() *widget.ButtonTextColor {
	return &widget.ButtonTextColor{
		Idle:     Text,
		Disabled: TextSecondary,
	}
}
