package style

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"golang.design/x/clipboard"
)

// ScrollSlider creates a vertical scroll slider bound to a scroll container.
// The needsScroll function should return true when content exceeds view height.
func ScrollSlider(scrollContainer *widget.ScrollContainer, needsScroll func() bool) *widget.Slider {
	return widget.NewSlider(
		widget.SliderOpts.TabOrder(-1),
		widget.SliderOpts.Direction(widget.DirectionVertical),
		widget.SliderOpts.MinMax(0, 1000),
		widget.SliderOpts.Images(
			&widget.SliderTrackImage{
				Idle:  image.NewNineSliceColor(Border),
				Hover: image.NewNineSliceColor(Border),
			},
			SliderButtonImage(),
		),
		widget.SliderOpts.FixedHandleSize(Px(40)),
		widget.SliderOpts.PageSizeFunc(func() int {
			if !needsScroll() {
				return 1000
			}
			viewHeight := scrollContainer.ViewRect().Dy()
			contentHeight := scrollContainer.ContentRect().Dy()
			return int(float64(viewHeight) / float64(contentHeight) * 1000)
		}),
		widget.SliderOpts.ChangedHandler(func(args *widget.SliderChangedEventArgs) {
			if !needsScroll() {
				scrollContainer.ScrollTop = 0
				return
			}
			scrollContainer.ScrollTop = float64(args.Current) / 1000
		}),
	)
}

// SetupScrollHandler adds mouse wheel scroll support to a scroll container.
// The slider's Current value is kept in sync with scroll position.
func SetupScrollHandler(scrollContainer *widget.ScrollContainer, vSlider *widget.Slider, needsScroll func() bool) {
	scrollContainer.GetWidget().ScrolledEvent.AddHandler(func(args interface{}) {
		if !needsScroll() {
			scrollContainer.ScrollTop = 0
			return
		}
		a := args.(*widget.WidgetScrolledEventArgs)
		p := scrollContainer.ScrollTop + (a.Y * ScrollWheelSensitivity)
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		scrollContainer.ScrollTop = p
		vSlider.Current = int(p * 1000)
	})
}

// ScrollableContainer wraps content in a scroll container with a vertical
// slider and returns the wrapper for embedding in layouts.
func ScrollableContainer(content *widget.Container) widget.PreferredSizeLocateableWidget {
	scrollContainer := widget.NewScrollContainer(
		widget.ScrollContainerOpts.Content(content),
		widget.ScrollContainerOpts.StretchContentWidth(),
		widget.ScrollContainerOpts.Image(&widget.ScrollContainerImage{
			Idle: image.NewNineSliceColor(Background),
			Mask: image.NewNineSliceColor(Background),
		}),
	)

	needsScroll := func() bool {
		contentHeight := scrollContainer.ContentRect().Dy()
		viewHeight := scrollContainer.ViewRect().Dy()
		return contentHeight > 0 && viewHeight > 0 && contentHeight > viewHeight
	}

	vSlider := ScrollSlider(scrollContainer, needsScroll)
	SetupScrollHandler(scrollContainer, vSlider, needsScroll)

	wrapper := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewGridLayout(
			widget.GridLayoutOpts.Columns(2),
			widget.GridLayoutOpts.Stretch([]bool{true, false}, []bool{true}),
			widget.GridLayoutOpts.Spacing(TinySpacing, 0),
		)),
	)
	wrapper.AddChild(scrollContainer)
	wrapper.AddChild(vSlider)
	return wrapper
}

// TextButton creates a standard text button with consistent styling.
func TextButton(text string, padding int, handler func(*widget.ButtonClickedEventArgs)) *widget.Button {
	return widget.NewButton(
		widget.ButtonOpts.Image(ButtonImage()),
		widget.ButtonOpts.Text(text, FontFace(), ButtonTextColor()),
		widget.ButtonOpts.TextPadding(widget.NewInsetsSimple(padding)),
		widget.ButtonOpts.ClickedHandler(handler),
		widget.ButtonOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.RowLayoutData{Stretch: true}),
		),
	)
}

// PrimaryTextButton creates a prominent text button with primary styling.
func PrimaryTextButton(text string, padding int, handler func(*widget.ButtonClickedEventArgs)) *widget.Button {
	return widget.NewButton(
		widget.ButtonOpts.Image(PrimaryButtonImage()),
		widget.ButtonOpts.Text(text, FontFace(), ButtonTextColor()),
		widget.ButtonOpts.TextPadding(widget.NewInsetsSimple(padding)),
		widget.ButtonOpts.ClickedHandler(handler),
		widget.ButtonOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.RowLayoutData{Stretch: true}),
		),
	)
}

// ToggleButton creates a button that visually indicates an active/inactive state.
func ToggleButton(text string, active bool, handler func(*widget.ButtonClickedEventArgs)) *widget.Button {
	return widget.NewButton(
		widget.ButtonOpts.Image(ActiveButtonImage(active)),
		widget.ButtonOpts.Text(text, FontFace(), ButtonTextColor()),
		widget.ButtonOpts.TextPadding(widget.NewInsetsSimple(ButtonPaddingSmall)),
		widget.ButtonOpts.ClickedHandler(handler),
	)
}

// Label creates a left-aligned text widget.
func Label(text string, c color.Color) *widget.Text {
	return widget.NewText(
		widget.TextOpts.Text(text, FontFace(), c),
		widget.TextOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.RowLayoutData{Stretch: true}),
		),
	)
}

// Section creates a titled vertical column for a group of menu entries.
// Children added to the returned container stack below the title.
func Section(title string) *widget.Container {
	section := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(image.NewNineSliceColor(Surface)),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(TinySpacing),
			widget.RowLayoutOpts.Padding(widget.NewInsetsSimple(SmallSpacing)),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(SectionMinWidth, 0),
		),
	)
	section.AddChild(Label(title, Accent))
	return section
}

// ScreenContainer creates a full-screen root container with background.
// The container uses AnchorLayout so children can stretch to fill.
func ScreenContainer() *widget.Container {
	return widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(image.NewNineSliceColor(Background)),
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)
}

// ScreenContentContainer creates an inner container for screen content.
// Uses a single-column GridLayout with default padding and spacing.
// The stretch parameter controls which rows stretch vertically.
func ScreenContentContainer(rowStretch []bool) *widget.Container {
	return widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewGridLayout(
			widget.GridLayoutOpts.Columns(1),
			widget.GridLayoutOpts.Padding(widget.NewInsetsSimple(DefaultPadding)),
			widget.GridLayoutOpts.Spacing(DefaultSpacing, DefaultSpacing),
			widget.GridLayoutOpts.Stretch([]bool{true}, rowStretch),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				StretchHorizontal: true,
				StretchVertical:   true,
			}),
		),
	)
}

// ButtonRow creates a horizontal container for buttons with standard spacing.
func ButtonRow() *widget.Container {
	return widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
			widget.RowLayoutOpts.Spacing(SmallSpacing),
		)),
	)
}

// AlternatingRowColor returns the appropriate background color for alternating rows.
// Even indices (0, 2, 4...) return Background, odd indices return Surface.
func AlternatingRowColor(index int) color.Color {
	if index%2 == 0 {
		return Background
	}
	return Surface
}

var (
	clipboardOnce sync.Once
	clipboardErr  error
)

// CopyToClipboard places s on the system clipboard as text.
func CopyToClipboard(s string) error {
	clipboardOnce.Do(func() {
		clipboardErr = clipboard.Init()
	})
	if clipboardErr != nil {
		return fmt.Errorf("clipboard unavailable: %w", clipboardErr)
	}
	clipboard.Write(clipboard.FmtText, []byte(s))
	return nil
}
