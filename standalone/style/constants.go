package style

// Logical-pixel reference values. The exported vars below are recalculated
// from these by SetDPIScale.
const (
	baseDefaultPadding      = 16
	baseDefaultSpacing      = 16
	baseSmallSpacing        = 8
	baseTinySpacing         = 4
	baseButtonPaddingSmall  = 6
	baseButtonPaddingMedium = 10
	baseSectionMinWidth     = 200
	baseOverlayPadding      = 12
	baseOverlayMargin       = 8

	// Font-dependent, at 14pt
	baseRowHeight = 32
)

var (
	DefaultPadding = baseDefaultPadding
	DefaultSpacing = baseDefaultSpacing
	SmallSpacing   = baseSmallSpacing
	TinySpacing    = baseTinySpacing

	ButtonPaddingSmall  = baseButtonPaddingSmall
	ButtonPaddingMedium = baseButtonPaddingMedium

	// SectionMinWidth is the minimum width of a menu column.
	SectionMinWidth = baseSectionMinWidth
)

// Overlay vars (notification)
var (
	OverlayPadding = baseOverlayPadding
	OverlayMargin  = baseOverlayMargin
)

// RowHeight is the height of one info panel row (updated by ApplyFontSize).
var RowHeight = baseRowHeight

// ScrollWheelSensitivity scales mouse wheel deltas for scroll containers.
const ScrollWheelSensitivity = 0.05
