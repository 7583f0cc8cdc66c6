package standalone

import (
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	m64p "github.com/user-none/m64ui/api"
	"github.com/user-none/m64ui/standalone/style"
)

// Display durations per kind of message.
const (
	notifyShort   = 1 * time.Second
	notifyDefault = 3 * time.Second
	notifyError   = 6 * time.Second
)

// Notification displays temporary messages on screen. Show may be called
// from any goroutine; Draw runs on the ebiten thread.
type Notification struct {
	mu        sync.Mutex
	message   string
	isError   bool
	startTime time.Time
	duration  time.Duration
	now       func() time.Time

	// Reused between frames
	bg *ebiten.Image
}

// NewNotification creates a new notification system
func NewNotification() *Notification {
	return &Notification{now: time.Now}
}

// Show displays a notification message
func (n *Notification) Show(message string, duration time.Duration) {
	n.show(message, duration, false)
}

func (n *Notification) show(message string, duration time.Duration, isError bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.message = message
	n.isError = isError
	n.startTime = n.now()
	n.duration = duration
}

// ShowDefault displays a notification with default 3 second duration
func (n *Notification) ShowDefault(message string) {
	n.Show(message, notifyDefault)
}

// ShowShort displays a notification with 1 second duration
func (n *Notification) ShowShort(message string) {
	n.Show(message, notifyShort)
}

// ShowMessage displays a core or front-end message if its level warrants
// it. Errors stay up longer and replace anything shown; warnings do not
// replace a visible error.
func (n *Notification) ShowMessage(level m64p.MsgLevel, msg string) {
	switch level {
	case m64p.MsgError:
		n.show("Error: "+msg, notifyError, true)
	case m64p.MsgWarning:
		n.mu.Lock()
		errorVisible := n.visibleLocked() && n.isError
		n.mu.Unlock()
		if !errorVisible {
			n.show("Warning: "+msg, notifyDefault, false)
		}
	}
}

// Message returns the visible message, or "" when nothing is shown.
func (n *Notification) Message() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.visibleLocked() {
		return ""
	}
	return n.message
}

// IsVisible returns whether the notification is currently visible
func (n *Notification) IsVisible() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visibleLocked()
}

func (n *Notification) visibleLocked() bool {
	return n.message != "" && n.now().Sub(n.startTime) < n.duration
}

// Clear removes the current notification
func (n *Notification) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.message = ""
}

// Draw renders the notification in the bottom-right corner
func (n *Notification) Draw(screen *ebiten.Image) {
	n.mu.Lock()
	if !n.visibleLocked() {
		n.mu.Unlock()
		return
	}
	message := n.message
	isError := n.isError
	n.mu.Unlock()

	bounds := screen.Bounds()
	textWidth, textHeight := text.Measure(message, *style.FontFace(), 0)

	padding := style.OverlayPadding
	margin := style.OverlayMargin
	maxWidth := float64(bounds.Dx() - margin*2 - padding*2)
	if textWidth > maxWidth {
		message, _ = style.TruncateToWidth(message, *style.FontFace(), maxWidth)
		textWidth, textHeight = text.Measure(message, *style.FontFace(), 0)
	}

	bgWidth := int(textWidth) + padding*2
	bgHeight := int(textHeight) + padding*2
	bgX := bounds.Dx() - bgWidth - margin
	bgY := bounds.Dy() - bgHeight - margin

	if n.bg == nil || n.bg.Bounds().Dx() < bgWidth || n.bg.Bounds().Dy() < bgHeight {
		n.bg = ebiten.NewImage(bgWidth, bgHeight)
	}
	n.bg.Clear()
	var fill color.NRGBA
	if isError {
		fill = style.Error
		fill.A = 220
	} else {
		fill = style.OverlayBackground
		fill.A = 153 // 60% opacity
	}
	n.bg.Fill(fill)

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Translate(float64(bgX), float64(bgY))
	screen.DrawImage(n.bg.SubImage(image.Rect(0, 0, bgWidth, bgHeight)).(*ebiten.Image), opts)

	textOpts := &text.DrawOptions{}
	textOpts.GeoM.Translate(float64(bgX+padding), float64(bgY+padding))
	textOpts.ColorScale.ScaleWithColor(style.Text)
	text.Draw(screen, message, *style.FontFace(), textOpts)
}
