package placement

import "math"

// Handle identifies a top-level desktop window. Handles are reused by the
// window system, so a stored handle may silently start pointing at nothing.
type Handle uintptr

// Element is an opaque node in the desktop's accessibility tree.
type Element interface {
	Name() string
}

// Subscription is a registered notification that must be closed exactly once.
type Subscription interface {
	Close() error
}

// Shell exposes the desktop shell that hosts the taskbar. Every call that
// takes a Handle returns ErrInvalidHandle once the shell window is gone.
type Shell interface {
	FindTaskbar() (Handle, Element, error)
	IsTopmost(h Handle) (bool, error)
	TaskbarRect(h Handle) (Rect, error)
	DPI(h Handle) (uint32, error)
	FirstTrayButton(tray Element) (Rect, error)
	// WatchStructure registers notify to run, on an arbitrary goroutine,
	// whenever the children of the element change.
	WatchStructure(tray Element, notify func()) (Subscription, error)
}

// Window is the overlay's own top-level window.
type Window interface {
	// Touch issues a stacking call that changes nothing.
	Touch() error
	SetTopmost(topmost bool) error
}

// Rect is a rectangle in physical screen pixels.
type Rect struct {
	Left   int32 `json:"left"`
	Top    int32 `json:"top"`
	Right  int32 `json:"right"`
	Bottom int32 `json:"bottom"`
}

func (r Rect) Width() int32  { return r.Right - r.Left }
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// DefaultDPI is the DPI at which one logical pixel is one physical pixel.
const DefaultDPI = 96

// Scale converts logical pixels to physical pixels.
type Scale float64

// ScaleForDPI returns the scale factor for a DPI value.
func ScaleForDPI(dpi uint32) Scale {
	if dpi == 0 {
		return 1
	}
	return Scale(float64(dpi) / DefaultDPI)
}

// Px scales a logical length, rounding to the nearest pixel.
func (s Scale) Px(logical int) int32 {
	return int32(math.Round(float64(logical) * float64(s)))
}

// Percent is the scale as a whole percentage, as shown in display settings.
func (s Scale) Percent() int {
	return int(math.Round(float64(s) * 100))
}
