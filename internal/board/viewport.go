package board

// Zoom limits.
const (
	MinZoom = 0.1
	MaxZoom = 10
)

// Viewport is the pan offset and zoom of a canvas. Screen = (World - Pan)
// * Zoom.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the identity view.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// ScreenToWorld converts a screen point to world coordinates.
func (v Viewport) ScreenToWorld(p Point) Point {
	z := v.zoom()
	return Point{X: p.X/z + v.X, Y: p.Y/z + v.Y}
}

// WorldToScreen converts a world point to screen coordinates.
func (v Viewport) WorldToScreen(p Point) Point {
	z := v.zoom()
	return Point{X: (p.X - v.X) * z, Y: (p.Y - v.Y) * z}
}

// Pan moves the view by a screen-space delta.
func (v Viewport) Pan(dx, dy float64) Viewport {
	z := v.zoom()
	v.X -= dx / z
	v.Y -= dy / z
	return v
}

// ZoomAt scales the view by factor keeping the world point under the
// screen point anchor fixed. The result is clamped to [MinZoom, MaxZoom].
func (v Viewport) ZoomAt(factor float64, anchor Point) Viewport {
	if factor <= 0 {
		return v
	}
	before := v.ScreenToWorld(anchor)
	v.Zoom = min(MaxZoom, max(MinZoom, v.zoom()*factor))
	v.X = before.X - anchor.X/v.Zoom
	v.Y = before.Y - anchor.Y/v.Zoom
	return v
}
