// Package geometry provides the point, rectangle and region math shared by
// hit-testing, window placement and damage tracking. All containment checks
// use half-open intervals: a rectangle at (x, y) with size (w, h) contains
// points in [x, x+w) x [y, y+h).
package geometry

// Point is a position in compositor space. Coordinates are float64 because
// pointer hardware reports sub-pixel motion.
type Point struct {
	X, Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p translated by -q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Size is a width/height pair in pixels. Protocol sizes are int32.
type Size struct {
	W, H int32
}

// Empty reports whether the size has no area.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Rect is an axis-aligned rectangle in compositor space.
type Rect struct {
	X, Y, W, H float64
}

// RectFromSize returns a rectangle at origin with the given size.
func RectFromSize(s Size) Rect {
	return Rect{W: float64(s.W), H: float64(s.H)}
}

// Contains reports whether p falls inside r. The right and bottom edges
// are exclusive, so adjacent rectangles never both claim a point.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Intersect returns the overlap of r and s. The result is empty when the
// rectangles do not overlap.
func (r Rect) Intersect(s Rect) Rect {
	x1 := max(r.X, s.X)
	y1 := max(r.Y, s.Y)
	x2 := min(r.X+r.W, s.X+s.W)
	y2 := min(r.Y+r.H, s.Y+s.H)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Union returns the smallest rectangle covering both r and s. An empty
// rectangle contributes nothing.
func (r Rect) Union(s Rect) Rect {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	x1 := min(r.X, s.X)
	y1 := min(r.Y, s.Y)
	x2 := max(r.X+r.W, s.X+s.W)
	y2 := max(r.Y+r.H, s.Y+s.H)
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Offset returns r translated by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Region is a set of rectangles. A point is inside the region when any
// member rectangle contains it; overlap between members is allowed.
type Region []Rect

// Contains reports whether p falls inside any rectangle of the region.
func (g Region) Contains(p Point) bool {
	for _, r := range g {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

// Empty reports whether the region covers no area.
func (g Region) Empty() bool {
	for _, r := range g {
		if !r.Empty() {
			return false
		}
	}
	return true
}

// Bounds returns the union of all member rectangles.
func (g Region) Bounds() Rect {
	var b Rect
	for _, r := range g {
		b = b.Union(r)
	}
	return b
}
