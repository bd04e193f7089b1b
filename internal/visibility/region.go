package visibility

import "forcefocus/pkg/window"

// Region is a set of screen pixels stored as disjoint rectangles.
// The zero value is the empty region. Operations return new regions and never
// mutate the receiver.
type Region struct {
	rects []window.Rect
}

// RegionOf returns the region covering r, or the empty region for a degenerate rect
func RegionOf(r window.Rect) Region {
	if r.Empty() {
		return Region{}
	}
	return Region{rects: []window.Rect{r}}
}

// IsEmpty reports whether the region covers no pixels
func (g Region) IsEmpty() bool {
	return len(g.rects) == 0
}

// Rects returns a copy of the disjoint rectangles making up the region
func (g Region) Rects() []window.Rect {
	out := make([]window.Rect, len(g.rects))
	copy(out, g.rects)
	return out
}

// Area returns the number of pixels in the region
func (g Region) Area() int {
	total := 0
	for _, r := range g.rects {
		total += r.Width() * r.Height()
	}
	return total
}

// Bounds returns the smallest rectangle containing the region
func (g Region) Bounds() window.Rect {
	if g.IsEmpty() {
		return window.Rect{}
	}
	b := g.rects[0]
	for _, r := range g.rects[1:] {
		b.Left = min(b.Left, r.Left)
		b.Top = min(b.Top, r.Top)
		b.Right = max(b.Right, r.Right)
		b.Bottom = max(b.Bottom, r.Bottom)
	}
	return b
}

// Union returns g ∪ r
func (g Region) Union(r window.Rect) Region {
	if r.Empty() {
		return g
	}
	// Only the part of r not already covered is added, keeping rects disjoint.
	fresh := []window.Rect{r}
	for _, existing := range g.rects {
		fresh = subtractAll(fresh, existing)
		if len(fresh) == 0 {
			return g
		}
	}
	out := make([]window.Rect, 0, len(g.rects)+len(fresh))
	out = append(out, g.rects...)
	out = append(out, fresh...)
	return Region{rects: out}
}

// Subtract returns g − r
func (g Region) Subtract(r window.Rect) Region {
	if r.Empty() || g.IsEmpty() {
		return g
	}
	return Region{rects: subtractAll(g.rects, r)}
}

// SubtractRegion returns g − other
func (g Region) SubtractRegion(other Region) Region {
	out := g
	for _, r := range other.rects {
		if out.IsEmpty() {
			break
		}
		out = out.Subtract(r)
	}
	return out
}

func subtractAll(rects []window.Rect, cut window.Rect) []window.Rect {
	out := make([]window.Rect, 0, len(rects))
	for _, r := range rects {
		out = append(out, subtractRect(r, cut)...)
	}
	return out
}

// subtractRect splits a around b into at most four non-overlapping pieces:
// full-width bands above and below b, and the left and right slivers between them.
func subtractRect(a, b window.Rect) []window.Rect {
	if !intersects(a, b) {
		return []window.Rect{a}
	}

	pieces := make([]window.Rect, 0, 4)
	if b.Top > a.Top {
		pieces = append(pieces, window.Rect{Left: a.Left, Top: a.Top, Right: a.Right, Bottom: b.Top})
	}
	if b.Bottom < a.Bottom {
		pieces = append(pieces, window.Rect{Left: a.Left, Top: b.Bottom, Right: a.Right, Bottom: a.Bottom})
	}

	midTop := max(a.Top, b.Top)
	midBottom := min(a.Bottom, b.Bottom)
	if b.Left > a.Left {
		pieces = append(pieces, window.Rect{Left: a.Left, Top: midTop, Right: b.Left, Bottom: midBottom})
	}
	if b.Right < a.Right {
		pieces = append(pieces, window.Rect{Left: b.Right, Top: midTop, Right: a.Right, Bottom: midBottom})
	}
	return pieces
}

func intersects(a, b window.Rect) bool {
	return a.Left < b.Right && b.Left < a.Right && a.Top < b.Bottom && b.Top < a.Bottom
}
