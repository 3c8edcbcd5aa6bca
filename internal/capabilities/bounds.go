package capabilities

import "github.com/paulmach/orb"

// Bounds is a geographic extent stored as four optional scalars.
type Bounds struct {
	West  *float64
	East  *float64
	South *float64
	North *float64
}

// BBox returns the bounds as a closed polygon ring, or nil when any of the four
// bounds is missing.
func (b Bounds) BBox() orb.Polygon {
	if b.West == nil || b.East == nil || b.South == nil || b.North == nil {
		return nil
	}

	minX, minY, maxX, maxY := *b.West, *b.South, *b.East, *b.North
	return orb.Polygon{orb.Ring{
		{minX, minY},
		{minX, maxY},
		{maxX, maxY},
		{maxX, minY},
		{minX, minY},
	}}
}

// SetBBox stores the envelope of p. A nil polygon clears the bounds.
func (b *Bounds) SetBBox(p orb.Polygon) {
	if len(p) == 0 {
		*b = Bounds{}
		return
	}

	bound := p.Bound()
	b.West = floatPtr(bound.Min.X())
	b.South = floatPtr(bound.Min.Y())
	b.East = floatPtr(bound.Max.X())
	b.North = floatPtr(bound.Max.Y())
}

func floatPtr(v float64) *float64 {
	return &v
}
