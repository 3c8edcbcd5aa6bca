package capabilities

import (
	"fmt"

	"github.com/beevik/etree"
)

// LegendURL points at a legend image of a style.
type LegendURL struct {
	URL      string
	Height   int
	Width    int
	MimeType string
}

type Style struct {
	Name   string
	Title  string
	Legend *LegendURL
}

// Layer is a node of the WMS layer tree. Children are owned by their parent;
// the same identifier appearing twice in a document gives two layers.
type Layer struct {
	Identifier string
	Title      string
	Abstract   string
	Keywords   []string

	ScaleMin *float64
	ScaleMax *float64

	Bounds

	ReferenceSystems []ReferenceSystem
	Styles           []Style
	Dimensions       []*TimeDimension

	Queryable bool
	Opaque    bool
	Cascaded  bool

	Children []*Layer

	parent *Layer
	elem   *etree.Element
}

// Parent returns the enclosing layer, or nil for the root layer.
func (l *Layer) Parent() *Layer {
	return l.parent
}

// AddChild appends child to the layer. A layer belongs to one parent only;
// moving it requires RemoveChild first.
func (l *Layer) AddChild(child *Layer) error {
	if child == nil || child == l {
		return fmt.Errorf("%w: cannot add layer as its own child", ErrInvalidValue)
	}
	if child.parent != nil {
		return fmt.Errorf("%w: layer %q already has a parent", ErrInvalidValue, child.Identifier)
	}
	child.parent = l
	l.Children = append(l.Children, child)
	return nil
}

// RemoveChild detaches child from the layer. It reports whether child was
// found.
func (l *Layer) RemoveChild(child *Layer) bool {
	for i, c := range l.Children {
		if c == child {
			l.Children = append(l.Children[:i:i], l.Children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Walk visits the layer and its descendants depth first until fn returns false.
func (l *Layer) Walk(fn func(*Layer) bool) bool {
	if !fn(l) {
		return false
	}
	for _, child := range l.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// Dimension returns the dimension with the given name.
func (l *Layer) Dimension(name string) (*TimeDimension, bool) {
	for _, dimension := range l.Dimensions {
		if dimension.Name == name {
			return dimension, true
		}
	}
	return nil, false
}
