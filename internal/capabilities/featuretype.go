package capabilities

import "github.com/beevik/etree"

// FeatureType is a feature collection offered by a WFS.
type FeatureType struct {
	Name             string
	Title            string
	Abstract         string
	Keywords         []string
	ReferenceSystems []ReferenceSystem

	Bounds

	elem *etree.Element
}
