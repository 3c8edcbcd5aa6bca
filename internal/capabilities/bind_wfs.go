package capabilities

import (
	"strings"

	"github.com/beevik/etree"
)

// featureTypeBinding handles the FeatureTypeList of WFS 2.0.0 documents.
type featureTypeBinding struct{}

func (featureTypeBinding) ReadContents(root *etree.Element, doc *Document) error {
	for _, el := range root.FindElements("FeatureTypeList/FeatureType") {
		featureType := &FeatureType{
			Name:     childText(el, "Name"),
			Title:    childText(el, "Title"),
			Abstract: childText(el, "Abstract"),
			Keywords: childTexts(el, "Keywords/Keyword"),
			elem:     el,
		}

		crs := append(childTexts(el, "DefaultCRS"), childTexts(el, "OtherCRS")...)
		systems, err := parseReferenceSystems(crs)
		if err != nil {
			return err
		}
		featureType.ReferenceSystems = systems

		if lower := strings.Fields(childText(el, "WGS84BoundingBox/LowerCorner")); len(lower) == 2 {
			featureType.West = parseFloat(lower[0])
			featureType.South = parseFloat(lower[1])
		}
		if upper := strings.Fields(childText(el, "WGS84BoundingBox/UpperCorner")); len(upper) == 2 {
			featureType.East = parseFloat(upper[0])
			featureType.North = parseFloat(upper[1])
		}

		doc.FeatureTypes = append(doc.FeatureTypes, featureType)
	}
	return nil
}

var (
	featureTypeOrder = []string{
		"Name", "Title", "Abstract", "Keywords", "DefaultCRS", "OtherCRS", "NoCRS",
		"OutputFormats", "WGS84BoundingBox", "MetadataURL", "ExtendedDescription",
	}
	cornerOrder = []string{"LowerCorner", "UpperCorner"}
)

func (featureTypeBinding) WriteContents(root *etree.Element, doc *Document) {
	list := root.SelectElement("FeatureTypeList")
	if list == nil {
		if len(doc.FeatureTypes) == 0 {
			return
		}
		list = root.CreateElement(qualified(root, "FeatureTypeList"))
	}

	keep := make(map[*etree.Element]bool)
	for _, featureType := range doc.FeatureTypes {
		el := featureType.elem
		if el == nil {
			el = list.CreateElement(qualified(list, "FeatureType"))
			featureType.elem = el
		}
		keep[el] = true

		setOrderedText(el, "Name", featureType.Name, featureTypeOrder)
		setOrderedText(el, "Title", featureType.Title, featureTypeOrder)
		setOrderedText(el, "Abstract", featureType.Abstract, featureTypeOrder)
		writeFeatureTypeKeywords(root, el, featureType.Keywords)
		writeFeatureTypeCRS(el, featureType.ReferenceSystems)
		writeWGS84BoundingBox(root, el, featureType.Bounds)
	}
	pruneChildren(list, "FeatureType", keep)
}

func writeFeatureTypeKeywords(root, el *etree.Element, keywords []string) {
	if equalStrings(childTexts(el, "Keywords/Keyword"), keywords) {
		return
	}
	if len(keywords) == 0 {
		removeChildren(el, "Keywords")
		return
	}

	list := el.SelectElement("Keywords")
	if list == nil {
		list = etree.NewElement(owsPrefix(root) + "Keywords")
		el.InsertChildAt(orderedIndex(el, "Keywords", featureTypeOrder), list)
	}
	replaceChildren(list, "Keyword", keywords)
}

// writeFeatureTypeCRS rewrites DefaultCRS and OtherCRS in short form when they
// differ from the feature type's reference systems.
func writeFeatureTypeCRS(el *etree.Element, systems []ReferenceSystem) {
	values := make([]string, 0, len(systems))
	for _, system := range systems {
		values = append(values, system.String())
	}
	current := append(childTexts(el, "DefaultCRS"), childTexts(el, "OtherCRS")...)
	if equalStrings(current, values) {
		return
	}

	removeChildren(el, "DefaultCRS")
	removeChildren(el, "OtherCRS")
	for i, value := range values {
		tag := "OtherCRS"
		if i == 0 {
			tag = "DefaultCRS"
		}
		createOrdered(el, tag, featureTypeOrder).SetText(value)
	}
}

func writeWGS84BoundingBox(root, el *etree.Element, bounds Bounds) {
	if bounds.BBox() == nil {
		removeChildren(el, "WGS84BoundingBox")
		return
	}

	bbox := el.SelectElement("WGS84BoundingBox")
	if bbox == nil {
		bbox = etree.NewElement(owsPrefix(root) + "WGS84BoundingBox")
		el.InsertChildAt(orderedIndex(el, "WGS84BoundingBox", featureTypeOrder), bbox)
	}
	setOrderedText(bbox, "LowerCorner", formatFloat(*bounds.West)+" "+formatFloat(*bounds.South), cornerOrder)
	setOrderedText(bbox, "UpperCorner", formatFloat(*bounds.East)+" "+formatFloat(*bounds.North), cornerOrder)
}
