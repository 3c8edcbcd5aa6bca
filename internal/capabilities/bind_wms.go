package capabilities

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// wmsLayerBinding reads and writes the WMS layer tree. WMS 1.1.1 (legacy)
// differs from 1.3.0 in how it spells reference systems, bounds, scale limits
// and dimension extents.
type wmsLayerBinding struct {
	legacy bool
}

func (b wmsLayerBinding) ReadContents(root *etree.Element, doc *Document) error {
	top := root.FindElement("Capability/Layer")
	if top == nil {
		return nil
	}

	layer, err := b.readLayer(top, nil)
	if err != nil {
		return err
	}
	doc.RootLayer = layer
	return nil
}

func (b wmsLayerBinding) readLayer(el *etree.Element, parent *Layer) (*Layer, error) {
	layer := &Layer{
		Identifier: childText(el, "Name"),
		Title:      childText(el, "Title"),
		Abstract:   childText(el, "Abstract"),
		Keywords:   childTexts(el, "KeywordList/Keyword"),
		Queryable:  parseBool(attrValue(el, "queryable")),
		Opaque:     parseBool(attrValue(el, "opaque")),
		Cascaded:   parseInt(attrValue(el, "cascaded")) > 0,
		parent:     parent,
		elem:       el,
	}

	crsTag := "CRS"
	if b.legacy {
		crsTag = "SRS"
	}
	systems, err := parseReferenceSystems(childTexts(el, crsTag))
	if err != nil {
		return nil, err
	}
	layer.ReferenceSystems = systems

	if b.legacy {
		if bbox := el.SelectElement("LatLonBoundingBox"); bbox != nil {
			layer.West = parseFloat(attrValue(bbox, "minx"))
			layer.South = parseFloat(attrValue(bbox, "miny"))
			layer.East = parseFloat(attrValue(bbox, "maxx"))
			layer.North = parseFloat(attrValue(bbox, "maxy"))
		}
		if hint := el.SelectElement("ScaleHint"); hint != nil {
			layer.ScaleMin = parseFloat(attrValue(hint, "min"))
			layer.ScaleMax = parseFloat(attrValue(hint, "max"))
		}
	} else {
		if bbox := el.SelectElement("EX_GeographicBoundingBox"); bbox != nil {
			layer.West = parseFloat(childText(bbox, "westBoundLongitude"))
			layer.East = parseFloat(childText(bbox, "eastBoundLongitude"))
			layer.South = parseFloat(childText(bbox, "southBoundLatitude"))
			layer.North = parseFloat(childText(bbox, "northBoundLatitude"))
		}
		layer.ScaleMin = parseFloat(childText(el, "MinScaleDenominator"))
		layer.ScaleMax = parseFloat(childText(el, "MaxScaleDenominator"))
	}

	for _, styleEl := range el.SelectElements("Style") {
		style := Style{
			Name:  childText(styleEl, "Name"),
			Title: childText(styleEl, "Title"),
		}
		if legend := styleEl.SelectElement("LegendURL"); legend != nil {
			style.Legend = &LegendURL{
				URL:      attrValue(legend.SelectElement("OnlineResource"), "href"),
				Height:   parseInt(attrValue(legend, "height")),
				Width:    parseInt(attrValue(legend, "width")),
				MimeType: childText(legend, "Format"),
			}
		}
		layer.Styles = append(layer.Styles, style)
	}

	for _, dimensionEl := range el.SelectElements("Dimension") {
		dimension := &TimeDimension{
			Name:  attrValue(dimensionEl, "name"),
			Units: attrValue(dimensionEl, "units"),
		}
		extentEl := dimensionEl
		if b.legacy {
			extentEl = el.FindElement("Extent[@name='" + dimension.Name + "']")
		}
		if extentEl != nil {
			dimension.raw = strings.TrimSpace(extentEl.Text())
			dimension.Default = attrValue(extentEl, "default")
			dimension.elem = extentEl
		}
		layer.Dimensions = append(layer.Dimensions, dimension)
	}
	if b.legacy {
		b.readInheritedExtents(el, layer)
	}

	for _, childEl := range el.SelectElements("Layer") {
		child, err := b.readLayer(childEl, layer)
		if err != nil {
			return nil, err
		}
		layer.Children = append(layer.Children, child)
	}

	return layer, nil
}

// readInheritedExtents picks up WMS 1.1.1 Extent elements whose Dimension is
// declared by an ancestor layer.
func (b wmsLayerBinding) readInheritedExtents(el *etree.Element, layer *Layer) {
	for _, extentEl := range el.SelectElements("Extent") {
		name := attrValue(extentEl, "name")
		if _, ok := layer.Dimension(name); ok {
			continue
		}

		dimension := &TimeDimension{
			Name:    name,
			Default: attrValue(extentEl, "default"),
			raw:     strings.TrimSpace(extentEl.Text()),
			elem:    extentEl,
		}
		for ancestor := layer.parent; ancestor != nil; ancestor = ancestor.parent {
			if declared, ok := ancestor.Dimension(name); ok {
				dimension.Units = declared.Units
				break
			}
		}
		layer.Dimensions = append(layer.Dimensions, dimension)
	}
}

// Child order of a Layer element as the WMS schemas define it.
var (
	layerOrder = []string{
		"Name", "Title", "Abstract", "KeywordList", "CRS", "EX_GeographicBoundingBox",
		"BoundingBox", "Dimension", "Attribution", "AuthorityURL", "Identifier", "MetadataURL",
		"DataURL", "FeatureListURL", "Style", "MinScaleDenominator", "MaxScaleDenominator", "Layer",
	}
	legacyLayerOrder = []string{
		"Name", "Title", "Abstract", "KeywordList", "SRS", "LatLonBoundingBox",
		"BoundingBox", "Dimension", "Extent", "Attribution", "AuthorityURL", "Identifier",
		"MetadataURL", "DataURL", "FeatureListURL", "Style", "ScaleHint", "Layer",
	}
	styleOrder          = []string{"Name", "Title", "Abstract", "LegendURL", "StyleSheetURL", "StyleURL"}
	legendOrder         = []string{"Format", "OnlineResource"}
	geographicBBoxOrder = []string{"westBoundLongitude", "eastBoundLongitude", "southBoundLatitude", "northBoundLatitude"}
)

func (b wmsLayerBinding) order() []string {
	if b.legacy {
		return legacyLayerOrder
	}
	return layerOrder
}

func (b wmsLayerBinding) WriteContents(root *etree.Element, doc *Document) {
	capability := ensurePath(root, "Capability")
	if doc.RootLayer == nil {
		removeChildren(capability, "Layer")
		return
	}
	b.writeLayer(capability, doc.RootLayer)
}

func (b wmsLayerBinding) writeLayer(parentEl *etree.Element, layer *Layer) {
	el := layer.elem
	if el == nil {
		el = parentEl.CreateElement(qualified(parentEl, "Layer"))
		layer.elem = el
	} else if current := el.Parent(); current != parentEl {
		// moved to another parent
		if current != nil {
			current.RemoveChild(el)
		}
		parentEl.AddChild(el)
	}
	order := b.order()

	setFlag(el, "queryable", layer.Queryable)
	setFlag(el, "opaque", layer.Opaque)
	if !layer.Cascaded || parseInt(attrValue(el, "cascaded")) <= 0 {
		setFlag(el, "cascaded", layer.Cascaded)
	}

	setOrderedText(el, "Name", layer.Identifier, order)
	setOrderedText(el, "Title", layer.Title, order)
	setOrderedText(el, "Abstract", layer.Abstract, order)
	b.writeKeywords(el, layer.Keywords)
	b.writeReferenceSystems(el, layer.ReferenceSystems)

	if b.legacy {
		b.writeLatLonBoundingBox(el, layer.Bounds)
	} else {
		b.writeGeographicBoundingBox(el, layer.Bounds)
	}

	keep := make(map[*etree.Element]bool)
	for _, dimension := range layer.Dimensions {
		b.writeDimension(el, dimension)
		if dimension.elem != nil {
			keep[dimension.elem] = true
		}
	}
	if b.legacy {
		pruneChildren(el, "Extent", keep)
		names := make(map[string]bool)
		for _, dimension := range layer.Dimensions {
			names[dimension.Name] = true
		}
		for _, dimensionEl := range el.SelectElements("Dimension") {
			if !names[attrValue(dimensionEl, "name")] {
				el.RemoveChild(dimensionEl)
			}
		}
	} else {
		pruneChildren(el, "Dimension", keep)
	}

	b.writeStyles(el, layer.Styles)
	b.writeScale(el, layer.ScaleMin, layer.ScaleMax)

	keep = make(map[*etree.Element]bool)
	for _, child := range layer.Children {
		b.writeLayer(el, child)
		keep[child.elem] = true
	}
	pruneChildren(el, "Layer", keep)
}

func (b wmsLayerBinding) writeKeywords(el *etree.Element, keywords []string) {
	if equalStrings(childTexts(el, "KeywordList/Keyword"), keywords) {
		return
	}
	if len(keywords) == 0 {
		removeChildren(el, "KeywordList")
		return
	}
	replaceChildren(ensureOrdered(el, "KeywordList", b.order()), "Keyword", keywords)
}

// writeReferenceSystems rewrites the CRS (SRS) elements when they differ from
// the short form of the layer's reference systems.
func (b wmsLayerBinding) writeReferenceSystems(el *etree.Element, systems []ReferenceSystem) {
	tag := "CRS"
	if b.legacy {
		tag = "SRS"
	}

	values := make([]string, 0, len(systems))
	for _, system := range systems {
		values = append(values, system.String())
	}

	var current []string
	for _, value := range childTexts(el, tag) {
		current = append(current, strings.Fields(value)...)
	}
	if equalStrings(current, values) {
		return
	}

	removeChildren(el, tag)
	for _, value := range values {
		createOrdered(el, tag, b.order()).SetText(value)
	}
}

func (b wmsLayerBinding) writeGeographicBoundingBox(el *etree.Element, bounds Bounds) {
	if bounds == (Bounds{}) {
		removeChildren(el, "EX_GeographicBoundingBox")
		return
	}

	bbox := ensureOrdered(el, "EX_GeographicBoundingBox", b.order())
	writeBound(bbox, "westBoundLongitude", bounds.West)
	writeBound(bbox, "eastBoundLongitude", bounds.East)
	writeBound(bbox, "southBoundLatitude", bounds.South)
	writeBound(bbox, "northBoundLatitude", bounds.North)
}

func writeBound(bbox *etree.Element, tag string, value *float64) {
	if value == nil {
		removeChildren(bbox, tag)
		return
	}
	setOrderedText(bbox, tag, formatFloat(*value), geographicBBoxOrder)
}

func (b wmsLayerBinding) writeLatLonBoundingBox(el *etree.Element, bounds Bounds) {
	if bounds == (Bounds{}) {
		removeChildren(el, "LatLonBoundingBox")
		return
	}

	bbox := ensureOrdered(el, "LatLonBoundingBox", b.order())
	for _, attr := range []struct {
		key   string
		value *float64
	}{
		{"minx", bounds.West},
		{"miny", bounds.South},
		{"maxx", bounds.East},
		{"maxy", bounds.North},
	} {
		if attr.value == nil {
			bbox.RemoveAttr(attr.key)
			continue
		}
		bbox.CreateAttr(attr.key, formatFloat(*attr.value))
	}
}

func (b wmsLayerBinding) writeDimension(el *etree.Element, dimension *TimeDimension) {
	if !b.legacy {
		if dimension.elem == nil {
			dimension.elem = createOrdered(el, "Dimension", layerOrder)
			dimension.elem.CreateAttr("name", dimension.Name)
		}
		if dimension.Units != "" || dimension.elem.SelectAttr("units") == nil {
			dimension.elem.CreateAttr("units", dimension.Units)
		}
		setAttrOrRemove(dimension.elem, "default", dimension.Default)
		dimension.elem.SetText(dimension.raw)
		return
	}

	// WMS 1.1.1 declares a dimension once and carries its values in Extent
	// elements, possibly on descendant layers only.
	declared := el.FindElement("Dimension[@name='" + dimension.Name + "']")
	inherited := dimension.elem != nil && declared == nil
	if declared == nil && !inherited {
		declared = createOrdered(el, "Dimension", legacyLayerOrder)
		declared.CreateAttr("name", dimension.Name)
		declared.CreateAttr("units", dimension.Units)
	} else if declared != nil && dimension.Units != "" {
		declared.CreateAttr("units", dimension.Units)
	}

	if dimension.elem == nil {
		if dimension.raw == "" && dimension.Default == "" {
			return
		}
		dimension.elem = createOrdered(el, "Extent", legacyLayerOrder)
		dimension.elem.CreateAttr("name", dimension.Name)
	}

	setAttrOrRemove(dimension.elem, "default", dimension.Default)
	dimension.elem.SetText(dimension.raw)
}

func (b wmsLayerBinding) writeStyles(el *etree.Element, styles []Style) {
	existing := el.SelectElements("Style")
	for i, style := range styles {
		var styleEl *etree.Element
		if i < len(existing) {
			styleEl = existing[i]
		} else {
			styleEl = createOrdered(el, "Style", b.order())
		}

		setOrderedText(styleEl, "Name", style.Name, styleOrder)
		setOrderedText(styleEl, "Title", style.Title, styleOrder)
		writeLegend(styleEl, style.Legend)
	}
	for i := len(styles); i < len(existing); i++ {
		el.RemoveChild(existing[i])
	}
}

func writeLegend(styleEl *etree.Element, legend *LegendURL) {
	if legend == nil {
		removeChildren(styleEl, "LegendURL")
		return
	}

	legendEl := ensureOrdered(styleEl, "LegendURL", styleOrder)
	setAttrOrRemove(legendEl, "width", positive(legend.Width))
	setAttrOrRemove(legendEl, "height", positive(legend.Height))
	setOrderedText(legendEl, "Format", legend.MimeType, legendOrder)

	if legend.URL == "" {
		removeChildren(legendEl, "OnlineResource")
		return
	}
	resource := legendEl.SelectElement("OnlineResource")
	if resource == nil {
		resource = createOrdered(legendEl, "OnlineResource", legendOrder)
		resource.CreateAttr("xlink:type", "simple")
	}
	resource.CreateAttr("xlink:href", legend.URL)
}

func (b wmsLayerBinding) writeScale(el *etree.Element, low, high *float64) {
	if !b.legacy {
		writeScaleDenominator(el, "MinScaleDenominator", low)
		writeScaleDenominator(el, "MaxScaleDenominator", high)
		return
	}

	if low == nil && high == nil {
		removeChildren(el, "ScaleHint")
		return
	}
	hint := ensureOrdered(el, "ScaleHint", legacyLayerOrder)
	setAttrOrRemove(hint, "min", formatOptional(low))
	setAttrOrRemove(hint, "max", formatOptional(high))
}

func writeScaleDenominator(el *etree.Element, tag string, value *float64) {
	if value == nil {
		removeChildren(el, tag)
		return
	}
	setOrderedText(el, tag, formatFloat(*value), layerOrder)
}

func formatOptional(value *float64) string {
	if value == nil {
		return ""
	}
	return formatFloat(*value)
}

func positive(value int) string {
	if value <= 0 {
		return ""
	}
	return strconv.Itoa(value)
}

// pruneChildren removes every tag child of el that is not in keep.
func pruneChildren(el *etree.Element, tag string, keep map[*etree.Element]bool) {
	for _, child := range el.SelectElements(tag) {
		if !keep[child] {
			el.RemoveChild(child)
		}
	}
}
