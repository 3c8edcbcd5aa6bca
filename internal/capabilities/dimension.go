package capabilities

import "github.com/beevik/etree"

// TimeDimension is a layer dimension. Its extent is only interpreted when Name
// is "time" and Units is "ISO8601".
type TimeDimension struct {
	Name    string
	Units   string
	Default string

	raw     string
	extents []TimeExtent
	parsed  bool

	elem *etree.Element
}

// NewTimeDimension returns a dimension holding the raw extent string.
func NewTimeDimension(name, units, extent string) *TimeDimension {
	return &TimeDimension{Name: name, Units: units, raw: extent}
}

// Extent returns the raw extent string.
func (d *TimeDimension) Extent() string {
	return d.raw
}

// SetExtent replaces the raw extent string and drops the parsed extents.
func (d *TimeDimension) SetExtent(raw string) {
	d.raw = raw
	d.extents = nil
	d.parsed = false
}

// Extents returns the parsed extents. They are computed on first use.
func (d *TimeDimension) Extents() []TimeExtent {
	if !d.parsed {
		d.extents = ParseTimeExtents(d.raw, d.Name, d.Units)
		d.parsed = true
	}
	return append([]TimeExtent(nil), d.extents...)
}

// SetExtents replaces the extents. Nothing changes when they cannot be
// formatted.
func (d *TimeDimension) SetExtents(extents []TimeExtent) error {
	raw, err := FormatTimeExtents(extents)
	if err != nil {
		return err
	}

	d.raw = raw
	d.extents = append([]TimeExtent(nil), extents...)
	d.parsed = true
	return nil
}
