package capabilities

import (
	"fmt"
	"strings"
)

// ReferenceSystem is a coordinate reference system identifier such as EPSG:4326.
type ReferenceSystem struct {
	Prefix string
	Code   string
}

// ParseReferenceSystem decodes both the short "EPSG:4326" form and the URN form
// "urn:ogc:def:crs:EPSG::4326".
func ParseReferenceSystem(raw string) (ReferenceSystem, error) {
	raw = strings.TrimSpace(raw)

	switch {
	case strings.Contains(raw, "::"):
		segments := strings.Split(raw, ":")
		return ReferenceSystem{
			Prefix: segments[len(segments)-3],
			Code:   segments[len(segments)-1],
		}, nil
	case strings.Contains(raw, ":"):
		i := strings.LastIndex(raw, ":")
		return ReferenceSystem{
			Prefix: raw[:i],
			Code:   raw[i+1:],
		}, nil
	}

	return ReferenceSystem{}, fmt.Errorf("%w: could not decode reference system %q", ErrSemantic, raw)
}

// String returns the short form. The URN form is never emitted.
func (r ReferenceSystem) String() string {
	return r.Prefix + ":" + r.Code
}

func parseReferenceSystems(values []string) ([]ReferenceSystem, error) {
	var systems []ReferenceSystem
	for _, value := range values {
		// WMS 1.1.1 allows several identifiers in one SRS element.
		for _, field := range strings.Fields(value) {
			system, err := ParseReferenceSystem(field)
			if err != nil {
				return nil, err
			}
			systems = append(systems, system)
		}
	}
	return systems, nil
}
