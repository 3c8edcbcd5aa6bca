package capabilities

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func parseTestdata(t *testing.T, name string) *Document {
	t.Helper()
	doc, err := ParseFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("could not parse %s: %v", name, err)
	}
	return doc
}

func TestParseWMS130(t *testing.T) {
	t.Parallel()

	doc := parseTestdata(t, "wms130.xml")

	if doc.ServiceType != (ServiceType{Name: KindWMS, Version: "1.3.0"}) {
		t.Fatalf("unexpected service type %+v", doc.ServiceType)
	}
	if doc.ServiceURL != "http://maps.example.com/wms" {
		t.Errorf("ServiceURL = %q", doc.ServiceURL)
	}
	if doc.Metadata.Title != "Topography" || doc.Metadata.Fees != "none" || doc.Metadata.AccessConstraints != "public" {
		t.Errorf("unexpected metadata %+v", doc.Metadata)
	}
	if want := []string{"topography", "basemap", "basemap"}; !reflect.DeepEqual(doc.Metadata.Keywords, want) {
		t.Errorf("Keywords = %v, want %v", doc.Metadata.Keywords, want)
	}
	if doc.Metadata.Contact.Person != "Jo Doe" || doc.Metadata.Contact.City != "Utrecht" || doc.Metadata.Contact.Email != "maps@example.com" {
		t.Errorf("unexpected contact %+v", doc.Metadata.Contact)
	}

	getCapabilities, ok := doc.OperationURLs().Get(OperationGetCapabilities, MethodGet)
	if !ok || !reflect.DeepEqual(getCapabilities.MimeTypes, []string{"text/xml"}) {
		t.Fatalf("GetCapabilities = %+v, %v", getCapabilities, ok)
	}
	if _, ok := doc.OperationURLs().Get(OperationGetCapabilities, MethodPost); ok {
		t.Fatal("unexpected GetCapabilities Post entry")
	}
	if got := len(doc.OperationURLs().All()); got != 4 {
		t.Fatalf("got %d operation urls, want 4", got)
	}

	layers := doc.Layers()
	if len(layers) != 3 {
		t.Fatalf("got %d layers, want 3", len(layers))
	}

	root := doc.RootLayer
	if root.Parent() != nil {
		t.Fatal("root layer has a parent")
	}
	want := orb.Polygon{orb.Ring{{3.2, 50.7}, {3.2, 53.6}, {7.3, 53.6}, {7.3, 50.7}, {3.2, 50.7}}}
	if !orb.Equal(root.BBox(), want) {
		t.Errorf("root BBox() = %v, want %v", root.BBox(), want)
	}
	if len(root.ReferenceSystems) != 2 || root.ReferenceSystems[1].String() != "EPSG:3857" {
		t.Errorf("unexpected reference systems %v", root.ReferenceSystems)
	}

	roads := root.Children[0]
	if roads.Parent() != root || roads.Identifier != "roads" || !roads.Queryable || roads.Opaque || roads.Cascaded {
		t.Errorf("unexpected roads layer %+v", roads)
	}
	if roads.BBox() != nil {
		t.Error("layer with three bounds produced a polygon")
	}
	if roads.ReferenceSystems[0] != (ReferenceSystem{Prefix: "EPSG", Code: "28992"}) {
		t.Errorf("unexpected reference system %+v", roads.ReferenceSystems[0])
	}
	if *roads.ScaleMin != 1000 || *roads.ScaleMax != 250000 {
		t.Errorf("unexpected scale %v-%v", *roads.ScaleMin, *roads.ScaleMax)
	}
	legend := roads.Styles[0].Legend
	if legend == nil || legend.URL != "http://maps.example.com/legend/roads.png" || legend.Width != 20 || legend.Height != 10 || legend.MimeType != "image/png" {
		t.Errorf("unexpected legend %+v", legend)
	}

	dimension, ok := roads.Dimension("time")
	if !ok {
		t.Fatal("roads has no time dimension")
	}
	extents := dimension.Extents()
	if len(extents) != 1 || !extents[0].IsInterval() || !extents[0].Resolution.IsContinuous() {
		t.Errorf("unexpected extents %+v", extents)
	}

	cascaded := root.Children[1]
	if cascaded == roads || cascaded.Identifier != roads.Identifier || !cascaded.Cascaded {
		t.Errorf("unexpected cascaded layer %+v", cascaded)
	}
	timeDimension, _ := cascaded.Dimension("time")
	if got := len(timeDimension.Extents()); got != 2 {
		t.Errorf("got %d time extents, want 2", got)
	}
	elevation, _ := cascaded.Dimension("elevation")
	if got := elevation.Extents(); got != nil {
		t.Errorf("elevation extents = %v, want none", got)
	}
}

func TestParseWMS111(t *testing.T) {
	t.Parallel()

	doc := parseTestdata(t, "wms111.xml")

	if doc.ServiceType != (ServiceType{Name: KindWMS, Version: "1.1.1"}) {
		t.Fatalf("unexpected service type %+v", doc.ServiceType)
	}

	root := doc.RootLayer
	if len(root.ReferenceSystems) != 2 || root.ReferenceSystems[1].Code != "28992" {
		t.Errorf("unexpected reference systems %v", root.ReferenceSystems)
	}
	if root.BBox() == nil || *root.West != 5.5 || *root.North != 51.8 {
		t.Errorf("unexpected bounds %+v", root.Bounds)
	}

	dimension, ok := root.Dimension("time")
	if !ok || dimension.Default != "2021-06-01" {
		t.Fatalf("unexpected dimension %+v", dimension)
	}
	extents := dimension.Extents()
	if len(extents) != 1 || extents[0].Resolution.String() != "P1M" {
		t.Fatalf("unexpected extents %+v", extents)
	}

	percelen := root.Children[0]
	if *percelen.ScaleMin != 0.5 || *percelen.ScaleMax != 500 {
		t.Errorf("unexpected scale hint %v-%v", *percelen.ScaleMin, *percelen.ScaleMax)
	}
	inherited, ok := percelen.Dimension("time")
	if !ok || inherited.Units != "ISO8601" || len(inherited.Extents()) != 2 {
		t.Fatalf("unexpected inherited dimension %+v", inherited)
	}

	getCapabilities, ok := doc.OperationURLs().Get(OperationGetCapabilities, MethodPost)
	if !ok || !reflect.DeepEqual(getCapabilities.MimeTypes, []string{"application/vnd.ogc.wms_xml"}) {
		t.Fatalf("GetCapabilities Post = %+v, %v", getCapabilities, ok)
	}
}

func TestParseWFS200(t *testing.T) {
	t.Parallel()

	doc := parseTestdata(t, "wfs200.xml")

	if doc.ServiceType != (ServiceType{Name: KindWFS, Version: "2.0.0"}) {
		t.Fatalf("unexpected service type %+v", doc.ServiceType)
	}
	if doc.RootLayer != nil {
		t.Fatal("WFS document has a layer tree")
	}
	if doc.ServiceURL != "https://features.example.com" || doc.Metadata.Contact.Organization != "Example Mapping" {
		t.Errorf("unexpected service fields %q %+v", doc.ServiceURL, doc.Metadata.Contact)
	}

	getFeature, ok := doc.OperationURLs().Get(OperationGetFeature, MethodGet)
	if !ok || !reflect.DeepEqual(getFeature.MimeTypes, []string{"application/gml+xml; version=3.2", "application/json"}) {
		t.Fatalf("GetFeature = %+v, %v", getFeature, ok)
	}

	if len(doc.FeatureTypes) != 1 {
		t.Fatalf("got %d feature types, want 1", len(doc.FeatureTypes))
	}
	featureType := doc.FeatureTypes[0]
	if featureType.Name != "bag:pand" || featureType.ReferenceSystems[0].String() != "EPSG:28992" || featureType.BBox() == nil {
		t.Errorf("unexpected feature type %+v", featureType)
	}
}

func TestParseCSW202(t *testing.T) {
	t.Parallel()

	doc := parseTestdata(t, "csw202.xml")

	if doc.ServiceType != (ServiceType{Name: KindCSW, Version: "2.0.2"}) {
		t.Fatalf("unexpected service type %+v", doc.ServiceType)
	}
	getRecords, ok := doc.OperationURLs().Get(OperationGetRecords, MethodPost)
	if !ok || !reflect.DeepEqual(getRecords.MimeTypes, []string{"application/xml"}) {
		t.Fatalf("GetRecords = %+v, %v", getRecords, ok)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			name: "unknown service",
			src:  `<WMTS_Capabilities version="1.0.0"/>`,
			want: ErrSemantic,
		},
		{
			name: "missing version",
			src:  `<WMS_Capabilities><Service><Name>WMS</Name></Service></WMS_Capabilities>`,
			want: ErrSemantic,
		},
		{
			name: "unregistered version",
			src:  `<WMS_Capabilities version="1.0.0"><Service><Name>WMS</Name></Service></WMS_Capabilities>`,
			want: ErrNotImplemented,
		},
		{
			name: "not xml",
			src:  `{"service": "wms"}`,
			want: ErrSemantic,
		},
		{
			name: "bad reference system",
			src: `<WMS_Capabilities version="1.3.0"><Service><Name>WMS</Name></Service>
				<Capability><Layer><Title>x</Title><CRS>4326</CRS></Layer></Capability></WMS_Capabilities>`,
			want: ErrSemantic,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := ParseString(tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if doc != nil {
				t.Fatal("partial document returned")
			}
		})
	}
}

func TestFieldDict(t *testing.T) {
	t.Parallel()

	doc := parseTestdata(t, "wms130.xml")
	fields := doc.FieldDict()

	if fields["service_type"] != "wms" || fields["version"] != "1.3.0" || fields["title"] != "Topography" {
		t.Errorf("unexpected fields %v", fields)
	}
	if _, ok := fields["bbox"].(orb.Polygon); !ok {
		t.Errorf("bbox = %T, want orb.Polygon", fields["bbox"])
	}

	wfs := parseTestdata(t, "wfs200.xml")
	if bbox := wfs.FieldDict()["bbox"]; bbox != nil {
		t.Errorf("WFS bbox = %v, want nil", bbox)
	}
}

func TestSerializeWritesMutations(t *testing.T) {
	t.Parallel()

	doc := parseTestdata(t, "wms130.xml")

	doc.Metadata.Title = "Topography (edited)"
	doc.Metadata.Keywords = []string{"edited"}

	urls := doc.OperationURLs()
	if err := urls.Upsert(OperationURL{
		Operation: OperationGetCapabilities,
		Method:    MethodPost,
		URL:       "http://maps.example.com/wms",
		MimeTypes: []string{"text/xml"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	getFeatureInfo, _ := urls.Get(OperationGetFeatureInfo, MethodGet)
	if err := urls.Remove(getFeatureInfo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	roads := doc.RootLayer.Children[0]
	dimension, _ := roads.Dimension("time")
	dimension.SetExtent("2021-01-01,2021-01-02")
	roads.SetBBox(orb.Polygon{orb.Ring{{4, 52}, {4, 53}, {5, 53}, {5, 52}, {4, 52}}})

	doc.RootLayer.Children = doc.RootLayer.Children[:1]

	out, err := doc.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("could not parse serialized document: %v\n%s", err, out)
	}

	if again.Metadata.Title != "Topography (edited)" || !reflect.DeepEqual(again.Metadata.Keywords, []string{"edited"}) {
		t.Errorf("metadata not written: %+v", again.Metadata)
	}
	if !reflect.DeepEqual(again.OperationURLs().All(), urls.All()) {
		t.Errorf("operation urls not written:\n%v\n%v", again.OperationURLs().All(), urls.All())
	}
	if strings.Contains(string(out), "GetFeatureInfo") {
		t.Error("removed operation still serialized")
	}

	layers := again.Layers()
	if len(layers) != 2 {
		t.Fatalf("got %d layers, want 2", len(layers))
	}
	againRoads := layers[1]
	if !orb.Equal(againRoads.BBox(), roads.BBox()) {
		t.Errorf("bbox not written: %v", againRoads.BBox())
	}
	againDimension, _ := againRoads.Dimension("time")
	if againDimension.Extent() != "2021-01-01,2021-01-02" {
		t.Errorf("extent not written: %q", againDimension.Extent())
	}
}

func TestSerializeOWSOperations(t *testing.T) {
	t.Parallel()

	doc := parseTestdata(t, "wfs200.xml")
	urls := doc.OperationURLs()

	if err := urls.Upsert(OperationURL{
		Operation: OperationDescribeFeatureType,
		Method:    MethodGet,
		URL:       "https://features.example.com/wfs?",
		MimeTypes: []string{"application/gml+xml; version=3.2"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := urls.Remove(OperationURL{Operation: OperationGetCapabilities, Method: MethodPost}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc.FeatureTypes[0].Title = "Panden"

	out, err := doc.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("could not parse serialized document: %v\n%s", err, out)
	}
	if !reflect.DeepEqual(again.OperationURLs().All(), urls.All()) {
		t.Errorf("operation urls not written:\n%v\n%v", again.OperationURLs().All(), urls.All())
	}
	if again.FeatureTypes[0].Title != "Panden" {
		t.Errorf("feature type title not written: %q", again.FeatureTypes[0].Title)
	}
}

func TestSerializeWithoutChangesKeepsModel(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"wms111.xml", "wms130.xml", "wfs200.xml", "csw202.xml"} {
		doc := parseTestdata(t, name)

		out, err := doc.Serialize()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		again, err := Parse(out)
		if err != nil {
			t.Fatalf("%s: could not parse serialized document: %v", name, err)
		}

		if !reflect.DeepEqual(again.FieldDict(), doc.FieldDict()) {
			t.Errorf("%s: field dict changed:\n%v\n%v", name, again.FieldDict(), doc.FieldDict())
		}
		if !reflect.DeepEqual(again.OperationURLs().All(), doc.OperationURLs().All()) {
			t.Errorf("%s: operation urls changed", name)
		}
		if len(again.Layers()) != len(doc.Layers()) {
			t.Errorf("%s: layer count changed", name)
		}
	}
}
