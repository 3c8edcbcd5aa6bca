package capabilities

import "github.com/beevik/etree"

// OperationBinding moves operation URLs between the element tree and the
// registry of a document.
type OperationBinding interface {
	ReadOperations(root *etree.Element, urls *OperationURLs)
	WriteOperations(root *etree.Element, urls *OperationURLs)
}

// ContentBinding moves the service contents (layers or feature types) between
// the element tree and a document.
type ContentBinding interface {
	ReadContents(root *etree.Element, doc *Document) error
	WriteContents(root *etree.Element, doc *Document)
}

// Layout describes where one version of one service keeps its fields.
type Layout struct {
	Kind       ServiceKind
	Version    string
	Service    ServicePaths
	Operations []Operation
	Requests   OperationBinding
	Contents   ContentBinding
}

var layouts = map[ServiceType]Layout{}

// Register makes a layout available to Parse. It replaces any layout for the
// same kind and version and must not be called concurrently with Parse.
func Register(layout Layout) {
	layouts[ServiceType{Name: layout.Kind, Version: layout.Version}] = layout
}

func lookupLayout(serviceType ServiceType) (Layout, bool) {
	layout, ok := layouts[serviceType]
	return layout, ok
}

var wmsOperations = []Operation{
	OperationGetCapabilities,
	OperationGetMap,
	OperationGetFeatureInfo,
	OperationDescribeLayer,
	OperationGetLegendGraphic,
}

func init() {
	Register(Layout{
		Kind:       KindWMS,
		Version:    "1.1.1",
		Service:    wmsServicePaths,
		Operations: wmsOperations,
		Requests:   requestBinding{},
		Contents:   wmsLayerBinding{legacy: true},
	})
	Register(Layout{
		Kind:       KindWMS,
		Version:    "1.3.0",
		Service:    wmsServicePaths,
		Operations: wmsOperations,
		Requests:   requestBinding{},
		Contents:   wmsLayerBinding{},
	})
	Register(Layout{
		Kind:    KindWFS,
		Version: "2.0.0",
		Service: owsServicePaths,
		Operations: []Operation{
			OperationGetCapabilities,
			OperationDescribeFeatureType,
			OperationGetFeature,
		},
		Requests: owsBinding{
			formatParameters: map[Operation]string{
				OperationGetCapabilities:     "AcceptFormats",
				OperationDescribeFeatureType: "outputFormat",
				OperationGetFeature:          "outputFormat",
			},
			allowedValues: true,
		},
		Contents: featureTypeBinding{},
	})
	Register(Layout{
		Kind:    KindCSW,
		Version: "2.0.2",
		Service: owsServicePaths,
		Operations: []Operation{
			OperationGetCapabilities,
			OperationDescribeRecord,
			OperationGetRecords,
			OperationGetRecordByID,
		},
		Requests: owsBinding{
			formatParameters: map[Operation]string{
				OperationGetCapabilities: "AcceptFormats",
				OperationDescribeRecord:  "outputFormat",
				OperationGetRecords:      "outputFormat",
				OperationGetRecordByID:   "outputFormat",
			},
		},
	})
}
