package capabilities

import (
	"fmt"
	"os"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Document is a parsed capabilities document. It is not safe for concurrent
// use; every caller parses its own copy.
type Document struct {
	ServiceURL   string
	ServiceType  ServiceType
	Metadata     ServiceMetadata
	RootLayer    *Layer
	FeatureTypes []*FeatureType

	operationURLs *OperationURLs
	layout        Layout
	tree          *etree.Document
}

// Parse reads a capabilities document. The service kind and version are
// probed first and select the layout used for the full read.
func Parse(src []byte) (*Document, error) {
	serviceType, err := probeServiceType(src)
	if err != nil {
		return nil, err
	}

	layout, ok := lookupLayout(serviceType)
	if !ok {
		return nil, fmt.Errorf("%w: no layout for %s %s", ErrNotImplemented, serviceType.Name, serviceType.Version)
	}

	tree := etree.NewDocument()
	tree.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := tree.ReadFromBytes(src); err != nil {
		return nil, fmt.Errorf("%w: could not read capabilities document: %s", ErrSemantic, err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: capabilities document has no root element", ErrSemantic)
	}
	// The tree is written as UTF-8 whatever the source encoding was.
	for _, token := range tree.Child {
		if inst, ok := token.(*etree.ProcInst); ok && inst.Target == "xml" {
			inst.Inst = `version="1.0" encoding="UTF-8"`
		}
	}

	doc := &Document{
		ServiceType:   serviceType,
		operationURLs: newOperationURLs(layout.Operations),
		layout:        layout,
		tree:          tree,
	}
	doc.Metadata, doc.ServiceURL = layout.Service.read(root)
	layout.Requests.ReadOperations(root, doc.operationURLs)

	if layout.Contents != nil {
		if err := layout.Contents.ReadContents(root, doc); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func ParseString(src string) (*Document, error) {
	return Parse([]byte(src))
}

func ParseFile(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(src)
}

// OperationURLs returns the registry of operation endpoints.
func (d *Document) OperationURLs() *OperationURLs {
	return d.operationURLs
}

// Layers returns the layer tree depth first.
func (d *Document) Layers() []*Layer {
	var layers []*Layer
	if d.RootLayer != nil {
		d.RootLayer.Walk(func(l *Layer) bool {
			layers = append(layers, l)
			return true
		})
	}
	return layers
}

// FieldDict flattens the service level fields for storage.
func (d *Document) FieldDict() map[string]any {
	var bbox any
	if d.RootLayer != nil {
		if polygon := d.RootLayer.BBox(); polygon != nil {
			bbox = polygon
		}
	}

	metadata := d.Metadata
	contact := metadata.Contact

	return map[string]any{
		"service_type":       string(d.ServiceType.Name),
		"version":            d.ServiceType.Version,
		"service_url":        d.ServiceURL,
		"title":              metadata.Title,
		"abstract":           metadata.Abstract,
		"fees":               metadata.Fees,
		"access_constraints": metadata.AccessConstraints,
		"keywords":           append([]string{}, metadata.Keywords...),
		"bbox":               bbox,

		"contact_person":            contact.Person,
		"contact_organization":      contact.Organization,
		"contact_position":          contact.Position,
		"contact_email":             contact.Email,
		"contact_phone":             contact.Phone,
		"contact_facsimile":         contact.Facsimile,
		"contact_address":           contact.Address,
		"contact_city":              contact.City,
		"contact_state_or_province": contact.StateOrProvince,
		"contact_post_code":         contact.PostCode,
		"contact_country":           contact.Country,
	}
}

// Serialize writes the model back into the element tree read by Parse and
// returns the resulting XML.
func (d *Document) Serialize() ([]byte, error) {
	root := d.tree.Root()

	d.layout.Service.write(root, d.Metadata, d.ServiceURL)
	d.layout.Requests.WriteOperations(root, d.operationURLs)
	if d.layout.Contents != nil {
		d.layout.Contents.WriteContents(root, d)
	}

	d.tree.Indent(2)
	return d.tree.WriteToBytes()
}
