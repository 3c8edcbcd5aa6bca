package capabilities

import "github.com/beevik/etree"

// owsBinding handles the OWS common OperationsMetadata section used by WFS and
// CSW. Formats live in a named Parameter of each operation.
type owsBinding struct {
	formatParameters map[Operation]string
	// allowedValues wraps parameter values in AllowedValues (OWS 1.1).
	allowedValues bool
}

func (b owsBinding) ReadOperations(root *etree.Element, urls *OperationURLs) {
	metadata := root.SelectElement("OperationsMetadata")
	if metadata == nil {
		return
	}

	for _, operation := range urls.Operations() {
		el := metadata.FindElement("Operation[@name='" + string(operation) + "']")
		if el == nil {
			continue
		}

		var mimeTypes []string
		if name := b.formatParameters[operation]; name != "" {
			if parameter := el.FindElement("Parameter[@name='" + name + "']"); parameter != nil {
				mimeTypes = childTexts(parameter, ".//Value")
			}
		}

		for _, method := range []Method{MethodGet, MethodPost} {
			href := attrValue(el.FindElement("DCP/HTTP/"+string(method)), "href")
			if href == "" {
				continue
			}
			urls.upsert(OperationURL{
				Operation: operation,
				Method:    method,
				URL:       href,
				MimeTypes: mimeTypes,
			})
		}
	}
}

func (b owsBinding) WriteOperations(root *etree.Element, urls *OperationURLs) {
	metadata := root.SelectElement("OperationsMetadata")
	if metadata == nil {
		metadata = root.CreateElement(owsPrefix(root) + "OperationsMetadata")
	}

	for _, operation := range urls.Operations() {
		record := urls.records[operation]
		el := metadata.FindElement("Operation[@name='" + string(operation) + "']")

		if record.empty() {
			if el != nil {
				metadata.RemoveChild(el)
			}
			continue
		}
		if el == nil {
			el = metadata.CreateElement(qualified(metadata, "Operation"))
			el.CreateAttr("name", string(operation))
		}

		writeOWSMethod(el, MethodGet, record.getURL)
		writeOWSMethod(el, MethodPost, record.postURL)

		if name := b.formatParameters[operation]; name != "" {
			b.writeFormats(el, name, record.mimeTypes)
		}
	}
}

func writeOWSMethod(operation *etree.Element, method Method, url string) {
	existing := operation.FindElement("DCP/HTTP/" + string(method))

	if url == "" {
		if existing != nil {
			http := existing.Parent()
			http.RemoveChild(existing)
			if len(http.ChildElements()) == 0 {
				operation.RemoveChild(http.Parent())
			}
		}
		return
	}

	if existing == nil {
		http := ensurePath(operation, "DCP/HTTP")
		existing = http.CreateElement(qualified(http, string(method)))
	}
	existing.CreateAttr("xlink:href", url)
}

func (b owsBinding) writeFormats(operation *etree.Element, name string, mimeTypes []string) {
	index := -1
	if old := operation.FindElement("Parameter[@name='" + name + "']"); old != nil {
		index = old.Index()
		operation.RemoveChild(old)
	}
	if len(mimeTypes) == 0 {
		return
	}

	parameter := etree.NewElement(qualified(operation, "Parameter"))
	parameter.CreateAttr("name", name)

	values := parameter
	if b.allowedValues {
		values = parameter.CreateElement(qualified(parameter, "AllowedValues"))
	}
	for _, mimeType := range mimeTypes {
		values.CreateElement(qualified(values, "Value")).SetText(mimeType)
	}

	if index < 0 {
		// Parameters follow the DCP elements.
		index = 0
		for _, dcp := range operation.SelectElements("DCP") {
			index = dcp.Index() + 1
		}
	}
	operation.InsertChildAt(index, parameter)
}

func owsPrefix(root *etree.Element) string {
	if identification := root.SelectElement("ServiceIdentification"); identification != nil && identification.Space != "" {
		return identification.Space + ":"
	}
	return "ows:"
}
