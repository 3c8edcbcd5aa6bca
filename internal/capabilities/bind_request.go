package capabilities

import "github.com/beevik/etree"

// requestBinding handles the Capability/Request section of WMS documents,
// where every operation is an element holding Format and DCPType children.
type requestBinding struct{}

func (requestBinding) ReadOperations(root *etree.Element, urls *OperationURLs) {
	request := root.FindElement("Capability/Request")
	if request == nil {
		return
	}

	for _, operation := range urls.Operations() {
		el := request.SelectElement(string(operation))
		if el == nil {
			continue
		}

		mimeTypes := childTexts(el, "Format")
		for _, method := range []Method{MethodGet, MethodPost} {
			href := attrValue(el.FindElement("DCPType/HTTP/"+string(method)+"/OnlineResource"), "href")
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

func (requestBinding) WriteOperations(root *etree.Element, urls *OperationURLs) {
	request := ensurePath(root, "Capability/Request")

	for _, operation := range urls.Operations() {
		record := urls.records[operation]
		el := request.SelectElement(string(operation))

		if record.empty() {
			if el != nil {
				request.RemoveChild(el)
			}
			continue
		}
		if el == nil {
			el = request.CreateElement(qualified(request, string(operation)))
		}

		removeChildren(el, "Format")
		for i, mimeType := range record.mimeTypes {
			format := etree.NewElement(qualified(el, "Format"))
			format.SetText(mimeType)
			el.InsertChildAt(i, format)
		}

		writeRequestMethod(el, MethodGet, record.getURL)
		writeRequestMethod(el, MethodPost, record.postURL)
	}
}

func writeRequestMethod(operation *etree.Element, method Method, url string) {
	existing := operation.FindElement("DCPType/HTTP/" + string(method))

	if url == "" {
		if existing != nil {
			http := existing.Parent()
			http.RemoveChild(existing)
			if len(http.ChildElements()) == 0 {
				dcp := http.Parent()
				operation.RemoveChild(dcp)
			}
		}
		return
	}

	if existing == nil {
		http := ensurePath(operation, "DCPType/HTTP")
		existing = http.CreateElement(qualified(http, string(method)))
	}

	resource := existing.SelectElement("OnlineResource")
	if resource == nil {
		resource = existing.CreateElement(qualified(existing, "OnlineResource"))
		resource.CreateAttr("xlink:type", "simple")
	}
	resource.CreateAttr("xlink:href", url)
}
