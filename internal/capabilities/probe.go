package capabilities

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

// probe reads just enough of a document to pick its layout.
type probe struct {
	XMLName     xml.Name
	Version     string `xml:"version,attr"`
	Service     string `xml:"service,attr"`
	ServiceName string `xml:"Service>Name"`
	ServiceType string `xml:"ServiceIdentification>ServiceType"`
}

func probeServiceType(src []byte) (ServiceType, error) {
	decoder := xml.NewDecoder(bytes.NewReader(src))
	decoder.CharsetReader = charset.NewReaderLabel

	var p probe
	if err := decoder.Decode(&p); err != nil {
		return ServiceType{}, fmt.Errorf("%w: could not read capabilities document: %s", ErrSemantic, err)
	}

	version := strings.TrimSpace(p.Version)
	if version == "" {
		return ServiceType{}, fmt.Errorf("%w: document %s declares no version", ErrSemantic, p.XMLName.Local)
	}

	coarse := p.XMLName.Local
	for _, candidate := range []string{p.ServiceType, p.ServiceName, p.Service} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			coarse = candidate
			break
		}
	}

	kind, err := parseServiceKind(coarse)
	if err != nil {
		return ServiceType{}, err
	}
	return ServiceType{Name: kind, Version: version}, nil
}

func parseServiceKind(raw string) (ServiceKind, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "ogc:")
	if name == "wmt_ms_capabilities" {
		name = "wms"
	}
	name = strings.TrimSuffix(name, "_capabilities")

	switch kind := ServiceKind(name); kind {
	case KindWMS, KindWFS, KindCSW:
		return kind, nil
	}
	return "", fmt.Errorf("%w: unsupported service type %q", ErrSemantic, raw)
}
