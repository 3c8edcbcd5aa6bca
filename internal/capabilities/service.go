package capabilities

import "github.com/beevik/etree"

// ServiceKind is the OGC service a document describes.
type ServiceKind string

const (
	KindWMS ServiceKind = "wms"
	KindWFS ServiceKind = "wfs"
	KindCSW ServiceKind = "csw"
)

type ServiceType struct {
	Name    ServiceKind
	Version string
}

type Contact struct {
	Person          string
	Organization    string
	Position        string
	Email           string
	Phone           string
	Facsimile       string
	Address         string
	City            string
	StateOrProvince string
	PostCode        string
	Country         string
}

type ServiceMetadata struct {
	Title             string
	Abstract          string
	Fees              string
	AccessConstraints string
	Keywords          []string
	Contact           Contact
}

// ServicePaths locates the service metadata below the root element. Paths are
// relative and use local names only.
type ServicePaths struct {
	Title             string
	Abstract          string
	Fees              string
	AccessConstraints string
	Keyword           string
	OnlineResource    string

	ContactPerson          string
	ContactOrganization    string
	ContactPosition        string
	ContactEmail           string
	ContactPhone           string
	ContactFacsimile       string
	ContactAddress         string
	ContactCity            string
	ContactStateOrProvince string
	ContactPostCode        string
	ContactCountry         string
}

var wmsServicePaths = ServicePaths{
	Title:             "Service/Title",
	Abstract:          "Service/Abstract",
	Fees:              "Service/Fees",
	AccessConstraints: "Service/AccessConstraints",
	Keyword:           "Service/KeywordList/Keyword",
	OnlineResource:    "Service/OnlineResource",

	ContactPerson:          "Service/ContactInformation/ContactPersonPrimary/ContactPerson",
	ContactOrganization:    "Service/ContactInformation/ContactPersonPrimary/ContactOrganization",
	ContactPosition:        "Service/ContactInformation/ContactPosition",
	ContactEmail:           "Service/ContactInformation/ContactElectronicMailAddress",
	ContactPhone:           "Service/ContactInformation/ContactVoiceTelephone",
	ContactFacsimile:       "Service/ContactInformation/ContactFacsimileTelephone",
	ContactAddress:         "Service/ContactInformation/ContactAddress/Address",
	ContactCity:            "Service/ContactInformation/ContactAddress/City",
	ContactStateOrProvince: "Service/ContactInformation/ContactAddress/StateOrProvince",
	ContactPostCode:        "Service/ContactInformation/ContactAddress/PostCode",
	ContactCountry:         "Service/ContactInformation/ContactAddress/Country",
}

var owsServicePaths = ServicePaths{
	Title:             "ServiceIdentification/Title",
	Abstract:          "ServiceIdentification/Abstract",
	Fees:              "ServiceIdentification/Fees",
	AccessConstraints: "ServiceIdentification/AccessConstraints",
	Keyword:           "ServiceIdentification/Keywords/Keyword",
	OnlineResource:    "ServiceProvider/ProviderSite",

	ContactPerson:          "ServiceProvider/ServiceContact/IndividualName",
	ContactOrganization:    "ServiceProvider/ProviderName",
	ContactPosition:        "ServiceProvider/ServiceContact/PositionName",
	ContactEmail:           "ServiceProvider/ServiceContact/ContactInfo/Address/ElectronicMailAddress",
	ContactPhone:           "ServiceProvider/ServiceContact/ContactInfo/Phone/Voice",
	ContactFacsimile:       "ServiceProvider/ServiceContact/ContactInfo/Phone/Facsimile",
	ContactAddress:         "ServiceProvider/ServiceContact/ContactInfo/Address/DeliveryPoint",
	ContactCity:            "ServiceProvider/ServiceContact/ContactInfo/Address/City",
	ContactStateOrProvince: "ServiceProvider/ServiceContact/ContactInfo/Address/AdministrativeArea",
	ContactPostCode:        "ServiceProvider/ServiceContact/ContactInfo/Address/PostalCode",
	ContactCountry:         "ServiceProvider/ServiceContact/ContactInfo/Address/Country",
}

type contactField struct {
	path  string
	value *string
}

// contactFields lists the contact fields in document order.
func (p ServicePaths) contactFields(c *Contact) []contactField {
	return []contactField{
		{p.ContactPerson, &c.Person},
		{p.ContactOrganization, &c.Organization},
		{p.ContactPosition, &c.Position},
		{p.ContactAddress, &c.Address},
		{p.ContactCity, &c.City},
		{p.ContactStateOrProvince, &c.StateOrProvince},
		{p.ContactPostCode, &c.PostCode},
		{p.ContactCountry, &c.Country},
		{p.ContactPhone, &c.Phone},
		{p.ContactFacsimile, &c.Facsimile},
		{p.ContactEmail, &c.Email},
	}
}

func (p ServicePaths) read(root *etree.Element) (ServiceMetadata, string) {
	metadata := ServiceMetadata{
		Title:             childText(root, p.Title),
		Abstract:          childText(root, p.Abstract),
		Fees:              childText(root, p.Fees),
		AccessConstraints: childText(root, p.AccessConstraints),
		Keywords:          childTexts(root, p.Keyword),
	}
	for _, field := range p.contactFields(&metadata.Contact) {
		*field.value = childText(root, field.path)
	}

	var serviceURL string
	if p.OnlineResource != "" {
		serviceURL = attrValue(root.FindElement(p.OnlineResource), "href")
	}
	return metadata, serviceURL
}

func (p ServicePaths) write(root *etree.Element, metadata ServiceMetadata, serviceURL string) {
	setChildText(root, p.Title, metadata.Title)
	setChildText(root, p.Abstract, metadata.Abstract)
	setChildText(root, p.Fees, metadata.Fees)
	setChildText(root, p.AccessConstraints, metadata.AccessConstraints)

	if p.Keyword != "" {
		parentPath, tag := splitPath(p.Keyword)
		if parent := root.FindElement(parentPath); parent != nil {
			replaceChildren(parent, tag, metadata.Keywords)
		} else if len(metadata.Keywords) > 0 {
			replaceChildren(ensurePath(root, parentPath), tag, metadata.Keywords)
		}
	}

	contact := metadata.Contact
	for _, field := range p.contactFields(&contact) {
		setChildText(root, field.path, *field.value)
	}

	if p.OnlineResource != "" && serviceURL != "" {
		ensurePath(root, p.OnlineResource).CreateAttr("xlink:href", serviceURL)
	}
}
