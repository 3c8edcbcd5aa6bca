package capabilities

import "fmt"

// Operation names an OGC request.
type Operation string

const (
	OperationGetCapabilities     Operation = "GetCapabilities"
	OperationGetMap              Operation = "GetMap"
	OperationGetFeatureInfo      Operation = "GetFeatureInfo"
	OperationDescribeLayer       Operation = "DescribeLayer"
	OperationGetLegendGraphic    Operation = "GetLegendGraphic"
	OperationDescribeFeatureType Operation = "DescribeFeatureType"
	OperationGetFeature          Operation = "GetFeature"
	OperationDescribeRecord      Operation = "DescribeRecord"
	OperationGetRecords          Operation = "GetRecords"
	OperationGetRecordByID       Operation = "GetRecordById"
)

// Method is the HTTP binding of an operation.
type Method string

const (
	MethodGet  Method = "Get"
	MethodPost Method = "Post"
)

// OperationURL is the endpoint of one operation for one HTTP method. Changes go
// through OperationURLs.Upsert.
type OperationURL struct {
	Operation Operation
	Method    Method
	URL       string
	MimeTypes []string
}

type operationRecord struct {
	getURL    string
	postURL   string
	mimeTypes []string
}

func (r *operationRecord) empty() bool {
	return r.getURL == "" && r.postURL == ""
}

// OperationURLs holds the endpoints of the operations a document supports.
// Every operation stores a Get URL, a Post URL and one list of mime types
// shared by both methods.
type OperationURLs struct {
	order   []Operation
	records map[Operation]*operationRecord
}

func newOperationURLs(operations []Operation) *OperationURLs {
	urls := &OperationURLs{
		order:   append([]Operation(nil), operations...),
		records: make(map[Operation]*operationRecord, len(operations)),
	}
	for _, operation := range operations {
		urls.records[operation] = &operationRecord{}
	}
	return urls
}

// Operations returns the operations this registry can hold, in document order.
func (u *OperationURLs) Operations() []Operation {
	return append([]Operation(nil), u.order...)
}

// Supports reports whether the operation can be stored.
func (u *OperationURLs) Supports(operation Operation) bool {
	_, ok := u.records[operation]
	return ok
}

// All materializes the stored endpoints: per operation a Get entry and then a
// Post entry, each present only when its URL is set.
func (u *OperationURLs) All() []OperationURL {
	var urls []OperationURL
	for _, operation := range u.order {
		record := u.records[operation]
		if record.getURL != "" {
			urls = append(urls, record.entry(operation, MethodGet, record.getURL))
		}
		if record.postURL != "" {
			urls = append(urls, record.entry(operation, MethodPost, record.postURL))
		}
	}
	return urls
}

func (r *operationRecord) entry(operation Operation, method Method, url string) OperationURL {
	return OperationURL{
		Operation: operation,
		Method:    method,
		URL:       url,
		MimeTypes: append([]string(nil), r.mimeTypes...),
	}
}

// Get returns the entry for an operation and method.
func (u *OperationURLs) Get(operation Operation, method Method) (OperationURL, bool) {
	record, ok := u.records[operation]
	if !ok {
		return OperationURL{}, false
	}

	switch {
	case method == MethodGet && record.getURL != "":
		return record.entry(operation, method, record.getURL), true
	case method == MethodPost && record.postURL != "":
		return record.entry(operation, method, record.postURL), true
	}
	return OperationURL{}, false
}

// Upsert stores the URL in the slot of its method and merges its mime types
// into the operation's list.
func (u *OperationURLs) Upsert(entry OperationURL) error {
	if err := u.validate(entry); err != nil {
		return err
	}
	if entry.URL == "" {
		return fmt.Errorf("%w: empty url for %s %s", ErrInvalidValue, entry.Operation, entry.Method)
	}

	u.upsert(entry)
	return nil
}

func (u *OperationURLs) upsert(entry OperationURL) {
	record := u.records[entry.Operation]
	record.mimeTypes = mergeMimeTypes(record.mimeTypes, entry.MimeTypes)

	if entry.Method == MethodGet {
		record.getURL = entry.URL
	} else {
		record.postURL = entry.URL
	}
}

// Extend upserts every entry. Nothing is stored when one of them is invalid.
func (u *OperationURLs) Extend(entries ...OperationURL) error {
	for _, entry := range entries {
		if err := u.validate(entry); err != nil {
			return err
		}
		if entry.URL == "" {
			return fmt.Errorf("%w: empty url for %s %s", ErrInvalidValue, entry.Operation, entry.Method)
		}
	}

	for _, entry := range entries {
		u.upsert(entry)
	}
	return nil
}

// Remove clears the slot of the entry's method. An operation left without any
// URL also loses its mime types.
func (u *OperationURLs) Remove(entry OperationURL) error {
	if err := u.validate(entry); err != nil {
		return err
	}

	record := u.records[entry.Operation]
	if entry.Method == MethodGet {
		record.getURL = ""
	} else {
		record.postURL = ""
	}

	if record.empty() {
		record.mimeTypes = nil
	}
	return nil
}

// Pop removes and returns the last materialized entry.
func (u *OperationURLs) Pop() (OperationURL, bool) {
	all := u.All()
	if len(all) == 0 {
		return OperationURL{}, false
	}

	last := all[len(all)-1]
	// The entry comes from All, so it is always valid.
	_ = u.Remove(last)
	return last, true
}

// Clear removes every URL and mime type of every operation.
func (u *OperationURLs) Clear() {
	for _, operation := range u.order {
		u.records[operation] = &operationRecord{}
	}
}

func (u *OperationURLs) validate(entry OperationURL) error {
	if !u.Supports(entry.Operation) {
		return fmt.Errorf("%w: unsupported operation: %s", ErrInvalidValue, entry.Operation)
	}
	if entry.Method != MethodGet && entry.Method != MethodPost {
		return fmt.Errorf("%w: unsupported method: %s", ErrInvalidValue, entry.Method)
	}
	return nil
}

func mergeMimeTypes(current, added []string) []string {
	seen := make(map[string]bool, len(current))
	for _, mimeType := range current {
		seen[mimeType] = true
	}

	for _, mimeType := range added {
		if mimeType == "" || seen[mimeType] {
			continue
		}
		seen[mimeType] = true
		current = append(current, mimeType)
	}
	return current
}
