package capabilities

import (
	"fmt"
	"net/url"
)

// RewriteURLs passes every operation URL through fn and stores the result. No
// URL is changed when one of them cannot be parsed.
func (d *Document) RewriteURLs(fn func(u *url.URL)) error {
	entries := d.operationURLs.All()
	for i, entry := range entries {
		u, err := url.Parse(entry.URL)
		if err != nil {
			return fmt.Errorf("%w: operation url %q: %s", ErrInvalidValue, entry.URL, err)
		}
		fn(u)
		entries[i].URL = u.String()
	}
	return d.operationURLs.Extend(entries...)
}

// CamouflageURLs points every operation URL at domain, keeping path and query.
// The scheme is replaced as well unless it is empty.
func (d *Document) CamouflageURLs(domain, scheme string) error {
	return d.RewriteURLs(func(u *url.URL) {
		u.Host = domain
		if scheme != "" {
			u.Scheme = scheme
		}
	})
}
