package utils

import (
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var envPattern = regexp.MustCompile(`\${([^}]+)}`)

func QueryParamsToLower(queryParams url.Values) url.Values {
	lowercaseParams := url.Values{}

	for key, values := range queryParams {
		lowercaseKey := strings.ToLower(key)
		lowercaseParams[lowercaseKey] = values
	}

	return lowercaseParams
}

// IsGetCapabilities reports whether the query asks an OGC service for its
// capabilities document. Parameter names and values are case insensitive.
func IsGetCapabilities(queryParams url.Values) bool {
	return strings.EqualFold(QueryParamsToLower(queryParams).Get("request"), "GetCapabilities")
}

func CopyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func DelHopHeaders(header http.Header) {
	// Hop-by-hop headers. These are removed when sent to the backend.
	// http://www.w3.org/Protocols/rfc2616/rfc2616-sec13.html
	var hopHeaders = []string{
		"Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Te", // canonicalized version of "TE"
		"Trailers",
		"Transfer-Encoding",
		"Upgrade",
		"Access-Control-Allow-Origin",
	}

	for _, h := range hopHeaders {
		header.Del(h)
	}
}

// EnvSubst replaces ${NAME} with the value of the environment variable NAME.
func EnvSubst(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		return ""
	})
}

func ReadUserIP(r *http.Request) string {
	forwardedFor := r.Header.Get("X-Forwarded-For")
	if forwardedFor != "" {
		ips := strings.Split(forwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

// RequestScheme returns the scheme the client used to reach the proxy.
func RequestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// RequestHost returns the host the client used to reach the proxy.
func RequestHost(r *http.Request) string {
	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		return strings.TrimSpace(strings.Split(host, ",")[0])
	}
	return r.Host
}
