package proxy

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/delta10/capabilities-proxy/internal/capabilities"
	"github.com/delta10/capabilities-proxy/internal/config"
	"github.com/delta10/capabilities-proxy/internal/logs"
	"github.com/delta10/capabilities-proxy/internal/utils"
)

type ClaimsWithGroups struct {
	jwt.RegisteredClaims
	Groups []string `json:"groups"`
}

// Server proxies OGC services and camouflages their capabilities documents.
type Server struct {
	config      *config.Config
	keyfunc     jwt.Keyfunc
	jwks        *keyfunc.JWKS
	logBackends map[string]*logs.LogBackend
}

type Option func(*Server)

// WithKeyfunc verifies bearer tokens with fn instead of the configured JWKS.
func WithKeyfunc(fn jwt.Keyfunc) Option {
	return func(s *Server) {
		s.keyfunc = fn
	}
}

func NewServer(config *config.Config, options ...Option) (*Server, error) {
	s := &Server{
		config:      config,
		logBackends: make(map[string]*logs.LogBackend),
	}
	for _, option := range options {
		option(s)
	}

	if config.JwksURL != "" && s.keyfunc == nil {
		jwks, err := keyfunc.Get(config.JwksURL, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				log.Printf("could not refresh JWKS: %s", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("could not fetch JWKS: %w", err)
		}
		s.jwks = jwks
		s.keyfunc = jwks.Keyfunc
	}

	for name, backend := range config.LogBackends {
		s.logBackends[name] = logs.NewLogBackend(backend)
	}

	return s, nil
}

// Close stops the background JWKS refresh.
func (s *Server) Close() {
	if s.jwks != nil {
		s.jwks.EndBackground()
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	for _, configuredPath := range s.config.Paths {
		path := configuredPath
		router.HandleFunc(path.Path+"/fields", s.handleFields(path)).Methods(http.MethodGet)
		router.HandleFunc(path.Path, s.handlePath(path))
	}
	return router
}

func (s *Server) handlePath(path config.Path) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		backend, ok := s.config.Backends[path.Backend.Slug]
		if !ok {
			writeError(w, http.StatusBadRequest, "could not find backend associated with this path: "+path.Backend.Slug)
			return
		}

		if !s.authorize(r, path) {
			writeError(w, http.StatusUnauthorized, "unauthorized request")
			return
		}

		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "request method is not allowed")
			return
		}

		utils.DelHopHeaders(r.Header)

		backendURL, err := buildBackendURL(backend, path, mux.Vars(r), r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request URL")
			return
		}

		var body io.Reader
		if r.Method == http.MethodPost {
			body = r.Body
		}

		proxyResp, err := fetchBackend(r, backend, r.Method, backendURL, body)
		if err != nil {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("could not fetch backend response: %s", err))
			return
		}
		defer proxyResp.Body.Close()

		if proxyResp.StatusCode == http.StatusOK && r.Method == http.MethodGet && utils.IsGetCapabilities(r.URL.Query()) {
			s.serveCapabilities(w, r, path, backend, proxyResp, backendURL)
			return
		}

		utils.DelHopHeaders(proxyResp.Header)
		utils.CopyHeader(w.Header(), proxyResp.Header)
		w.WriteHeader(proxyResp.StatusCode)
		io.Copy(w, proxyResp.Body)
	}
}

func (s *Server) serveCapabilities(w http.ResponseWriter, r *http.Request, path config.Path, backend config.Backend, proxyResp *http.Response, upstream *url.URL) {
	source, err := io.ReadAll(proxyResp.Body)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not read capabilities document")
		return
	}

	doc, err := capabilities.Parse(source)
	if err != nil {
		log.Printf("could not parse capabilities document from %s: %s", upstream.Redacted(), err)
		writeError(w, http.StatusBadGateway, "could not parse capabilities document")
		return
	}
	if err := checkServiceType(backend, doc); err != nil {
		log.Printf("rejected capabilities document from %s: %s", upstream.Redacted(), err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	domain := path.Camouflage.Domain
	if domain == "" {
		domain = utils.RequestHost(r)
	}
	scheme := path.Camouflage.Scheme
	if scheme == "" {
		scheme = utils.RequestScheme(r)
	}

	if err := doc.CamouflageURLs(domain, scheme); err != nil {
		writeError(w, http.StatusBadGateway, "could not rewrite capabilities document")
		return
	}
	// Clients must come back through the proxied path, not the backend one.
	publicPath := r.URL.Path
	if err := doc.RewriteURLs(func(u *url.URL) {
		u.Path = publicPath
		u.RawPath = ""
	}); err != nil {
		writeError(w, http.StatusBadGateway, "could not rewrite capabilities document")
		return
	}
	if doc.ServiceURL != "" {
		doc.ServiceURL = (&url.URL{Scheme: scheme, Host: domain, Path: publicPath}).String()
	}

	out, err := doc.Serialize()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not serialize capabilities document")
		return
	}

	if logBackend, ok := s.logBackends[path.LogBackend]; ok {
		err := logBackend.WriteCapabilitiesRewrite(r.Context(), logs.CapabilitiesRewrite{
			Backend:    path.Backend.Slug,
			Service:    string(doc.ServiceType.Name),
			Version:    doc.ServiceType.Version,
			Upstream:   upstream.Redacted(),
			Domain:     domain,
			Scheme:     scheme,
			Operations: len(doc.OperationURLs().All()),
			ClientIP:   utils.ReadUserIP(r),
		})
		if err != nil {
			log.Printf("could not write log entry: %s", err)
		}
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// checkServiceType rejects documents of another service than the backend's
// configured type. An empty type accepts every service.
func checkServiceType(backend config.Backend, doc *capabilities.Document) error {
	if backend.Type == "" || strings.EqualFold(backend.Type, string(doc.ServiceType.Name)) {
		return nil
	}
	return fmt.Errorf("backend is configured as %s but returned a %s capabilities document", backend.Type, doc.ServiceType.Name)
}

func (s *Server) authorize(r *http.Request, path config.Path) bool {
	if path.AllowAlways || s.keyfunc == nil {
		return true
	}

	header := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == "" || tokenString == header {
		return false
	}

	token, err := jwt.ParseWithClaims(tokenString, &ClaimsWithGroups{}, s.keyfunc)
	if err != nil {
		log.Printf("rejected bearer token: %s", err)
		return false
	}

	return token.Valid
}

func buildBackendURL(backend config.Backend, path config.Path, vars map[string]string, query url.Values) (*url.URL, error) {
	pairs := make([]string, 0, 2*len(vars))
	for key, value := range vars {
		pairs = append(pairs, key, value)
	}

	backendPath, err := mux.NewRouter().NewRoute().Path(path.Backend.Path).URLPath(pairs...)
	if err != nil {
		return nil, err
	}

	backendBaseURL, err := url.Parse(backend.BaseURL)
	if err != nil {
		return nil, err
	}

	fullBackendURL := backendBaseURL.JoinPath(backendPath.Path)
	fullBackendURL.RawQuery = query.Encode()
	return fullBackendURL, nil
}

func fetchBackend(r *http.Request, backend config.Backend, method string, backendURL *url.URL, body io.Reader) (*http.Response, error) {
	backendRequest, err := http.NewRequestWithContext(r.Context(), method, backendURL.String(), body)
	if err != nil {
		return nil, err
	}
	if contentType := r.Header.Get("Content-Type"); contentType != "" && body != nil {
		backendRequest.Header.Set("Content-Type", contentType)
	}

	if backend.Auth.Basic.Username != "" && backend.Auth.Basic.Password != "" {
		parsedPassword := utils.EnvSubst(backend.Auth.Basic.Password)
		backendRequest.SetBasicAuth(backend.Auth.Basic.Username, parsedPassword)
	}

	for headerKey, headerValue := range backend.Auth.Header {
		parsedHeaderValue := utils.EnvSubst(headerValue)
		backendRequest.Header.Set(headerKey, parsedHeaderValue)
	}

	client, err := newBackendClient(backend)
	if err != nil {
		return nil, err
	}

	return client.Do(backendRequest)
}

func newBackendClient(backend config.Backend) (*http.Client, error) {
	tlsConfig := &tls.Config{}
	if backend.Auth.TLS.RootCertificates != "" {
		rootCertificates, err := os.ReadFile(backend.Auth.TLS.RootCertificates)
		if err != nil {
			return nil, fmt.Errorf("could not retrieve root certs for backend: %w", err)
		}

		roots := x509.NewCertPool()
		if ok := roots.AppendCertsFromPEM(rootCertificates); !ok {
			return nil, fmt.Errorf("could not load root certs for backend")
		}

		tlsConfig.RootCAs = roots
	}

	if backend.Auth.TLS.Certificate != "" && backend.Auth.TLS.Key != "" {
		cert, err := tls.LoadX509KeyPair(backend.Auth.TLS.Certificate, backend.Auth.TLS.Key)
		if err != nil {
			return nil, fmt.Errorf("could not load TLS keypair for backend: %w", err)
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	}, nil
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	resp := make(map[string]string)
	resp["message"] = message
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		log.Printf("could not marshal error response: %s", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(jsonResp)
}
