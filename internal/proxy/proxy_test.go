package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/delta10/capabilities-proxy/internal/config"
	"github.com/delta10/capabilities-proxy/internal/utils"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	capabilities, err := os.ReadFile("../capabilities/testdata/wms130.xml")
	if err != nil {
		t.Fatalf("could not read testdata: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geoserver/demo/wms" {
			http.NotFound(w, r)
			return
		}
		if utils.IsGetCapabilities(r.URL.Query()) {
			w.Header().Set("Content-Type", "text/xml")
			w.Write(capabilities)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png"))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestConfig(upstreamURL string, camouflage config.Camouflage) *config.Config {
	path := config.Path{
		Path:        "/wms/{workspace}",
		Camouflage:  camouflage,
		AllowAlways: true,
	}
	path.Backend.Slug = "geoserver"
	path.Backend.Path = "/{workspace}/wms"

	return &config.Config{
		Paths: []config.Path{path},
		Backends: map[string]config.Backend{
			"geoserver": {BaseURL: upstreamURL + "/geoserver"},
		},
	}
}

func serve(t *testing.T, s *Server, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, r)
	return recorder
}

func TestCapabilitiesAreCamouflaged(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t)

	tests := []struct {
		name       string
		camouflage config.Camouflage
		header     map[string]string
		want       string
	}{
		{
			name:       "configured domain",
			camouflage: config.Camouflage{Domain: "maps.example.org", Scheme: "https"},
			want:       "https://maps.example.org/wms/demo?SERVICE=WMS",
		},
		{
			name: "request host",
			want: "http://proxy.local/wms/demo?SERVICE=WMS",
		},
		{
			name:   "forwarded host",
			header: map[string]string{"X-Forwarded-Host": "public.example.org", "X-Forwarded-Proto": "https"},
			want:   "https://public.example.org/wms/demo?SERVICE=WMS",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := NewServer(newTestConfig(upstream.URL, tt.camouflage))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			r := httptest.NewRequest(http.MethodGet, "http://proxy.local/wms/demo?service=WMS&REQUEST=GetCapabilities", nil)
			for key, value := range tt.header {
				r.Header.Set(key, value)
			}

			resp := serve(t, s, r)
			if resp.Code != http.StatusOK {
				t.Fatalf("got status %d: %s", resp.Code, resp.Body.String())
			}
			if got := resp.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/xml") {
				t.Errorf("got content type %q", got)
			}

			body := resp.Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("body does not contain %q", tt.want)
			}
			if strings.Contains(body, "http://maps.example.com/wms") {
				t.Errorf("body still contains upstream operation urls")
			}
			if !strings.Contains(body, "http://maps.example.com/legend/roads.png") {
				t.Errorf("legend urls should not be rewritten")
			}
		})
	}
}

func TestOtherRequestsPassThrough(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t)
	s, err := NewServer(newTestConfig(upstream.URL, config.Camouflage{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := serve(t, s, httptest.NewRequest(http.MethodGet, "http://proxy.local/wms/demo?service=WMS&request=GetMap", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("got status %d", resp.Code)
	}
	if resp.Body.String() != "png" {
		t.Errorf("got body %q, want png", resp.Body.String())
	}
	if got := resp.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("got content type %q", got)
	}

	resp = serve(t, s, httptest.NewRequest(http.MethodDelete, "http://proxy.local/wms/demo", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want %d", resp.Code, http.StatusMethodNotAllowed)
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t)

	t.Run("without filter", func(t *testing.T) {
		t.Parallel()

		s, err := NewServer(newTestConfig(upstream.URL, config.Camouflage{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		resp := serve(t, s, httptest.NewRequest(http.MethodGet, "http://proxy.local/wms/demo/fields?service=WMS", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("got status %d: %s", resp.Code, resp.Body.String())
		}

		var fields map[string]any
		if err := json.Unmarshal(resp.Body.Bytes(), &fields); err != nil {
			t.Fatalf("could not decode fields: %v", err)
		}
		if fields["title"] != "Topography" {
			t.Errorf("got title %v", fields["title"])
		}
		if fields["service_type"] != "wms" || fields["version"] != "1.3.0" {
			t.Errorf("got service %v %v", fields["service_type"], fields["version"])
		}
		bbox, ok := fields["bbox"].(map[string]any)
		if !ok {
			t.Fatalf("got bbox %v, want a geometry", fields["bbox"])
		}
		if bbox["type"] != "Polygon" {
			t.Errorf("got bbox type %v", bbox["type"])
		}
	})

	t.Run("with filter", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(upstream.URL, config.Camouflage{})
		cfg.Paths[0].Filter = "{title, contact_email}"
		s, err := NewServer(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		resp := serve(t, s, httptest.NewRequest(http.MethodGet, "http://proxy.local/wms/demo/fields", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("got status %d: %s", resp.Code, resp.Body.String())
		}

		var fields map[string]any
		if err := json.Unmarshal(resp.Body.Bytes(), &fields); err != nil {
			t.Fatalf("could not decode fields: %v", err)
		}
		if len(fields) != 2 || fields["contact_email"] != "maps@example.com" {
			t.Errorf("got fields %v", fields)
		}
	})
}

func TestAuthorization(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t)
	secret := []byte("secret")

	cfg := newTestConfig(upstream.URL, config.Camouflage{})
	cfg.Paths[0].AllowAlways = false
	s, err := NewServer(cfg, WithKeyfunc(func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sign := func(expiresAt time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, ClaimsWithGroups{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)},
			Groups:           []string{"maps"},
		})
		signed, err := token.SignedString(secret)
		if err != nil {
			t.Fatalf("could not sign token: %v", err)
		}
		return signed
	}

	tests := []struct {
		name          string
		authorization string
		want          int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"not a bearer token", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"expired token", "Bearer " + sign(time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"valid token", "Bearer " + sign(time.Now().Add(time.Hour)), http.StatusOK},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://proxy.local/wms/demo?request=GetMap", nil)
		if tt.authorization != "" {
			r.Header.Set("Authorization", tt.authorization)
		}

		if got := serve(t, s, r).Code; got != tt.want {
			t.Errorf("%s: got status %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestUnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig("http://localhost", config.Camouflage{})
	cfg.Backends = nil
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := serve(t, s, httptest.NewRequest(http.MethodGet, "http://proxy.local/wms/demo", nil))
	if resp.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", resp.Code, http.StatusBadRequest)
	}
}

func TestBackendType(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t)

	tests := []struct {
		backendType string
		want        int
	}{
		{"", http.StatusOK},
		{"WMS", http.StatusOK},
		{"wms", http.StatusOK},
		{"WFS", http.StatusBadGateway},
	}

	for _, tt := range tests {
		cfg := newTestConfig(upstream.URL, config.Camouflage{})
		backend := cfg.Backends["geoserver"]
		backend.Type = tt.backendType
		cfg.Backends["geoserver"] = backend

		s, err := NewServer(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, target := range []string{
			"http://proxy.local/wms/demo?request=GetCapabilities",
			"http://proxy.local/wms/demo/fields",
		} {
			if got := serve(t, s, httptest.NewRequest(http.MethodGet, target, nil)).Code; got != tt.want {
				t.Errorf("type %q, %s: got status %d, want %d", tt.backendType, target, got, tt.want)
			}
		}
	}
}
