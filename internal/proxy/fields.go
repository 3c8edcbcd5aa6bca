package proxy

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/itchyny/gojq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/delta10/capabilities-proxy/internal/capabilities"
	"github.com/delta10/capabilities-proxy/internal/config"
)

// handleFields fetches the capabilities document of a path and responds with
// its field dict as JSON. The bounding box is rendered as a GeoJSON geometry.
func (s *Server) handleFields(path config.Path) http.HandlerFunc {
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

		params := r.URL.Query()
		for key := range params {
			if strings.EqualFold(key, "request") {
				params.Del(key)
			}
		}
		params.Set("request", "GetCapabilities")

		backendURL, err := buildBackendURL(backend, path, mux.Vars(r), params)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request URL")
			return
		}

		proxyResp, err := fetchBackend(r, backend, http.MethodGet, backendURL, nil)
		if err != nil {
			writeError(w, http.StatusBadGateway, "could not fetch backend response")
			return
		}
		defer proxyResp.Body.Close()

		if proxyResp.StatusCode != http.StatusOK {
			writeError(w, http.StatusBadGateway, "backend responded with "+proxyResp.Status)
			return
		}

		source, err := io.ReadAll(proxyResp.Body)
		if err != nil {
			writeError(w, http.StatusBadGateway, "could not read capabilities document")
			return
		}

		doc, err := capabilities.Parse(source)
		if err != nil {
			log.Printf("could not parse capabilities document from %s: %s", backendURL.Redacted(), err)
			writeError(w, http.StatusBadGateway, "could not parse capabilities document")
			return
		}

		if err := checkServiceType(backend, doc); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		result, err := fieldsToJSON(doc.FieldDict())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not marshal json")
			return
		}

		if path.Filter == "" {
			writeJSON(w, result)
			return
		}

		query, err := gojq.Parse(path.Filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not parse filter")
			return
		}

		iter := query.Run(result)
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}

			if err, ok := v.(error); ok {
				log.Printf("filter failed: %s", err)
				continue
			}

			writeJSON(w, v)
		}
	}
}

// fieldsToJSON converts a field dict into plain JSON values so it can be fed
// to a jq filter.
func fieldsToJSON(fields map[string]any) (map[string]any, error) {
	if polygon, ok := fields["bbox"].(orb.Polygon); ok {
		fields["bbox"] = geojson.NewGeometry(polygon)
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	response, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not marshal json")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}
