package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/delta10/capabilities-proxy/internal/config"
)

func NewLogBackend(backend config.LogBackend) *LogBackend {
	return &LogBackend{
		Config: backend,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// LogBackend pushes log lines to a Loki compatible push API.
type LogBackend struct {
	Config config.LogBackend
	Client *http.Client
}

type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]any           `json:"values"`
}

type Body struct {
	Streams []Stream `json:"streams"`
}

// CapabilitiesRewrite describes one capabilities document served with
// camouflaged operation URLs.
type CapabilitiesRewrite struct {
	Backend    string
	Service    string
	Version    string
	Upstream   string
	Domain     string
	Scheme     string
	Operations int
	ClientIP   string
}

// WriteCapabilitiesRewrite records a camouflaged capabilities response.
func (l *LogBackend) WriteCapabilitiesRewrite(ctx context.Context, rewrite CapabilitiesRewrite) error {
	labels := map[string]string{
		"source":  "capabilities-proxy",
		"backend": rewrite.Backend,
		"service": rewrite.Service,
	}
	line := map[string]string{
		"version":    rewrite.Version,
		"upstream":   rewrite.Upstream,
		"domain":     rewrite.Domain,
		"scheme":     rewrite.Scheme,
		"operations": fmt.Sprint(rewrite.Operations),
		"ip":         rewrite.ClientIP,
	}
	return l.WriteLog(ctx, labels, line)
}

func (l *LogBackend) WriteLog(ctx context.Context, labels map[string]string, line map[string]string) error {
	parsedUrl, err := url.Parse(l.Config.BaseURL)
	if err != nil {
		return err
	}

	parsedUrl = parsedUrl.JoinPath("/loki/api/v1/push")

	marshalledLine, err := json.Marshal(line)
	if err != nil {
		return err
	}

	body := Body{
		Streams: []Stream{
			{
				Stream: labels,
				Values: [][]any{
					{
						fmt.Sprint(time.Now().UnixNano()),
						string(marshalledLine),
					},
				},
			},
		},
	}

	marshalled, err := json.Marshal(body)
	if err != nil {
		return err
	}

	logRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, parsedUrl.String(), bytes.NewReader(marshalled))
	if err != nil {
		return err
	}

	logRequest.Header.Add("Content-Type", "application/json")

	logResponse, err := l.Client.Do(logRequest)
	if err != nil {
		return err
	}

	defer logResponse.Body.Close()

	if logResponse.StatusCode != http.StatusNoContent {
		return fmt.Errorf("could not create log entry: %s", logResponse.Status)
	}

	return nil
}
