package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

type Backend struct {
	BaseURL string `yaml:"baseUrl"`
	// Type is the OGC service the backend serves (WMS, WFS or CSW). When set,
	// capabilities documents of another service are rejected.
	Type string `yaml:"type"`

	Auth struct {
		Header map[string]string `yaml:"header"`
		Basic  struct {
			Username string `yaml:"username"`
			Password string `yaml:"password"`
		} `yaml:"basic"`
		TLS struct {
			RootCertificates string `yaml:"rootCertificates"`
			Certificate      string `yaml:"certificate"`
			Key              string `yaml:"key"`
		} `yaml:"tls"`
	} `yaml:"auth"`
}

// Camouflage decides the host and scheme written into proxied capabilities
// documents. Empty fields fall back to the incoming request.
type Camouflage struct {
	Domain string `yaml:"domain"`
	Scheme string `yaml:"scheme"`
}

type Path struct {
	Path    string `yaml:"path"`
	Backend struct {
		Slug string `yaml:"slug"`
		Path string `yaml:"path"`
	} `yaml:"backend"`
	Camouflage  Camouflage `yaml:"camouflage"`
	AllowAlways bool       `yaml:"allowAlways"`
	LogBackend  string     `yaml:"logBackend"`
	Filter      string     `yaml:"filter"`
}

type LogBackend struct {
	BaseURL string `yaml:"baseUrl"`
}

type Config struct {
	ListenAddress string `yaml:"listenAddress"`
	ListenTLS     struct {
		Certificate string `yaml:"certificate"`
		Key         string `yaml:"key"`
	} `yaml:"listenTls"`
	JwksURL     string                `yaml:"jwksUrl"`
	Paths       []Path                `yaml:"paths"`
	Backends    map[string]Backend    `yaml:"backends"`
	LogBackends map[string]LogBackend `yaml:"logBackends"`
}

// NewConfig returns a new decoded Config struct
func NewConfig(configPath string) (*Config, error) {
	// Create config structure
	config := &Config{}

	// Open config file
	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// Init new YAML decode
	d := yaml.NewDecoder(file)

	// Start YAML decoding from file
	if err := d.Decode(&config); err != nil {
		return nil, err
	}

	if config.ListenAddress == "" {
		config.ListenAddress = ":8050"
	}

	return config, nil
}
