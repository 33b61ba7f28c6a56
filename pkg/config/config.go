// Package config defines the Network Map Service's on-disk configuration
// and its validated, defaulted in-memory form.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the web port the public network-map API listens on.
	DefaultPort = 8080
	// DefaultDBDir is the legacy filesystem-backed state directory.
	DefaultDBDir = ".db"
	// DefaultNotaryDir is the watched JKS notary-certificate directory.
	DefaultNotaryDir = "notary-certificates"
	// DefaultCacheTimeout is the HTTP Cache-Control max-age for the signed map.
	DefaultCacheTimeout = 2 * time.Second
	// DefaultParamUpdateDelay is the activation delay for parameter updates.
	DefaultParamUpdateDelay = 10 * time.Second
	// DefaultNetworkMapDelay is the rebuild debounce window.
	DefaultNetworkMapDelay = 1 * time.Second

	// EmbedDB is the sentinel value for MongoDBConnectionString meaning
	// "use the locally embedded database instead of dialing out".
	EmbedDB = "embed"
)

// Config is the top-level on-disk configuration for the service.
type Config struct {
	Port     int    `yaml:"port"`
	Hostname string `yaml:"hostname"`

	DB       DB       `yaml:"db"`
	Notary   Notary   `yaml:"notary"`
	Cache    Cache    `yaml:"cache"`
	Params   Params   `yaml:"paramUpdate"`
	NetMap   NetMap   `yaml:"networkMap"`
	Admin    Admin    `yaml:"admin"`
	TLS      TLS      `yaml:"tls"`
	Features Features `yaml:"features"`

	MongoDB MongoDB `yaml:"mongodb"`

	Logger     Logger       `yaml:"logger"`
	Metrics    BasicService `yaml:"metrics"`
	Pprof      BasicService `yaml:"pprof"`
}

// DB configures the legacy filesystem-backed state directory.
type DB struct {
	Dir string `yaml:"dir"`
}

// Notary configures the watched notary-certificate directory.
type Notary struct {
	Dir string `yaml:"dir"`
}

// Cache configures HTTP caching of served artifacts.
type Cache struct {
	Timeout Duration `yaml:"timeout"`
}

// Params configures scheduled parameter-update activation.
type Params struct {
	Delay Duration `yaml:"delay"`
}

// NetMap configures network-map rebuild debouncing.
type NetMap struct {
	Delay Duration `yaml:"delay"`
}

// Admin carries HTTP basic-auth credentials for the admin API.
// Authentication/authorization enforcement is an external collaborator
// (doorman/certman/pkix, see Features); these are just the static
// credentials it is handed.
type Admin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TLS configures the (externally terminated or self-served) TLS listener.
type TLS struct {
	Enabled  bool   `yaml:"enabled"`
	CertPath string `yaml:"certPath"`
	KeyPath  string `yaml:"keyPath"`
}

// Features toggles the out-of-scope authentication/authorization
// collaborators. The Network Map Processor itself never branches on
// these; they exist so the adapter layer knows whether to delegate to
// doorman/certman/pkix before calling into the processor.
type Features struct {
	Doorman bool `yaml:"doorman"`
	Certman bool `yaml:"certman"`
	PKIX    bool `yaml:"pkix"`
}

// MongoDB configures the database-backed store's connection. The literal
// value "embed" names the embedded engine; the embedded document-database
// bootstrap itself is out of scope (see DESIGN.md). The serve command does
// not read this field: it always uses the embedded engine, whatever value
// is set here.
type MongoDB struct {
	ConnectionString string `yaml:"connectionString"`
}

// Logger configures the zap logger.
type Logger struct {
	Level     string `yaml:"level"`
	Encoding  string `yaml:"encoding"`
	Path      string `yaml:"path"`
	Timestamp *bool  `yaml:"timestamp,omitempty"`
}

// Validate checks the configuration for internally-inconsistent settings
// and fills in values with no sane zero-value default.
func (c *Config) Validate() error {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.DB.Dir == "" {
		c.DB.Dir = DefaultDBDir
	}
	if c.Notary.Dir == "" {
		c.Notary.Dir = DefaultNotaryDir
	}
	if c.Cache.Timeout.Duration == 0 {
		c.Cache.Timeout.Duration = DefaultCacheTimeout
	}
	if c.Params.Delay.Duration == 0 {
		c.Params.Delay.Duration = DefaultParamUpdateDelay
	}
	if c.NetMap.Delay.Duration == 0 {
		c.NetMap.Delay.Duration = DefaultNetworkMapDelay
	}
	if c.TLS.Enabled && (c.TLS.CertPath == "" || c.TLS.KeyPath == "") {
		return fmt.Errorf("tls enabled but tls.cert.path/tls.key.path are not both set")
	}
	if len(c.Logger.Encoding) > 0 && c.Logger.Encoding != "console" && c.Logger.Encoding != "json" {
		return fmt.Errorf("invalid logger.encoding: %s", c.Logger.Encoding)
	}
	return nil
}

// Load reads and validates a Config from the given YAML file path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes decodes and validates a Config from raw YAML bytes.
func LoadBytes(data []byte) (Config, error) {
	cfg := Config{
		Cache:  Cache{Timeout: Duration{DefaultCacheTimeout}},
		Params: Params{Delay: Duration{DefaultParamUpdateDelay}},
		NetMap: NetMap{Delay: Duration{DefaultNetworkMapDelay}},
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
