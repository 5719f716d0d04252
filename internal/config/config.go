package config

import (
	"bytes"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/vango-dev/wiretap/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "wiretap.json"

	// TOMLConfigFileName is the name of the TOML configuration file.
	TOMLConfigFileName = "wiretap.toml"

	// DefaultListen is the default relay address.
	DefaultListen = ":8420"

	// DefaultWaitTimeout is the default CurrentState wait.
	DefaultWaitTimeout = "2s"

	// DefaultMaxMessageSize is the default websocket read limit (1MB).
	DefaultMaxMessageSize = 1 << 20

	// DefaultWriteTimeout is the default websocket write deadline.
	DefaultWriteTimeout = "10s"

	// DefaultStorePath is the default file backend path.
	DefaultStorePath = "records.json"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendS3     = "s3"
)

// Config represents the complete wiretap configuration.
type Config struct {
	// Listen is the address the relay and control API listen on.
	Listen string `json:"listen,omitempty" toml:"listen,omitempty"`

	// Upstream is the websocket URL of the server being relayed.
	Upstream string `json:"upstream,omitempty" toml:"upstream,omitempty"`

	// Origin is sent as the Origin header when dialing Upstream.
	Origin string `json:"origin,omitempty" toml:"origin,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty" toml:"log,omitempty"`

	// State contains session state configuration.
	State StateConfig `json:"state,omitempty" toml:"state,omitempty"`

	// Relay contains websocket relay configuration.
	Relay RelayConfig `json:"relay,omitempty" toml:"relay,omitempty"`

	// Store contains record store configuration.
	Store StoreConfig `json:"store,omitempty" toml:"store,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty" toml:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" toml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" toml:"format,omitempty"`
}

// StateConfig contains session state settings.
type StateConfig struct {
	// WaitTimeout bounds CurrentState waits, as a Go duration.
	WaitTimeout string `json:"waitTimeout,omitempty" toml:"waitTimeout,omitempty"`
}

// RelayConfig contains websocket relay settings.
type RelayConfig struct {
	// MaxMessageSize is the read limit applied to both websockets.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty" toml:"maxMessageSize,omitempty"`

	// WriteTimeout is the write deadline for relayed messages.
	WriteTimeout string `json:"writeTimeout,omitempty" toml:"writeTimeout,omitempty"`

	// ForwardHeaders are copied from the client request to the upstream
	// dial (e.g. "Cookie", "User-Agent").
	ForwardHeaders []string `json:"forwardHeaders,omitempty" toml:"forwardHeaders,omitempty"`
}

// StoreConfig contains record store settings.
type StoreConfig struct {
	// Backend is memory, file or s3.
	Backend string `json:"backend,omitempty" toml:"backend,omitempty"`

	// Path is the file backend path, relative to the config file.
	Path string `json:"path,omitempty" toml:"path,omitempty"`

	// S3 configures the s3 backend.
	S3 S3Config `json:"s3,omitempty" toml:"s3,omitempty"`
}

// S3Config contains S3 backend settings.
type S3Config struct {
	Bucket          string `json:"bucket,omitempty" toml:"bucket,omitempty"`
	Key             string `json:"key,omitempty" toml:"key,omitempty"`
	Region          string `json:"region,omitempty" toml:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty" toml:"endpoint,omitempty"`
	UsePathStyle    bool   `json:"usePathStyle,omitempty" toml:"usePathStyle,omitempty"`
	AccessKeyID     string `json:"accessKeyId,omitempty" toml:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty" toml:"secretAccessKey,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics.
	Enabled bool `json:"enabled" toml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" toml:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Listen: DefaultListen,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		State: StateConfig{
			WaitTimeout: DefaultWaitTimeout,
		},
		Relay: RelayConfig{
			MaxMessageSize: DefaultMaxMessageSize,
			WriteTimeout:   DefaultWriteTimeout,
		},
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    DefaultStorePath,
			S3: S3Config{
				Key: "wiretap/records.json",
			},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "wiretap",
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// wiretap.json first, then wiretap.toml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, TOMLConfigFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("W101").
		WithDetail("No " + ConfigFileName + " or " + TOMLConfigFileName + " found in " + dir).
		WithSuggestion("Run 'wiretap init' to create " + ConfigFileName)
}

// LoadFile reads configuration from the specified file path. Files ending
// in .toml are parsed as TOML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("W101").
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("W100").Wrap(err)
	}

	cfg := New()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.New("W100").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid TOML")
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.New("W100").
				WithDetail("Unknown keys in " + filepath.Base(path) + ": " + strings.Join(keys, ", "))
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.New("W100").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path in the format its extension
// selects.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return errors.New("W100").Wrap(err)
		}
	} else {
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return errors.New("W100").Wrap(err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.New("W100").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.State.WaitTimeout == "" {
		c.State.WaitTimeout = d.State.WaitTimeout
	}
	if c.Relay.MaxMessageSize == 0 {
		c.Relay.MaxMessageSize = d.Relay.MaxMessageSize
	}
	if c.Relay.WriteTimeout == "" {
		c.Relay.WriteTimeout = d.Relay.WriteTimeout
	}
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Store.Path == "" {
		c.Store.Path = d.Store.Path
	}
	if c.Store.S3.Key == "" {
		c.Store.S3.Key = d.Store.S3.Key
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
}

// ApplyEnv overrides fields from WIRETAP_* variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"WIRETAP_LISTEN", &c.Listen},
		{"WIRETAP_UPSTREAM", &c.Upstream},
		{"WIRETAP_ORIGIN", &c.Origin},
		{"WIRETAP_LOG_LEVEL", &c.Log.Level},
		{"WIRETAP_LOG_FORMAT", &c.Log.Format},
		{"WIRETAP_STORE_BACKEND", &c.Store.Backend},
		{"WIRETAP_STORE_PATH", &c.Store.Path},
		{"WIRETAP_S3_BUCKET", &c.Store.S3.Bucket},
		{"WIRETAP_S3_KEY", &c.Store.S3.Key},
		{"WIRETAP_S3_REGION", &c.Store.S3.Region},
		{"WIRETAP_S3_ENDPOINT", &c.Store.S3.Endpoint},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		return errors.New("W100").WithDetail(detail)
	}

	if c.Listen == "" {
		return invalid("listen must not be empty")
	}
	if c.Upstream == "" {
		return errors.New("W100").
			WithDetail("upstream is required").
			WithSuggestion("Set \"upstream\" to the websocket URL of the server, e.g. wss://host/websocket")
	}
	u, err := url.Parse(c.Upstream)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return invalid("upstream must be a ws:// or wss:// URL, got " + c.Upstream)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level must be debug, info, warn or error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format must be text or json")
	}

	if d, err := time.ParseDuration(c.State.WaitTimeout); err != nil || d <= 0 {
		return invalid("state.waitTimeout must be a positive duration")
	}
	if d, err := time.ParseDuration(c.Relay.WriteTimeout); err != nil || d <= 0 {
		return invalid("relay.writeTimeout must be a positive duration")
	}
	if c.Relay.MaxMessageSize < 6 {
		return invalid("relay.maxMessageSize must hold at least a frame header")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.Path == "" {
			return invalid("store.path is required for the file backend")
		}
	case BackendS3:
		if c.Store.S3.Bucket == "" || c.Store.S3.Key == "" {
			return invalid("store.s3.bucket and store.s3.key are required for the s3 backend")
		}
	default:
		return invalid("store.backend must be memory, file or s3")
	}

	return nil
}

// WaitTimeout returns State.WaitTimeout as a duration.
func (c *Config) WaitTimeout() time.Duration {
	d, err := time.ParseDuration(c.State.WaitTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultWaitTimeout)
	}
	return d
}

// WriteTimeout returns Relay.WriteTimeout as a duration.
func (c *Config) WriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Relay.WriteTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultWriteTimeout)
	}
	return d
}

// StorePath returns the file backend path, resolved against the config
// directory when relative.
func (c *Config) StorePath() string {
	if filepath.IsAbs(c.Store.Path) || c.Dir() == "" {
		return c.Store.Path
	}
	return filepath.Join(c.Dir(), c.Store.Path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, TOMLConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
