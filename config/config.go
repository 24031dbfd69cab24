// Package config provides loading and parsing of oracle.yaml configuration files.
// The configuration carries every filesystem location and backing-service
// endpoint the SDK components need, so that no component resolves paths
// relative to its own install location.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents an oracle.yaml configuration file.
// This is the primary configuration for a compliance oracle deployment.
type Config struct {
	// ProjectName is an optional display name recorded in new state files.
	ProjectName string `yaml:"project_name,omitempty"`

	// FrameworksDir is the directory containing framework catalog JSON
	// documents plus the frameworks.yaml registry.
	FrameworksDir string `yaml:"frameworks_dir"`

	// MappingsDir is the directory containing explicit cross-framework
	// mapping documents named <source>_to_<target>.json.
	MappingsDir string `yaml:"mappings_dir"`

	// StateDirName is the hidden per-project directory holding state.json.
	// Default: ".compliance-oracle"
	StateDirName string `yaml:"state_dir_name,omitempty"`

	// Search configures the semantic search provider.
	Search *SearchConfig `yaml:"search,omitempty"`

	// Lock configures the optional etcd advisory lock for state writes.
	Lock *LockConfig `yaml:"lock,omitempty"`

	// Serve configures the gRPC tool server.
	Serve *ServeConfig `yaml:"serve,omitempty"`
}

// SearchConfig configures the redis-backed semantic search index.
type SearchConfig struct {
	// RedisURL is the redis connection string (e.g., "redis://localhost:6379").
	RedisURL string `yaml:"redis_url,omitempty"`

	// KeyPrefix namespaces all index keys. Default: "oracle"
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

// LockConfig configures the etcd advisory lock used to serialize state
// writers for a project. When Endpoints is empty the lock is disabled and
// writers fall back to single-process discipline.
type LockConfig struct {
	// Endpoints is the list of etcd endpoints (e.g., ["localhost:2379"]).
	Endpoints []string `yaml:"endpoints,omitempty"`

	// Namespace is the etcd key prefix for lock entries. Default: "oracle"
	Namespace string `yaml:"namespace,omitempty"`

	// TTL is the lock session time-to-live in seconds. Default: 30
	TTL int `yaml:"ttl,omitempty"`
}

// ServeConfig configures the gRPC server exposing the tool surface.
type ServeConfig struct {
	// Port is the TCP port to listen on. Default: 50061
	Port int `yaml:"port,omitempty"`

	// GracefulTimeout is the shutdown grace period.
	// Format: Go duration string (e.g., "30s"). Default: 30s
	GracefulTimeout string `yaml:"graceful_timeout,omitempty"`

	// TLSCertFile and TLSKeyFile enable TLS when both are set.
	TLSCertFile string `yaml:"tls_cert_file,omitempty"`
	TLSKeyFile  string `yaml:"tls_key_file,omitempty"`
}

// GetKeyPrefix returns the configured key prefix or the default value.
func (s *SearchConfig) GetKeyPrefix() string {
	if s == nil || s.KeyPrefix == "" {
		return "oracle"
	}
	return s.KeyPrefix
}

// GetNamespace returns the configured lock namespace or the default value.
func (l *LockConfig) GetNamespace() string {
	if l == nil || l.Namespace == "" {
		return "oracle"
	}
	return l.Namespace
}

// GetTTL returns the configured lock TTL or the default value.
func (l *LockConfig) GetTTL() int {
	if l == nil || l.TTL <= 0 {
		return 30
	}
	return l.TTL
}

// GetPort returns the configured serve port or the default value.
func (s *ServeConfig) GetPort() int {
	if s == nil || s.Port <= 0 {
		return 50061
	}
	return s.Port
}

// GetGracefulTimeout parses the graceful timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (s *ServeConfig) GetGracefulTimeout() time.Duration {
	if s == nil || s.GracefulTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(s.GracefulTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetStateDirName returns the state directory name or the default value.
func (c *Config) GetStateDirName() string {
	if c == nil || c.StateDirName == "" {
		return ".compliance-oracle"
	}
	return c.StateDirName
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.FrameworksDir == "" {
		return fmt.Errorf("frameworks_dir is required")
	}
	if c.MappingsDir == "" {
		return fmt.Errorf("mappings_dir is required")
	}
	return nil
}

// Load reads and parses an oracle.yaml file from the given path.
// If the path is a directory, it looks for oracle.yaml or oracle.yml in that
// directory. Relative directories inside the config are resolved against the
// config file's location.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	var configPath string
	if info.IsDir() {
		yamlPath := filepath.Join(path, "oracle.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "oracle.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no oracle.yaml or oracle.yml found in %s", path)
			}
		}
	} else {
		configPath = path
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	base := filepath.Dir(configPath)
	config.FrameworksDir = resolve(base, config.FrameworksDir)
	config.MappingsDir = resolve(base, config.MappingsDir)

	return &config, nil
}

// LoadFromDir searches for oracle.yaml starting from the given directory
// and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			// Reached root
			return nil, fmt.Errorf("no oracle.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

// resolve joins a relative path onto base, leaving absolute paths untouched.
func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
