package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for bt.
type Config struct {
	HostID   string         `toml:"host_id"`
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Restic   ResticConfig   `toml:"restic"`
	Database DatabaseConfig `toml:"database"`
	Targets  []TargetConfig `toml:"targets"`
}

// ResticConfig describes how to run restic and which repository to use.
type ResticConfig struct {
	Binary       string           `toml:"binary"`        // defaults to "restic" on PATH
	PasswordFile string           `toml:"password_file"` // age-encrypted repository password
	IdentityFile string           `toml:"identity_file"` // age identity that decrypts PasswordFile
	Repository   RepositoryConfig `toml:"repository"`
}

// RepositoryConfig represents the location of a restic repository.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RepositoryConfig struct {
	Type string `toml:"type"` // "local", "b2", or "s3"

	// Local-specific fields (only used when Type == "local")
	Path string `toml:"path,omitempty"`

	// Bucket fields (used when Type == "b2" or "s3")
	Bucket string `toml:"bucket,omitempty"`
	Prefix string `toml:"prefix,omitempty"`

	// B2-specific fields
	AccountID  string `toml:"account_id,omitempty"`
	AccountKey string `toml:"account_key,omitempty"`

	// S3-specific fields. Credentials are optional; the AWS default chain is used when empty.
	Endpoint        string `toml:"endpoint,omitempty"`
	Region          string `toml:"region,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
}

// DatabaseConfig represents configuration for the run-history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// TargetConfig is a named set of folders to back up.
type TargetConfig struct {
	Name        string   `toml:"name"`
	Folders     []string `toml:"folders"`
	Exclusions  []string `toml:"exclusions"`
	ExcludeFile string   `toml:"exclude_file,omitempty"` // extra exclusions, one per line
	Tags        []string `toml:"tags"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Restic: ResticConfig{
			Binary:       "restic",
			PasswordFile: filepath.Join(baseDir, "keys", "repo-password.age"),
			IdentityFile: filepath.Join(baseDir, "keys", "bt.key"),
			Repository: RepositoryConfig{
				Type: "local",
				Path: filepath.Join(baseDir, "repo"),
			},
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Target returns the target with the given name. An empty name selects the
// first configured target.
func (c *Config) Target(name string) (*TargetConfig, error) {
	if len(c.Targets) == 0 {
		return nil, fmt.Errorf("no targets configured")
	}
	if name == "" {
		return &c.Targets[0], nil
	}
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i], nil
		}
	}
	return nil, fmt.Errorf("unknown target: %s", name)
}

// Validate checks the parts of the config that can be checked without
// touching the filesystem.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("target without a name")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate target name: %s", t.Name)
		}
		seen[t.Name] = true
		if len(t.Folders) == 0 {
			return fmt.Errorf("target %s has no folders", t.Name)
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
