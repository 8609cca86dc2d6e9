// Package config reads and writes the user configuration file
// ($XDG_CONFIG_HOME/go-captions/config.toml).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config keys.
const (
	KeyLanguage  = "language"
	KeyProvider  = "provider"
	KeyOutputDir = "output-dir"
)

// Keys lists every supported key in display order.
var Keys = []string{KeyLanguage, KeyProvider, KeyOutputDir}

// Environment variable fallbacks.
const (
	EnvLanguage  = "CAPTIONS_LANGUAGE"
	EnvProvider  = "CAPTIONS_PROVIDER"
	EnvOutputDir = "CAPTIONS_OUTPUT_DIR"
)

var (
	ErrInvalidKey   = errors.New("invalid config key")
	ErrNotDirectory = errors.New("path is not a directory")
	ErrNotWritable  = errors.New("directory is not writable")
)

// Config holds user configuration. Empty fields mean "not set".
type Config struct {
	Language  string `toml:"language,omitempty"`
	Provider  string `toml:"provider,omitempty"`
	OutputDir string `toml:"output-dir,omitempty"`
}

// field returns a pointer to the field backing key.
func (c *Config) field(key string) (*string, error) {
	switch key {
	case KeyLanguage:
		return &c.Language, nil
	case KeyProvider:
		return &c.Provider, nil
	case KeyOutputDir:
		return &c.OutputDir, nil
	default:
		return nil, fmt.Errorf("%w: %q (valid keys: %s)", ErrInvalidKey, key, strings.Join(Keys, ", "))
	}
}

// Get returns the value of key.
func (c Config) Get(key string) (string, error) {
	f, err := c.field(key)
	if err != nil {
		return "", err
	}
	return *f, nil
}

// Set assigns value to key.
func (c *Config) Set(key, value string) error {
	f, err := c.field(key)
	if err != nil {
		return err
	}
	*f = strings.TrimSpace(value)
	return nil
}

// Map returns the set keys and their values.
func (c Config) Map() map[string]string {
	m := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if v, _ := c.Get(k); v != "" {
			m[k] = v
		}
	}
	return m
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-captions.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "go-captions"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "go-captions"), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.toml"), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// A missing file is not an error.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}

	cfg, err := parseFile(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	fallback(&cfg.Language, EnvLanguage)
	fallback(&cfg.Provider, EnvProvider)
	fallback(&cfg.OutputDir, EnvOutputDir)
	return cfg, nil
}

func fallback(field *string, env string) {
	if *field == "" {
		*field = strings.TrimSpace(os.Getenv(env))
	}
}

// parseFile decodes a TOML config file. Unknown keys are ignored.
func parseFile(p string) (Config, error) {
	data, err := os.ReadFile(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", p, err)
	}
	return cfg, nil
}

// Save writes a single key to the config file, keeping the other keys.
// Creates the config directory and file if they don't exist.
// An empty value unsets the key.
func Save(key, value string) error {
	if !slices.Contains(Keys, key) {
		return fmt.Errorf("%w: %q (valid keys: %s)", ErrInvalidKey, key, strings.Join(Keys, ", "))
	}

	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	cfg, err := parseFile(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	return writeFile(p, cfg)
}

// writeFile encodes cfg to a temp file and renames it over p.
func writeFile(p string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get reads a single value from the config file, ignoring the environment.
// Returns an empty string if the key is unset.
func Get(key string) (string, error) {
	cfg, err := readFileOrEmpty()
	if err != nil {
		return "", err
	}
	return cfg.Get(key)
}

// List returns every set key from the config file.
func List() (map[string]string, error) {
	cfg, err := readFileOrEmpty()
	if err != nil {
		return nil, err
	}
	return cfg.Map(), nil
}

func readFileOrEmpty() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}
	cfg, err := parseFile(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return cfg, nil
}

// EnsureOutputDir checks that d can hold caption files, creating it when
// missing. A leading ~ is expanded.
func EnsureOutputDir(d string) error {
	if d == "" {
		return errors.New("output-dir cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot access directory: %w", err)
		}
		if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
			return fmt.Errorf("cannot create directory: %w", err)
		}
		return nil
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	}

	// Probe writability with a temp file.
	f, err := os.CreateTemp(d, ".go-captions-write-test-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name) // Best effort cleanup, ignore error
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[1:])
	}
	return p
}
