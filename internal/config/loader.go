package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the sources file looked up in the current directory.
	DefaultConfigFile = ".ingestcas.yaml"

	// XDGConfigFile is the sources file name inside XDGConfigDir.
	XDGConfigFile = "config.yaml"
)

// LoadSourcesFile loads the sources file at path.
// If the file does not exist, it returns ErrConfigNotFound. Unknown keys
// are rejected so that typos do not silently drop sources. A relative
// storage.cas_root is resolved against the file's directory.
func LoadSourcesFile(path string) (*File, error) {
	fh, err := os.Open(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	defer fh.Close()

	var f File
	dec := yaml.NewDecoder(fh)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if f.Storage.CASRoot != "" && !filepath.IsAbs(f.Storage.CASRoot) {
		abs, err := filepath.Abs(filepath.Join(filepath.Dir(path), f.Storage.CASRoot))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cas_root: %w", err)
		}
		f.Storage.CASRoot = abs
	}

	f.applyDefaults()
	return &f, nil
}

// FindConfigFile searches for the sources file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .ingestcas.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), XDGConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// ApplyFile layers the sources file over c. Only values the file sets
// are applied.
func (c *Config) ApplyFile(path string, f *File) {
	c.ConfigFilePath = path
	c.Sources = f
	if f.Storage.CASRoot != "" {
		c.CASRoot = f.Storage.CASRoot
	}
	if f.Storage.HashAlgorithm != "" {
		c.HashAlgorithm = f.Storage.HashAlgorithm
	}
}
