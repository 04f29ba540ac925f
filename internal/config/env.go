package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvCASRoot   = "INGESTCAS_CAS_ROOT"
	EnvProxy     = "INGESTCAS_PROXY"
	EnvUserAgent = "INGESTCAS_USER_AGENT"
	EnvHash      = "INGESTCAS_HASH"
	EnvDBDir     = "INGESTCAS_DB_DIR"
)

// DefaultEnvFile is the dotenv file read from the current directory.
const DefaultEnvFile = ".env"

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// ReadEnvFile reads a dotenv file without touching the process
// environment. A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

// EnvLookup returns a LookupFunc that prefers the process environment and
// falls back to dotenv values.
func EnvLookup(dotenv map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// ApplyEnv layers environment overrides over c. Empty values are ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvCASRoot, &c.CASRoot)
	set(EnvProxy, &c.ProxyAddress)
	set(EnvUserAgent, &c.UserAgent)
	set(EnvHash, &c.HashAlgorithm)
	set(EnvDBDir, &c.DBDir)
}
