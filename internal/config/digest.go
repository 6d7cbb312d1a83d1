package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
)

// Digest is a blake3 hash of the effective configuration with secrets
// masked. Runs logged with the same digest used the same settings.
func (c *Config) Digest() (string, error) {
	canonical, err := json.Marshal(c.Redacted())
	if err != nil {
		return "", fmt.Errorf("canonicalize config: %w", err)
	}
	hasher := blake3.New()
	if _, err := hasher.Write(canonical); err != nil {
		return "", fmt.Errorf("hash config: %w", err)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// ShortDigest is the first 12 hex digits of Digest, or "unknown".
func (c *Config) ShortDigest() string {
	d, err := c.Digest()
	if err != nil || len(d) < 12 {
		return "unknown"
	}
	return d[:12]
}

// WriteFile writes c as YAML. An existing file is only replaced when
// overwrite is set.
func (c *Config) WriteFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return kerrors.New(kerrors.ErrCodeFileWriteFailed, "refusing to overwrite "+path).
				WithSuggestion("Pass --force to replace the existing file")
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to encode configuration", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to create "+dir, err)
		}
	}
	header := []byte("# wavekeeper configuration. Secrets are better kept in .env.\n")
	if err := os.WriteFile(path, append(header, data...), 0o600); err != nil {
		return kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to write "+path, err)
	}
	return nil
}
