package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
)

// loadTOML reads the global config file. A missing file yields nil, nil.
func loadTOML(path string) (*Config, error) {
	data, err := readOptional(path)
	if err != nil || data == nil {
		return nil, err
	}

	var parsed Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, ramerrors.ConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return &parsed, nil
}

// loadYAML reads the project config file. A missing file yields nil, nil.
func loadYAML(path string) (*Config, error) {
	data, err := readOptional(path)
	if err != nil || data == nil {
		return nil, err
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, ramerrors.ConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return &parsed, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case errors.Is(err, os.ErrPermission):
		return nil, ramerrors.New(ramerrors.ErrCodeConfigPermission, fmt.Sprintf("cannot read %s", path), err)
	default:
		return nil, ramerrors.New(ramerrors.ErrCodeConfigNotFound, fmt.Sprintf("cannot read %s", path), err)
	}
}

// WriteDefaultTOML seeds dir/config.toml with the defaults unless the file exists.
// It reports whether a file was written.
func WriteDefaultTOML(dir string) (bool, error) {
	path := filepath.Join(dir, GlobalConfigFile)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, ramerrors.New(ramerrors.ErrCodeConfigPermission, fmt.Sprintf("cannot create %s", dir), err)
	}

	var buf bytes.Buffer
	buf.WriteString("# RAM configuration. Values here apply to every project.\n")
	if err := toml.NewEncoder(&buf).Encode(New()); err != nil {
		return false, fmt.Errorf("failed to encode default config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return false, ramerrors.New(ramerrors.ErrCodeConfigPermission, fmt.Sprintf("cannot write %s", path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, ramerrors.New(ramerrors.ErrCodeConfigPermission, fmt.Sprintf("cannot write %s", path), err)
	}
	return true, nil
}

// WriteYAML writes a project config file.
func (c Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
