// Package manifest handles bfvm.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file bfvm looks for.
const FileName = "bfvm.toml"

// Manifest represents a bfvm.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Run     RunConfig   `toml:"run"`
	Store   StoreConfig `toml:"store"`

	// Dir is the directory containing the bfvm.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// RunConfig configures execution limits and inputs.
type RunConfig struct {
	TapeSize    int    `toml:"tape-size"`
	OutputLimit int    `toml:"output-limit"`
	InputFile   string `toml:"input-file"`
	Entry       string `toml:"entry"`
}

// StoreConfig configures the program store location.
type StoreConfig struct {
	Path string `toml:"path"`
}

// Load parses a bfvm.toml file from the given directory and applies
// defaults for unset limits.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("manifest: load %s: %w", path, err)
	}
	m.Dir = dir
	m.applyDefaults()
	return &m, nil
}

// Find walks up from start looking for a bfvm.toml. It returns nil (no
// error) when none exists.
func Find(start string) (*Manifest, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", start, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Run.TapeSize == 0 {
		m.Run.TapeSize = 30000
	}
	if m.Run.OutputLimit == 0 {
		m.Run.OutputLimit = 64 * 1024
	}
}

// EntryPath returns the configured entry program resolved against the
// manifest directory, or "" when none is set.
func (m *Manifest) EntryPath() string {
	if m.Run.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Run.Entry) {
		return m.Run.Entry
	}
	return filepath.Join(m.Dir, m.Run.Entry)
}

// StorePath returns the configured store path resolved against the
// manifest directory, or "" when none is set.
func (m *Manifest) StorePath() string {
	if m.Store.Path == "" {
		return ""
	}
	if filepath.IsAbs(m.Store.Path) {
		return m.Store.Path
	}
	return filepath.Join(m.Dir, m.Store.Path)
}
