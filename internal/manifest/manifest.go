// Package manifest reads and writes the package.json of a template project:
// the prejst-config block and the dependency record holding the prejst
// version the project was last built with.
package manifest

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/piza/prejst/internal/errors"
)

const (
	// FileName is the manifest file looked up in the project root.
	FileName = "package.json"
	// ConfigKey is the manifest field holding the stored build configuration.
	ConfigKey = "prejst-config"
	// DependencyName is the dependency entry holding the required version.
	DependencyName = "prejst"

	dependenciesKey    = "dependencies"
	devDependenciesKey = "devDependencies"
)

// Manifest is a decoded package.json. Unknown fields are kept and written
// back unchanged.
type Manifest struct {
	path string
	data map[string]interface{}
}

// Default returns the manifest used when a project has none.
func Default(dir string) *Manifest {
	return &Manifest{
		path: filepath.Join(dir, FileName),
		data: map[string]interface{}{
			"name":    "template",
			"version": "1.0.0",
			dependenciesKey: map[string]interface{}{
				DependencyName: "1.0.0",
			},
			ConfigKey: map[string]interface{}{},
		},
	}
}

// Load reads dir/package.json. A missing or empty file yields Default.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(dir), nil
		}
		return nil, errors.ManifestError(path, "failed to read manifest", err)
	}

	if len(bytes.TrimSpace(content)) == 0 {
		return Default(dir), nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, errors.ManifestError(path, "failed to parse manifest", err)
	}
	if data == nil {
		return Default(dir), nil
	}

	return &Manifest{path: path, data: data}, nil
}

// Path returns the file the manifest is read from and saved to.
func (m *Manifest) Path() string {
	return m.path
}

// ProjectVersion returns the project's own version field.
func (m *Manifest) ProjectVersion() string {
	s, _ := m.data["version"].(string)
	return s
}

// dependencies returns the dependency record that carries the prejst entry:
// dependencies, or devDependencies for projects that only declare the latter.
func (m *Manifest) dependencies(create bool) map[string]interface{} {
	if deps, ok := m.data[dependenciesKey].(map[string]interface{}); ok {
		return deps
	}
	if deps, ok := m.data[devDependenciesKey].(map[string]interface{}); ok {
		return deps
	}
	if !create {
		return nil
	}
	deps := map[string]interface{}{}
	m.data[dependenciesKey] = deps
	return deps
}

// RequiredVersion returns the recorded prejst version, "" when absent.
func (m *Manifest) RequiredVersion() string {
	deps := m.dependencies(false)
	if deps == nil {
		return ""
	}
	s, _ := deps[DependencyName].(string)
	return s
}

// SetRequiredVersion records v as the prejst version of the project.
func (m *Manifest) SetRequiredVersion(v string) {
	m.dependencies(true)[DependencyName] = v
}

// Config returns a copy of the stored prejst-config block.
func (m *Manifest) Config() map[string]interface{} {
	block, _ := m.data[ConfigKey].(map[string]interface{})
	out := make(map[string]interface{}, len(block))
	for k, v := range block {
		out[k] = v
	}
	return out
}

// SetConfig replaces the prejst-config block.
func (m *Manifest) SetConfig(cfg map[string]interface{}) {
	m.data[ConfigKey] = cfg
}

// Marshal encodes the manifest with four-space indentation.
func (m *Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m.data, "", "    ")
}

// Save writes the manifest back to Path.
func (m *Manifest) Save() error {
	text, err := m.Marshal()
	if err != nil {
		return errors.ManifestError(m.path, "failed to encode manifest", err)
	}
	if err := os.WriteFile(m.path, text, 0o644); err != nil {
		return errors.ManifestError(m.path, "failed to write manifest", err)
	}
	return nil
}
