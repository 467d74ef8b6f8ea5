package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/veldlang/veld/internal/config"
)

// Manifest is the optional veld.yaml project file. Command-line flags
// override its settings.
type Manifest struct {
	LibraryPaths  []string `yaml:"library-paths"`
	LinkLibraries []string `yaml:"link-libraries"`
	Std           string   `yaml:"std"`
	Output        string   `yaml:"output"`
}

// loadManifest reads the manifest next to the given source, walking up
// to the filesystem root. A missing manifest is not an error.
func loadManifest(start string) (*Manifest, error) {
	dir := start
	if info, err := os.Stat(start); err != nil || !info.IsDir() {
		dir = filepath.Dir(start)
	}
	for {
		path := filepath.Join(dir, config.ManifestFileName)
		data, err := os.ReadFile(path)
		if err == nil {
			var m Manifest
			if err := yaml.Unmarshal(data, &m); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			return &m, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}
