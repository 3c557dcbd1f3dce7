package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ManifestName is the control file at the bundle root.
	ManifestName = "manifest.json"
	// FilesDir holds the bundled binaries.
	FilesDir = "files"
)

// Manifest is the bundle's control document.
type Manifest struct {
	Collection         string                      `json:"collection"`
	ExportedAt         time.Time                   `json:"exportedAt"`
	Items              []map[string]any            `json:"items"`
	RelatedCollections map[string][]map[string]any `json:"relatedCollections,omitempty"`
}

// WriteManifest stores the manifest at the bundle root.
func WriteManifest(dir string, manifest *Manifest) error {
	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), encoded, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest from a bundle directory.
func ReadManifest(dir string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.Collection == "" {
		return nil, fmt.Errorf("manifest names no collection")
	}
	return &manifest, nil
}
