package cargocmd

// manifest.go locates the cargo workspace root and reads the
// phabricator defaults kept in Cargo.toml metadata.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is cargo's manifest file
const ManifestName = "Cargo.toml"

// Workspace describes the cargo workspace a directory belongs to
type Workspace struct {
	// Directory cargo reports local file names relative to
	Root string
	// phabricator.uri from workspace or package metadata, empty when not set
	PhabricatorURI string
}

type phabricatorMetadata struct {
	URI string `toml:"uri"`
}

type metadata struct {
	Phabricator phabricatorMetadata `toml:"phabricator"`
}

type manifest struct {
	Package *struct {
		Name     string   `toml:"name"`
		Metadata metadata `toml:"metadata"`
	} `toml:"package"`
	Workspace *struct {
		Members  []string `toml:"members"`
		Metadata metadata `toml:"metadata"`
	} `toml:"workspace"`
}

// FindWorkspace walks up from startDir, never above stopDir when it is set.
// The nearest manifest declaring a [workspace] wins; otherwise the nearest
// manifest is the root. ok is false when no Cargo.toml was found.
func FindWorkspace(startDir, stopDir string) (ws Workspace, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return Workspace{}, false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if stopDir != "" {
		if stopDir, err = filepath.Abs(stopDir); err != nil {
			return Workspace{}, false, fmt.Errorf("failed to resolve stop directory: %w", err)
		}
	}

	for {
		candidate := filepath.Join(dir, ManifestName)
		m, err := readManifest(candidate)
		switch {
		case err == nil:
			if !ok {
				ws = Workspace{Root: dir}
				ok = true
			}
			if m.Package != nil && ws.PhabricatorURI == "" {
				ws.PhabricatorURI = m.Package.Metadata.Phabricator.URI
			}
			if m.Workspace != nil {
				ws.Root = dir
				if uri := m.Workspace.Metadata.Phabricator.URI; uri != "" {
					ws.PhabricatorURI = uri
				}
				return ws, true, nil
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Workspace{}, false, err
		}

		parent := filepath.Dir(dir)
		if parent == dir || dir == stopDir {
			break
		}
		dir = parent
	}
	return ws, ok, nil
}

func readManifest(path string) (*manifest, error) {
	var m manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &m, nil
}
