package arcconfig

// This file locates and loads the .arcconfig of the repository being built.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// FileName is the name of the arcanist project configuration file
const FileName = ".arcconfig"

// ErrNotFound is returned when no usable .arcconfig exists above the start directory.
var ErrNotFound = errors.New("could not find any directory with a usable .arcconfig")

// ArcConfig holds the settings read from .arcconfig
type ArcConfig struct {
	// Directory containing .arcconfig; reported paths are relative to it
	Location string
	// Value of phabricator.uri, empty when not set
	PhabricatorURI string
	// Value of repository.callsign, empty when not set
	Callsign string
}

type schema struct {
	PhabricatorURI string `json:"phabricator.uri"`
	Callsign       string `json:"repository.callsign"`
}

// Find walks up from startDir and returns the first .arcconfig that parses.
// Files that cannot be parsed are logged and skipped.
func Find(logger zerolog.Logger, startDir string) (*ArcConfig, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}

	for {
		path := filepath.Join(dir, FileName)
		cfg, err := load(path)
		switch {
		case err == nil:
			cfg.Location = dir
			return cfg, nil
		case errors.Is(err, os.ErrNotExist):
		default:
			logger.Warn().Err(err).Str("path", path).Msg("Failed to parse .arcconfig")
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotFound
		}
		dir = parent
	}
}

func load(path string) (*ArcConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &ArcConfig{
		PhabricatorURI: s.PhabricatorURI,
		Callsign:       s.Callsign,
	}, nil
}

// GitRoot returns the top level directory of the git repository containing dir.
func GitRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
