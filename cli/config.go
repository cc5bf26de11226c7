package cli

// This file resolves the run context from flags, environment,
// .arcconfig and Cargo.toml before anything is spawned.

import (
	"errors"
	"fmt"
	"os"

	"github.com/cargo-phabricator/cargo-phabricator/arcconfig"
	cargocmd "github.com/cargo-phabricator/cargo-phabricator/cli/cargo"
	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/rs/zerolog"
)

// settings are the raw values taken from flags and environment
type settings struct {
	PhabricatorURI string
	Token          string
	BuildPHID      string
	Finalize       bool
}

func (a *App) workingDir() (string, error) {
	if a.workDir != "" {
		return a.workDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// resolveRunContext builds the RunContext for sub. Missing or invalid
// settings yield a *model.ConfigError.
func resolveRunContext(logger zerolog.Logger, workDir string, sub model.Subcommand, s settings) (*model.RunContext, error) {
	repoRoot := ""
	arcURI := ""

	cfg, err := arcconfig.Find(logger, workDir)
	switch {
	case err == nil:
		repoRoot = cfg.Location
		arcURI = cfg.PhabricatorURI
		logger.Debug().Str("path", cfg.Location).Str("callsign", cfg.Callsign).Msg("Using .arcconfig")
	case errors.Is(err, arcconfig.ErrNotFound):
		logger.Debug().Msg("No .arcconfig found")
	default:
		return nil, fmt.Errorf("failed to locate .arcconfig: %w", err)
	}

	if repoRoot == "" {
		if root, err := arcconfig.GitRoot(workDir); err == nil {
			repoRoot = root
		} else {
			logger.Debug().Err(err).Msg("Falling back to the working directory as repository root")
			repoRoot = workDir
		}
	}

	ws, ok, err := cargocmd.FindWorkspace(workDir, repoRoot)
	if err != nil {
		return nil, &model.ConfigError{Setting: cargocmd.ManifestName, Reason: err.Error()}
	}
	workspaceRoot := repoRoot
	if ok {
		workspaceRoot = ws.Root
	} else {
		logger.Warn().Str("dir", workDir).Msg("No Cargo.toml found, reporting paths relative to the repository root")
	}

	uri := s.PhabricatorURI
	source := "flag"
	if uri == "" && arcURI != "" {
		uri, source = arcURI, arcconfig.FileName
	}
	if uri == "" && ws.PhabricatorURI != "" {
		uri, source = ws.PhabricatorURI, cargocmd.ManifestName
	}

	rc, err := model.NewRunContext(model.RunContextOptions{
		Subcommand:      sub,
		BuildTargetPHID: s.BuildPHID,
		Token:           s.Token,
		PhabricatorURI:  uri,
		RepositoryRoot:  repoRoot,
		WorkspaceRoot:   workspaceRoot,
		Finalize:        s.Finalize,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("uri", rc.PhabricatorURI()).
		Str("uri_source", source).
		Str("build_target", rc.BuildTargetPHID()).
		Str("repository_root", rc.RepositoryRoot()).
		Str("workspace_root", rc.WorkspaceRoot()).
		Msg("Resolved run context")
	return rc, nil
}
