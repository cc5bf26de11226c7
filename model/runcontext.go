package model

import (
	"fmt"
	"strings"
)

// Subcommand is the kind of cargo invocation being wrapped
type Subcommand string

const (
	SubcommandBuild Subcommand = "build"
	SubcommandLint  Subcommand = "lint"
	SubcommandCheck Subcommand = "check"
	SubcommandTest  Subcommand = "test"
	SubcommandFmt   Subcommand = "fmt"
)

// Subcommands lists every supported subcommand in help order
var Subcommands = []Subcommand{
	SubcommandBuild,
	SubcommandLint,
	SubcommandCheck,
	SubcommandTest,
	SubcommandFmt,
}

// CargoName returns the cargo subcommand that implements s.
func (s Subcommand) CargoName() string {
	if s == SubcommandLint {
		return "clippy"
	}
	return string(s)
}

// Valid reports whether s is a supported subcommand.
func (s Subcommand) Valid() bool {
	for _, known := range Subcommands {
		if s == known {
			return true
		}
	}
	return false
}

// ConfigError is returned when a required setting is missing or invalid.
// It is always raised before the build tool is spawned.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Setting, e.Reason)
}

// RunContextOptions carries the raw settings a RunContext is built from
type RunContextOptions struct {
	Subcommand Subcommand
	// PHID of the Harbormaster build target receiving results
	BuildTargetPHID string
	// Conduit API token
	Token string
	// Base URI of the Phabricator install
	PhabricatorURI string
	// Directory paths are reported relative to (where .arcconfig lives)
	RepositoryRoot string
	// Directory cargo reports local file names relative to
	WorkspaceRoot string
	// Send pass/fail instead of work so the build target is closed
	Finalize bool
}

// RunContext is the immutable per-invocation context shared by every stage.
// It is built once by NewRunContext and only exposes read accessors.
type RunContext struct {
	subcommand      Subcommand
	buildTargetPHID string
	token           string
	phabricatorURI  string
	repositoryRoot  string
	workspaceRoot   string
	finalize        bool
}

// NewRunContext validates opts and returns the context for one invocation.
func NewRunContext(opts RunContextOptions) (*RunContext, error) {
	if !opts.Subcommand.Valid() {
		return nil, &ConfigError{Setting: "subcommand", Reason: fmt.Sprintf("%q is not supported", opts.Subcommand)}
	}
	if strings.TrimSpace(opts.Token) == "" {
		return nil, &ConfigError{Setting: "conduit token", Reason: "is not set (--conduit-token or CONDUIT_TOKEN)"}
	}
	if strings.TrimSpace(opts.BuildTargetPHID) == "" {
		return nil, &ConfigError{Setting: "build PHID", Reason: "is not set (--build-phid or BUILD_PHID)"}
	}
	if strings.TrimSpace(opts.PhabricatorURI) == "" {
		return nil, &ConfigError{Setting: "phabricator URI", Reason: "is not set (--phabricator-uri, PHABRICATOR_URI or phabricator.uri in .arcconfig)"}
	}

	workspaceRoot := opts.WorkspaceRoot
	if workspaceRoot == "" {
		workspaceRoot = opts.RepositoryRoot
	}

	return &RunContext{
		subcommand:      opts.Subcommand,
		buildTargetPHID: strings.TrimSpace(opts.BuildTargetPHID),
		token:           strings.TrimSpace(opts.Token),
		phabricatorURI:  strings.TrimRight(strings.TrimSpace(opts.PhabricatorURI), "/"),
		repositoryRoot:  opts.RepositoryRoot,
		workspaceRoot:   workspaceRoot,
		finalize:        opts.Finalize,
	}, nil
}

func (c *RunContext) Subcommand() Subcommand  { return c.subcommand }
func (c *RunContext) BuildTargetPHID() string { return c.buildTargetPHID }
func (c *RunContext) Token() string           { return c.token }
func (c *RunContext) PhabricatorURI() string  { return c.phabricatorURI }
func (c *RunContext) RepositoryRoot() string  { return c.repositoryRoot }
func (c *RunContext) WorkspaceRoot() string   { return c.workspaceRoot }
func (c *RunContext) Finalize() bool          { return c.finalize }
