package cargocmd

// cargo.go provides utilities for executing cargo and locating its workspace.

import (
	"context"
	"os/exec"

	"al.essio.dev/pkg/shellescape"
)

// DefaultBinary is used when neither --cargo nor CARGO is set
const DefaultBinary = "cargo"

// Command creates an exec.Cmd for running cargo. The command is killed when
// ctx is done.
func Command(ctx context.Context, binary string, args ...string) *exec.Cmd {
	if binary == "" {
		binary = DefaultBinary
	}
	return exec.CommandContext(ctx, binary, args...)
}

// CommandLine renders a cargo invocation as a shell-quoted string for logs.
func CommandLine(binary string, args []string) string {
	if binary == "" {
		binary = DefaultBinary
	}
	return shellescape.QuoteCommand(append([]string{binary}, args...))
}
