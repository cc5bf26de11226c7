package cli

// This file contains argument processing utilities for forcing cargo and
// the libtest harness into their JSON output modes.

import (
	"strings"

	"github.com/cargo-phabricator/cargo-phabricator/model"
)

func removeFirstDashDash(in []string) []string {
	if len(in) > 0 && in[0] == "--" {
		return in[1:]
	}
	return in
}

// splitHarnessArgs separates cargo's own arguments from those after "--",
// which cargo forwards to the test harness (or rustfmt).
func splitHarnessArgs(args []string) (cargoArgs, harnessArgs []string, separated bool) {
	for i, arg := range args {
		if arg == "--" {
			return args[:i], args[i+1:], true
		}
	}
	return args, nil, false
}

// stripNonJSONFlag removes every occurrence of flag (in both "--flag value"
// and "--flag=value" form) whose value is not a JSON mode. It reports whether
// a JSON value was kept.
func stripNonJSONFlag(args []string, flag string) (kept []string, hasJSON bool) {
	kept = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == flag {
			if i+1 < len(args) && strings.HasPrefix(args[i+1], "json") {
				kept = append(kept, arg, args[i+1])
				hasJSON = true
			}
			i++
			continue
		}

		if value, ok := strings.CutPrefix(arg, flag+"="); ok {
			if strings.HasPrefix(value, "json") {
				kept = append(kept, arg)
				hasJSON = true
			}
			continue
		}

		kept = append(kept, arg)
	}
	return kept, hasJSON
}

func contains(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

// structuredArgs builds the full cargo argument list for sub, keeping the
// user's arguments and enabling machine readable output.
func structuredArgs(sub model.Subcommand, userArgs []string) []string {
	cargoArgs, harnessArgs, separated := splitHarnessArgs(userArgs)

	cargoArgs, hasJSON := stripNonJSONFlag(cargoArgs, "--message-format")
	if !hasJSON {
		cargoArgs = append(cargoArgs, "--message-format=json")
	}

	args := make([]string, 0, len(userArgs)+8)
	args = append(args, sub.CargoName())
	args = append(args, cargoArgs...)

	if sub == model.SubcommandTest {
		harnessArgs, hasJSON = stripNonJSONFlag(harnessArgs, "--format")
		if !hasJSON {
			if !contains(harnessArgs, "unstable-options") && !contains(harnessArgs, "-Zunstable-options") {
				harnessArgs = append(harnessArgs, "-Z", "unstable-options")
			}
			harnessArgs = append(harnessArgs, "--format", "json")
		}
		if !contains(harnessArgs, "--report-time") {
			harnessArgs = append(harnessArgs, "--report-time")
		}
		separated = true
	}

	if separated {
		args = append(args, "--")
		args = append(args, harnessArgs...)
	}
	return args
}
