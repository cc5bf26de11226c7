package cargocmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestFindWorkspace_Member(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), `
[workspace]
members = ["crates/*"]

[workspace.metadata.phabricator]
uri = "https://phab.example.com"
`)
	member := filepath.Join(root, "crates", "demo")
	writeFile(t, filepath.Join(member, ManifestName), `
[package]
name = "demo"
version = "0.1.0"
`)

	ws, ok, err := FindWorkspace(filepath.Join(member, "src"), root)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, root, ws.Root)
	assert.Equal(t, "https://phab.example.com", ws.PhabricatorURI)
}

func TestFindWorkspace_SinglePackage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), `
[package]
name = "demo"
version = "0.1.0"

[package.metadata.phabricator]
uri = "https://phab.internal"
`)

	ws, ok, err := FindWorkspace(root, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, root, ws.Root)
	assert.Equal(t, "https://phab.internal", ws.PhabricatorURI)
}

func TestFindWorkspace_StopsAtRepositoryRoot(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, ManifestName), `
[workspace]
members = ["tools"]
`)
	repo := filepath.Join(home, "checkout")
	writeFile(t, filepath.Join(repo, ManifestName), `
[package]
name = "demo"
version = "0.1.0"
`)

	ws, ok, err := FindWorkspace(filepath.Join(repo, "src"), repo)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, repo, ws.Root)
}

func TestFindWorkspace_InvalidManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), `[package`)

	_, _, err := FindWorkspace(root, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestCommandLine(t *testing.T) {
	got := CommandLine("", []string{"test", "--message-format=json", "--", "-Z", "unstable-options", "it's"})
	assert.Equal(t, `cargo test --message-format=json -- -Z unstable-options 'it'"'"'s'`, got)
}
