package arcconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "rust", "crates", "demo")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(`{
  "phabricator.uri": "https://phab.example.com/",
  "repository.callsign": "DEMO"
}`), 0644))

	cfg, err := Find(zerolog.Nop(), nested)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Location)
	assert.Equal(t, "https://phab.example.com/", cfg.PhabricatorURI)
	assert.Equal(t, "DEMO", cfg.Callsign)
}

func TestFind_SkipsUnparsable(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(`{"phabricator.uri": "https://outer"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, FileName), []byte(`not json`), 0644))

	var logs bytes.Buffer
	cfg, err := Find(zerolog.New(&logs), nested)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Location)
	assert.Equal(t, "https://outer", cfg.PhabricatorURI)
	assert.Contains(t, logs.String(), "Failed to parse .arcconfig")
}
