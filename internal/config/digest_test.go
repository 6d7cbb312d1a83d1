package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
)

func TestDigest(t *testing.T) {
	a := Default()
	b := Default()

	da, err := a.Digest()
	require.NoError(t, err)
	assert.Len(t, da, 64)
	assert.Equal(t, a.ShortDigest(), b.ShortDigest())

	b.Policy.Target = 200
	assert.NotEqual(t, a.ShortDigest(), b.ShortDigest())

	c := Default()
	c.Runtime.Token = "one"
	d := Default()
	d.Runtime.Token = "two"
	assert.Equal(t, c.ShortDigest(), d.ShortDigest(), "secrets do not change the digest")
}

func TestWriteFileRoundTrip(t *testing.T) {
	opts := isolated(t)
	path := filepath.Join(t.TempDir(), "conf", DefaultFile)

	cfg := Default()
	cfg.Runtime.URL = "http://192.168.1.20:8765"
	cfg.Policy.Target = 175
	cfg.Sheets.SpreadsheetID = "sheet-xyz"
	require.NoError(t, cfg.WriteFile(path, false))

	opts.File = path
	loaded, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.20:8765", loaded.Runtime.URL)
	assert.Equal(t, 175, loaded.Policy.Target)
	assert.Equal(t, "sheet-xyz", loaded.Sheets.SpreadsheetID)
	assert.Equal(t, cfg.Tasks, loaded.Tasks)
	assert.Equal(t, cfg.Farm, loaded.Farm)
	assert.Empty(t, loaded.PolicyDefaults, "written files pin the policy")

	err = cfg.WriteFile(path, false)
	assert.True(t, kerrors.HasCode(err, kerrors.ErrCodeFileWriteFailed))
	require.NoError(t, cfg.WriteFile(path, true))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
