package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
)

var base = time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC)

func run(kind ledger.Kind, started time.Time, status ledger.Status) *ledger.RunResult {
	res := ledger.New(kind, started)
	res.Status = status
	res.StaminaLeft = ledger.Int(12)
	res.Close(started.Add(5 * time.Minute))
	return res
}

func TestSaveAndLoadRun(t *testing.T) {
	j := New(t.TempDir())
	res := run(ledger.KindDaily, base, ledger.StatusSuccess)

	path, err := j.SaveRun(res)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(j.Dir(), "daily-"+res.ID+".json"), path)

	rec, err := j.Load(res.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Run)
	assert.Nil(t, rec.Farm)
	assert.Equal(t, ledger.KindDaily, rec.Kind)
	assert.Equal(t, ledger.StatusSuccess, rec.Status)
	assert.Equal(t, 12, *rec.Run.StaminaLeft)
	assert.True(t, base.Equal(rec.StartedAt))
}

func TestSaveAndLoadFarm(t *testing.T) {
	j := New(t.TempDir())
	farm := ledger.NewFarm(base)
	farm.FightCount = ledger.Int(30)
	farm.Succeed()
	farm.Close(base.Add(time.Hour))

	_, err := j.SaveFarm(farm)
	require.NoError(t, err)

	rec, err := j.Load(farm.ID[:8])
	require.NoError(t, err, "unique prefixes resolve")
	require.NotNil(t, rec.Farm)
	assert.Equal(t, 30, *rec.Farm.FightSpeed)
}

func TestListNewestFirst(t *testing.T) {
	j := New(t.TempDir())
	old := run(ledger.KindStamina, base, ledger.StatusSkipped)
	mid := run(ledger.KindDaily, base.Add(time.Hour), ledger.StatusFailed)
	recent := ledger.NewFarm(base.Add(2 * time.Hour))
	recent.Close(base.Add(3 * time.Hour))

	for _, r := range []*ledger.RunResult{old, mid} {
		_, err := j.SaveRun(r)
		require.NoError(t, err)
	}
	_, err := j.SaveFarm(recent)
	require.NoError(t, err)

	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(j.Dir(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(j.Dir(), "daily-broken.json"), []byte("{"), 0o644))

	entries, err := j.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, recent.ID, entries[0].ID)
	assert.Equal(t, mid.ID, entries[1].ID)
	assert.Equal(t, old.ID, entries[2].ID)
	assert.Equal(t, ledger.StatusFailed, entries[0].Status, "unclosed farm iterations are failed")
}

func TestListMissingDir(t *testing.T) {
	entries, err := New(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadNotFound(t *testing.T) {
	_, err := New(t.TempDir()).Load("missing")
	require.Error(t, err)
	assert.True(t, kerrors.HasCode(err, kerrors.ErrCodeFileNotFound))
}

func TestPrune(t *testing.T) {
	j := New(t.TempDir())
	old := run(ledger.KindDaily, base, ledger.StatusSuccess)
	fresh := run(ledger.KindDaily, base.Add(48*time.Hour), ledger.StatusSuccess)
	for _, r := range []*ledger.RunResult{old, fresh} {
		_, err := j.SaveRun(r)
		require.NoError(t, err)
	}

	n, err := j.Prune(base.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := j.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh.ID, entries[0].ID)
}

func TestSaveNil(t *testing.T) {
	j := New(t.TempDir())
	_, err := j.SaveRun(nil)
	assert.Error(t, err)
	_, err = j.SaveFarm(nil)
	assert.Error(t, err)
}
