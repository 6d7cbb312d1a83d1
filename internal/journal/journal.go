// Package journal keeps a local copy of every finished run as JSON files,
// one per record, so history is available when the spreadsheet is not.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
)

// DefaultDir is used when journal.dir is not configured.
const DefaultDir = ".wavekeeper/journal"

// Entry describes one journal file.
type Entry struct {
	Kind      ledger.Kind   `json:"kind" yaml:"kind"`
	ID        string        `json:"id" yaml:"id"`
	Status    ledger.Status `json:"status" yaml:"status"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Path      string        `json:"path" yaml:"path"`
}

// Record is a loaded journal file. Exactly one of Run and Farm is set.
type Record struct {
	Entry `yaml:",inline"`
	Run  *ledger.RunResult  `json:"run,omitempty" yaml:"run,omitempty"`
	Farm *ledger.FarmResult `json:"farm,omitempty" yaml:"farm,omitempty"`
}

// Journal persists results under a directory.
type Journal struct {
	dir string
}

// New returns a journal rooted at dir. The directory is created on first save.
func New(dir string) *Journal {
	if dir == "" {
		dir = DefaultDir
	}
	return &Journal{dir: dir}
}

// Dir returns the journal directory.
func (j *Journal) Dir() string { return j.dir }

func (j *Journal) path(kind ledger.Kind, id string) string {
	return filepath.Join(j.dir, fmt.Sprintf("%s-%s.json", kind, id))
}

// SaveRun writes a daily or stamina result.
func (j *Journal) SaveRun(res *ledger.RunResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("run result is nil")
	}
	return j.write(j.path(res.Kind, res.ID), res)
}

// SaveFarm writes a farm iteration.
func (j *Journal) SaveFarm(res *ledger.FarmResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("farm result is nil")
	}
	return j.write(j.path(ledger.KindFarm, res.ID), res)
}

func (j *Journal) write(path string, v any) (string, error) {
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return "", kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to create journal directory", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal journal record: %w", err)
	}

	// Write to a temp file first so readers never see half a record.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to write journal record", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to write journal record", err)
	}
	return path, nil
}

// parseName splits "<kind>-<id>.json".
func parseName(name string) (ledger.Kind, string, bool) {
	if filepath.Ext(name) != ".json" {
		return "", "", false
	}
	kind, id, ok := strings.Cut(strings.TrimSuffix(name, ".json"), "-")
	if !ok || id == "" {
		return "", "", false
	}
	switch k := ledger.Kind(kind); k {
	case ledger.KindDaily, ledger.KindStamina, ledger.KindFarm:
		return k, id, true
	}
	return "", "", false
}

// List returns every entry, newest first. A missing directory is an empty
// journal. Unreadable files are skipped.
func (j *Journal) List() ([]Entry, error) {
	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, kerrors.Wrap(kerrors.ErrCodeFileReadFailed, "failed to read journal directory", err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		kind, id, ok := parseName(f.Name())
		if !ok {
			continue
		}
		rec, err := j.load(kind, id)
		if err != nil {
			continue
		}
		entries = append(entries, rec.Entry)
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].StartedAt.After(entries[b].StartedAt)
	})
	return entries, nil
}

// Load reads the record with the given id. A unique id prefix is accepted.
func (j *Journal) Load(id string) (*Record, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, kerrors.Wrap(kerrors.ErrCodeFileReadFailed, "failed to read journal directory", err)
	}

	var (
		matchKind ledger.Kind
		matchID   string
		matches   int
	)
	for _, f := range entries {
		kind, fid, ok := parseName(f.Name())
		if !ok {
			continue
		}
		if fid == id {
			return j.load(kind, fid)
		}
		if strings.HasPrefix(fid, id) {
			matchKind, matchID = kind, fid
			matches++
		}
	}

	switch {
	case matches == 1 && id != "":
		return j.load(matchKind, matchID)
	case matches > 1:
		return nil, fmt.Errorf("journal id %q is ambiguous (%d matches)", id, matches)
	default:
		return nil, kerrors.New(kerrors.ErrCodeFileNotFound, "journal record not found: "+id).
			WithSuggestion("Run 'wavekeeper history list' to see recorded runs")
	}
}

func (j *Journal) load(kind ledger.Kind, id string) (*Record, error) {
	path := j.path(kind, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kerrors.NewFileNotFoundError(path)
		}
		return nil, kerrors.Wrap(kerrors.ErrCodeFileReadFailed, "failed to read journal record", err)
	}

	rec := &Record{Entry: Entry{Kind: kind, ID: id, Path: path}}
	if kind == ledger.KindFarm {
		var farm ledger.FarmResult
		if err := json.Unmarshal(data, &farm); err != nil {
			return nil, kerrors.Wrap(kerrors.ErrCodeFileReadFailed, "corrupt journal record "+path, err)
		}
		rec.Farm = &farm
		rec.Status = farm.Status
		rec.StartedAt = farm.StartedAt
		return rec, nil
	}

	var run ledger.RunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, kerrors.Wrap(kerrors.ErrCodeFileReadFailed, "corrupt journal record "+path, err)
	}
	rec.Run = &run
	rec.Status = run.Status
	rec.StartedAt = run.StartedAt
	return rec, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (j *Journal) Delete(kind ledger.Kind, id string) error {
	if err := os.Remove(j.path(kind, id)); err != nil && !os.IsNotExist(err) {
		return kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to delete journal record", err)
	}
	return nil
}

// Prune deletes records that started before cutoff and returns how many
// were removed.
func (j *Journal) Prune(cutoff time.Time) (int, error) {
	entries, err := j.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !e.StartedAt.Before(cutoff) {
			continue
		}
		if err := j.Delete(e.Kind, e.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
