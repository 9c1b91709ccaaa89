package watchlist

import (
	"encoding/json"
	"io/fs"
	"os"
	"sync"

	"github.com/google/renameio/v2"

	"stockalert/pkg/errors"
	"stockalert/pkg/logger"
)

const filePerm = 0o644

// errUnchanged aborts a mutation that turned out to be a no-op
var errUnchanged = errors.New("watch list unchanged")

// Load reads the watch list file. A missing file wraps ErrNotFound and
// malformed content wraps ErrInvalidInput; callers treat both as fatal at startup.
// ISINs are normalized so entries differing only in case count as duplicates.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(errors.ErrNotFound, "config file %s", path)
		}
		return nil, errors.Wrapf(err, "read config file %s", path)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "parse config file %s: %v", path, err)
	}
	for i := range entries {
		entries[i].ISIN = NormalizeISIN(entries[i].ISIN)
	}
	if err := checkUnique(entries); err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	if entries == nil {
		entries = []Entry{}
	}

	return entries, nil
}

// Save writes the full list as indented JSON, atomically replacing the previous file
func Save(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode watch list")
	}
	data = append(data, '\n')

	if err := renameio.WriteFile(path, data, filePerm); err != nil {
		return errors.Wrapf(err, "write config file %s", path)
	}
	return nil
}

// Store is the shared watch list. Every read and write goes through one mutex and
// every successful mutation is written to disk before it becomes visible.
type Store struct {
	mu      sync.Mutex
	path    string
	entries []Entry
	log     *logger.Logger
}

// NewStore wraps already loaded entries
func NewStore(path string, entries []Entry) *Store {
	return &Store{
		path:    path,
		entries: cloneEntries(entries),
		log:     logger.Get().With("component", "watchlist_store"),
	}
}

// Open loads the file at path and returns a store backed by it
func Open(path string) (*Store, error) {
	entries, err := Load(path)
	if err != nil {
		return nil, err
	}

	s := NewStore(path, entries)
	s.log.Infow("Loaded watch list", "path", path, "isins", len(entries))
	return s, nil
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of all entries in insertion order
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.entries)
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Mutate applies fn to a working copy of the list under the lock and persists the result.
// If fn or the save fails the store is left exactly as it was.
func (s *Store) Mutate(fn func(entries []Entry) ([]Entry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(cloneEntries(s.entries))
	if err != nil {
		return err
	}
	if err := checkUnique(next); err != nil {
		return err
	}

	if err := Save(s.path, next); err != nil {
		return errors.Wrap(err, "persist watch list")
	}

	s.entries = next
	s.log.Debugw("Saved watch list", "path", s.path, "isins", len(next))
	return nil
}

// Persist writes the current state to disk without changing it
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Save(s.path, s.entries); err != nil {
		return errors.Wrap(err, "persist watch list")
	}
	s.log.Infow("Saved watch list", "path", s.path, "isins", len(s.entries))
	return nil
}

// Add inserts a new active entry without thresholds
func (s *Store) Add(isin string) error {
	isin = NormalizeISIN(isin)
	if err := ValidateISIN(isin); err != nil {
		return err
	}

	err := s.Mutate(func(entries []Entry) ([]Entry, error) {
		if indexOf(entries, isin) >= 0 {
			return nil, errors.Wrapf(errors.ErrAlreadyExists, "ISIN %s", isin)
		}
		return append(entries, Entry{ISIN: isin, Active: true}), nil
	})
	if err != nil {
		return err
	}

	s.log.Infow("ISIN added", "isin", isin)
	return nil
}

// Update replaces thresholds and the active flag of an existing entry
func (s *Store) Update(isin string, upper, lower *float64, active bool) error {
	err := s.Mutate(func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, isin)
		if i < 0 {
			return nil, errors.Wrapf(errors.ErrNotFound, "ISIN %s", isin)
		}
		entries[i].UpperThreshold = copyFloat(upper)
		entries[i].LowerThreshold = copyFloat(lower)
		entries[i].Active = active
		return entries, nil
	})
	if err != nil {
		return err
	}

	s.log.Infow("ISIN updated", "isin", isin, "upper", upper, "lower", lower, "active", active)
	return nil
}

// SetThresholds replaces both thresholds of an existing entry, leaving the active flag alone
func (s *Store) SetThresholds(isin string, upper, lower *float64) error {
	err := s.Mutate(func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, isin)
		if i < 0 {
			return nil, errors.Wrapf(errors.ErrNotFound, "ISIN %s", isin)
		}
		entries[i].UpperThreshold = copyFloat(upper)
		entries[i].LowerThreshold = copyFloat(lower)
		return entries, nil
	})
	if err != nil {
		return err
	}

	s.log.Infow("Thresholds updated", "isin", isin, "upper", upper, "lower", lower)
	return nil
}

// Delete removes the entry; it reports false when the ISIN was not present
func (s *Store) Delete(isin string) (bool, error) {
	isin = NormalizeISIN(isin)

	err := s.Mutate(func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, isin)
		if i < 0 {
			return nil, errUnchanged
		}
		return append(entries[:i], entries[i+1:]...), nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.log.Infow("ISIN deleted", "isin", isin)
	return true, nil
}

// Deactivate clears the active flag of every listed ISIN in one write.
// Only the flag is touched, so concurrent threshold edits survive. Unknown ISINs are ignored.
func (s *Store) Deactivate(isins []string) (int, error) {
	if len(isins) == 0 {
		return 0, nil
	}

	wanted := make(map[string]struct{}, len(isins))
	for _, isin := range isins {
		wanted[isin] = struct{}{}
	}

	changed := 0
	err := s.Mutate(func(entries []Entry) ([]Entry, error) {
		changed = 0
		for i := range entries {
			if _, ok := wanted[entries[i].ISIN]; ok && entries[i].Active {
				entries[i].Active = false
				changed++
			}
		}
		if changed == 0 {
			return nil, errUnchanged
		}
		return entries, nil
	})
	if errors.Is(err, errUnchanged) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	s.log.Infow("ISINs deactivated", "isins", isins, "changed", changed)
	return changed, nil
}

// Active filters entries whose active flag is set, preserving order
func Active(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

func indexOf(entries []Entry, isin string) int {
	for i := range entries {
		if entries[i].ISIN == isin {
			return i
		}
	}
	return -1
}

func checkUnique(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ISIN]; ok {
			return errors.Wrapf(errors.ErrAlreadyExists, "duplicate ISIN %s", e.ISIN)
		}
		seen[e.ISIN] = struct{}{}
	}
	return nil
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
