// Package archive - A LevelDB store of encoded reports, keyed by run id.
package archive

import (
	"errors"
	"fmt"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/nvr-ai/go-hebench/report"
)

const reportPrefix = "report/"

// ErrNotFound is matched by NotFoundError.
var ErrNotFound = errors.New("report not found")

// NotFoundError is returned when no report is stored under a run id.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("report %s not found", e.RunID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Archive stores reports in LevelDB. LevelDB handles its own synchronization.
type Archive struct {
	db *leveldb.DB
}

// Open opens or creates an archive in dir. An empty dir opens an in-memory archive.
func Open(dir string) (*Archive, error) {
	var db *leveldb.DB
	var err error

	if dir == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(dir, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive at %q: %w", dir, err)
	}
	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func key(runID string) []byte {
	return []byte(reportPrefix + runID)
}

// Put stores r under its run id, replacing any previous report with the same id.
func (a *Archive) Put(r *report.Report) error {
	data, err := r.EncodeCBOR()
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", r.RunID(), err)
	}
	if err := a.db.Put(key(r.RunID()), data, nil); err != nil {
		return fmt.Errorf("failed to store report %s: %w", r.RunID(), err)
	}
	return nil
}

// Get returns the report stored under runID.
func (a *Archive) Get(runID string) (*report.Report, error) {
	data, err := a.db.Get(key(runID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, &NotFoundError{RunID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", runID, err)
	}
	r, err := report.DecodeCBOR(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", runID, err)
	}
	return r, nil
}

// Has reports whether a report is stored under runID.
func (a *Archive) Has(runID string) (bool, error) {
	return a.db.Has(key(runID), nil)
}

// Delete removes the report stored under runID.
func (a *Archive) Delete(runID string) error {
	ok, err := a.Has(runID)
	if err != nil {
		return fmt.Errorf("failed to look up report %s: %w", runID, err)
	}
	if !ok {
		return &NotFoundError{RunID: runID}
	}
	return a.db.Delete(key(runID), nil)
}

// List returns every stored report ordered by start time, then run id.
func (a *Archive) List() ([]*report.Report, error) {
	iter := a.db.NewIterator(util.BytesPrefix([]byte(reportPrefix)), nil)
	defer iter.Release()

	var out []*report.Report
	for iter.Next() {
		r, err := report.DecodeCBOR(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", iter.Key(), err)
		}
		out = append(out, r)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Header().StartedAt, out[j].Header().StartedAt
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return out[i].RunID() < out[j].RunID()
	})
	return out, nil
}
