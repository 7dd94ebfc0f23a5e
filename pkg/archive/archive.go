// Package archive persists the best individual of each generation, with the
// run it belongs to, in a badger key-value store.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/wildfunctions/evogp/pkg/gp"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

// ErrNotFound is returned when a run or record is missing.
var ErrNotFound = errors.New("archive: not found")

const (
	prefixRun    = "run:"
	prefixRecord = "rec:"
)

// Run describes one engine run.
type Run struct {
	ID        uuid.UUID `json:"id"`
	Target    string    `json:"target"`
	Pool      string    `json:"pool"`
	Strategy  string    `json:"strategy"`
	Seed      int64     `json:"seed"`
	StartedAt time.Time `json:"started_at"`
}

// Record is one archived individual.
type Record struct {
	ID         uuid.UUID      `json:"id"`
	RunID      uuid.UUID      `json:"run_id"`
	Attempt    int            `json:"attempt"`
	Generation int            `json:"generation"`
	Fitness    symreg.Fitness `json:"fitness"`
	Expression string         `json:"expression"`
	Tree       *gp.Document   `json:"tree"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Options configures Open.
type Options struct {
	Dir      string
	InMemory bool
	Logger   *slog.Logger
}

// Store is a badger-backed archive. It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the archive.
func Open(o Options) (*Store, error) {
	var opts badger.Options
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if o.Dir == "" {
			return nil, errors.New("archive: directory required")
		}
		opts = badger.DefaultOptions(o.Dir)
	}
	if o.Logger != nil {
		opts = opts.WithLogger(badgerLogger{o.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the store.
func (s *Store) Close() error { return s.db.Close() }

func runKey(id uuid.UUID) []byte { return []byte(prefixRun + id.String()) }

func recordPrefix(runID uuid.UUID) []byte {
	return []byte(prefixRecord + runID.String() + ":")
}

// recordKey sorts records of a run by generation.
func recordKey(r *Record) []byte {
	return []byte(fmt.Sprintf("%s%s:%08d:%s", prefixRecord, r.RunID, r.Generation, r.ID))
}

// PutRun stores run metadata, assigning an ID and start time when unset.
func (s *Store) PutRun(run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.ID), data)
	})
}

// GetRun loads run metadata.
func (s *Store) GetRun(id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: run %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &run) })
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Runs lists all runs, oldest first.
func (s *Store) Runs() ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(prefixRun), func(val []byte) error {
			var r Run
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			runs = append(runs, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortRuns(runs)
	return runs, nil
}

// Put stores a record, assigning an ID and timestamp when unset. The record
// must belong to a run.
func (s *Store) Put(rec *Record) error {
	if rec.RunID == uuid.Nil {
		return errors.New("archive: record without run id")
	}
	if rec.Fitness.IsWorst() {
		return errors.New("archive: refusing to store a failed candidate")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec), data)
	})
}

// List returns the records of a run ordered by generation.
func (s *Store) List(runID uuid.UUID) ([]*Record, error) {
	var recs []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, recordPrefix(runID), func(val []byte) error {
			var r Record
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			recs = append(recs, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Best returns the fittest record of a run.
func (s *Store) Best(runID uuid.UUID) (*Record, error) {
	recs, err := s.List(runID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no records for run %s", ErrNotFound, runID)
	}
	best := recs[0]
	for _, r := range recs[1:] {
		if symreg.Better(r.Fitness, best.Fitness) {
			best = r
		}
	}
	return best, nil
}

// DeleteRun removes a run and all its records.
func (s *Store) DeleteRun(runID uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix(runID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return txn.Delete(runKey(runID))
	})
}

func sortRuns(runs []*Run) {
	slices.SortStableFunc(runs, func(a, b *Run) int { return a.StartedAt.Compare(b.StartedAt) })
}

// Restore rebuilds the record's tree against pset.
func Restore(pset *gp.PSet, rec *Record) (*gp.Tree, error) {
	return pset.Deserialize(rec.Tree)
}

func scan(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(f string, v ...any) { b.l.Error(msg(f, v)) }
func (b badgerLogger) Warningf(f string, v ...any) { b.l.Warn(msg(f, v)) }
func (b badgerLogger) Infof(f string, v ...any) { b.l.Debug(msg(f, v)) }
func (b badgerLogger) Debugf(f string, v ...any) { b.l.Debug(msg(f, v)) }

func msg(f string, v []any) string { return "badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)) }
