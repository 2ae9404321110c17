package dataset

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"sort"
	"sync"

	"github.com/ignite/warehouse-sla-monitor/internal/pkg/logger"
	"github.com/ignite/warehouse-sla-monitor/internal/sla"
)

// ErrNotFound is returned when a dataset ID is not in the store.
var ErrNotFound = errors.New("dataset not found")

// Store is an in-memory, content-addressed dataset registry. The ID of
// an upload is the md5 of its raw bytes, so re-uploading identical
// content hits the already-derived dataset instead of reparsing, and a
// changed file naturally gets a fresh ID. Datasets are immutable once
// stored.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*Dataset
	windows sla.Windows
}

// NewStore creates an empty store deriving with the given windows.
func NewStore(w sla.Windows) *Store {
	return &Store{byID: make(map[string]*Dataset), windows: w}
}

// ContentID returns the store's address for a raw upload.
func ContentID(raw []byte) string {
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}

// Put parses and stores an upload. When the same content is already
// present the existing dataset is returned with existed=true and the
// payload is not reparsed.
func (s *Store) Put(name string, raw []byte) (ds *Dataset, existed bool, err error) {
	id := ContentID(raw)

	s.mu.RLock()
	ds = s.byID[id]
	s.mu.RUnlock()
	if ds != nil {
		return ds, true, nil
	}

	ds, err = LoadCSV(bytes.NewReader(raw), name, s.windows)
	if err != nil {
		return nil, false, err
	}
	ds.ID = id

	s.mu.Lock()
	// Lost a race with an identical concurrent upload: keep the first.
	if existing := s.byID[id]; existing != nil {
		s.mu.Unlock()
		return existing, true, nil
	}
	s.byID[id] = ds
	s.mu.Unlock()

	logger.Info("dataset stored", "dataset_id", id, "load_id", ds.LoadID, "rows", ds.Rows)
	return ds, false, nil
}

// Add stores an already-built dataset (e.g. from the postgres source)
// under its ID, replacing any previous dataset with the same ID.
func (s *Store) Add(ds *Dataset) {
	s.mu.Lock()
	s.byID[ds.ID] = ds
	s.mu.Unlock()
}

// Get returns the dataset for an ID.
func (s *Store) Get(id string) (*Dataset, error) {
	s.mu.RLock()
	ds := s.byID[id]
	s.mu.RUnlock()
	if ds == nil {
		return nil, ErrNotFound
	}
	return ds, nil
}

// Delete removes a dataset; deleting an unknown ID reports ErrNotFound.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// List returns dataset metadata ordered by load time, newest first.
func (s *Store) List() []*Dataset {
	s.mu.RLock()
	out := make([]*Dataset, 0, len(s.byID))
	for _, ds := range s.byID {
		out = append(out, ds)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LoadedAt.Equal(out[j].LoadedAt) {
			return out[i].LoadedAt.After(out[j].LoadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Windows returns the derivation windows the store was built with.
func (s *Store) Windows() sla.Windows { return s.windows }
