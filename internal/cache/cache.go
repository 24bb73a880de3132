// Package cache persists completed assessments locally so repeated runs skip
// hosts that already have a READY result, sparing the remote quota.
package cache

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/vhnguyen/sslsweep/internal/ssllabs"
)

const keyPrefix = "assessment/"

// Store is a badger-backed host → assessment snapshot store.
type Store struct {
	db     *badger.DB
	logger *zap.SugaredLogger
}

// Open opens (or creates) the store at path.
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Put stores the snapshot for host. Callers persist READY results only.
func (s *Store) Put(host string, res *ssllabs.AssessmentResult) error {
	raw := []byte(res.Raw)
	if len(raw) == 0 {
		encoded, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("encode assessment: %w", err)
		}
		raw = encoded
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+host), raw)
	})
}

// Get returns the stored snapshot for host, if any. A stored value that no
// longer decodes is treated as a miss.
func (s *Store) Get(host string) (*ssllabs.AssessmentResult, bool) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + host))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			s.logger.Warnw("cache read failed", "host", host, "error", err)
		}
		return nil, false
	}

	var res ssllabs.AssessmentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		s.logger.Warnw("cache entry corrupt", "host", host, "error", err)
		return nil, false
	}
	res.Raw = raw
	return &res, true
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
