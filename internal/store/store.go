// Package store is the persistent client store: a small fixed key set
// (auth token, free-tier usage, anonymous id, in-flight job id, experiment
// variant, pending-upgrade job id) kept in an embedded Badger database so it
// survives process restarts.
//
// Every operation is fail-soft. A storage error is logged and swallowed;
// getters return the zero value and setters become no-ops. The store boundary
// never propagates an error to its callers.
package store

import (
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	keyAuthToken           = "auth_token"
	keyFreeUsed            = "free_used"
	keyFreeUserID          = "free_user_id"
	keyCurrentJobID        = "current_job_id"
	keyExperimentVariant   = "experiment_variant"
	keyPendingUpgradeJobID = "pending_upgrade_job_id"
)

type Store struct {
	db *badger.DB
}

// Open opens (creating if needed) the store under dataDir.
func Open(dataDir string) (*Store, error) {
	opts := badger.DefaultOptions(dataDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening client store at %s", dataDir)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store with no disk persistence. Used in tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening in-memory client store")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AuthToken returns the persisted auth token, or "" for anonymous clients.
func (s *Store) AuthToken() string {
	return s.get(keyAuthToken)
}

func (s *Store) SetAuthToken(token string) {
	s.set(keyAuthToken, token)
}

// FreeUsed returns the locally cached free-tier usage counter. The server's
// free_used_total is authoritative; this value is only a fallback for display
// and request headers before the first sync.
func (s *Store) FreeUsed() int {
	v := s.get(keyFreeUsed)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		zap.S().Named("store").Warnf("discarding malformed free-usage counter %q", v)
		return 0
	}
	return n
}

func (s *Store) SetFreeUsed(count int) {
	s.set(keyFreeUsed, strconv.Itoa(count))
}

// FreeUserID returns the anonymous free-user id, generating and persisting a
// random UUID on first need. Creation is lazy so authenticated clients never
// carry one.
func (s *Store) FreeUserID() string {
	if id := s.get(keyFreeUserID); id != "" {
		return id
	}
	id := uuid.NewString()
	s.set(keyFreeUserID, id)
	return id
}

// CurrentJobID returns the persisted in-flight job id, or "" when no job is
// pending. This is the sole durable state the recovery path needs.
func (s *Store) CurrentJobID() string {
	return s.get(keyCurrentJobID)
}

func (s *Store) SetCurrentJobID(jobID string) {
	s.set(keyCurrentJobID, jobID)
}

func (s *Store) ClearCurrentJobID() {
	s.delete(keyCurrentJobID)
}

// Variant returns the persisted experiment variant, or "" when unassigned.
func (s *Store) Variant() string {
	return s.get(keyExperimentVariant)
}

func (s *Store) SetVariant(variant string) {
	s.set(keyExperimentVariant, variant)
}

func (s *Store) PendingUpgradeJobID() string {
	return s.get(keyPendingUpgradeJobID)
}

func (s *Store) SetPendingUpgradeJobID(jobID string) {
	s.set(keyPendingUpgradeJobID, jobID)
}

func (s *Store) ClearPendingUpgradeJobID() {
	s.delete(keyPendingUpgradeJobID)
}

func (s *Store) get(key string) string {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = string(raw)
		return nil
	})
	if err != nil && err != badger.ErrKeyNotFound {
		zap.S().Named("store").Errorf("failed to read %s: %s", key, err)
	}
	return value
}

func (s *Store) set(key, value string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		zap.S().Named("store").Errorf("failed to write %s: %s", key, err)
	}
}

func (s *Store) delete(key string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		zap.S().Named("store").Errorf("failed to delete %s: %s", key, err)
	}
}
