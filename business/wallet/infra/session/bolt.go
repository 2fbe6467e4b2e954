// Package session persists the "previously connected" hint.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fd1az/launchpad-wallet/internal/apperror"
)

var (
	// Bucket holds the session keys.
	Bucket = []byte("session")

	connectedKey = []byte("walletConnected")
	trueValue    = []byte("true")
)

// BoltStore keeps the session flag in a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the session database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, storageError("create session dir", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, storageError("open session db", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(Bucket); err != nil {
			return fmt.Errorf("could not create session bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, storageError("init session db", err)
	}

	return &BoltStore{db: db}, nil
}

// WasConnected reports whether the flag is set.
func (s *BoltStore) WasConnected() (bool, error) {
	var connected bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(Bucket).Get(connectedKey)
		connected = string(v) == string(trueValue)
		return nil
	})
	if err != nil {
		return false, storageError("read session flag", err)
	}
	return connected, nil
}

// SetConnected stores the flag; false removes it.
func (s *BoltStore) SetConnected(connected bool) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(Bucket)
		if connected {
			return b.Put(connectedKey, trueValue)
		}
		return b.Delete(connectedKey)
	})
	if err != nil {
		return storageError("write session flag", err)
	}
	return nil
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func storageError(context string, err error) error {
	return apperror.New(apperror.CodeStorageError,
		apperror.WithContext(context),
		apperror.WithCause(err))
}
