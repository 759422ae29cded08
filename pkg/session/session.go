// Package session provides the persisted session credential.
//
// The credential is stored as the "kn-sessionid" cookie in a bbolt database.
// If no credential is stored, the Guest credential is used.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// CookieName is the name of the cookie holding the session credential.
	CookieName = "kn-sessionid"
	// Guest is the credential of an anonymous user.
	Guest = "guest"

	bucketName  = "cookies"
	openTimeout = time.Second
)

// Store is a cookie store backed by bbolt.
// A nil *Store behaves as an empty read-only store.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store, the parent directory is created if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf(`cannot create session directory "%s": %w`, dir, err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf(`cannot open session store "%s": %w`, path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf(`cannot init session store "%s": %w`, path, err)
	}

	return &Store{db: db}, nil
}

// Get returns the cookie value, found is false if the cookie is not stored.
func (s *Store) Get(name string) (value string, found bool, err error) {
	if s == nil || s.db == nil {
		return "", false, nil
	}
	err = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return errors.New("cookies bucket missing")
		}
		if v := bucket.Get([]byte(name)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	return value, found, err
}

func (s *Store) Set(name, value string) error {
	if s == nil || s.db == nil {
		return errors.New("session store is not open")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return errors.New("cookies bucket missing")
		}
		return bucket.Put([]byte(name), []byte(value))
	})
}

func (s *Store) Delete(name string) error {
	if s == nil || s.db == nil {
		return errors.New("session store is not open")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return errors.New("cookies bucket missing")
		}
		return bucket.Delete([]byte(name))
	})
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the session credential.
// The override is used if it is not empty, then the stored cookie, then the Guest credential.
func Load(store *Store, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	value, found, err := store.Get(CookieName)
	if err != nil {
		return "", fmt.Errorf(`cannot load session: %w`, err)
	}
	if !found || value == "" {
		return Guest, nil
	}
	return value, nil
}

// Save stores the session credential.
func Save(store *Store, value string) error {
	return store.Set(CookieName, value)
}

// Clear removes the stored session credential.
func Clear(store *Store) error {
	return store.Delete(CookieName)
}
