package store

import (
	"errors"
	"fmt"
)

// Keys of the snapshot store. Values are opaque blobs owned by one component each.
const (
	KeyAppointments = "driveflow_appointments"
	KeySessionUser  = "driveflow_user"
	KeyClientID     = "google_client_id"
	KeyAccessToken  = "google_access_token"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("key not found")

// Store is a durable key/value snapshot store.
// Every Put replaces the whole value atomically.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Open returns the backend selected by driver ("sqlite" or "badger").
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(path)
	case "badger":
		return NewBadgerStore(path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
