// Package storage persists collections, environments and history. Every
// backend satisfies Store, and callers never branch on which one is in use.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vedsharma/apiplay/internal/logging"
	"github.com/vedsharma/apiplay/internal/model"
)

// Backend names accepted by Open
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendMemory = "memory"
)

// DefaultHistoryLimit caps the number of history entries kept
const DefaultHistoryLimit = 100

var (
	// ErrCollectionNotFound is returned when a collection ID is unknown
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrRequestNotFound is returned when a request ID is unknown in its collection
	ErrRequestNotFound = errors.New("request not found")
)

// CollectionStore is the collection half of the persistence contract.
type CollectionStore interface {
	// CreateCollection creates an empty collection with a fresh ID.
	CreateCollection(name, description, color string) (*model.Collection, error)
	// AddRequestToCollection appends req, assigning its ID (when empty or
	// already taken) and its position.
	AddRequestToCollection(collectionID string, req model.Request) (*model.Request, error)
	// UpdateRequest replaces a stored request in place, keeping its position.
	UpdateRequest(collectionID string, req model.Request) error
	DeleteRequest(collectionID, requestID string) error
	GetCollections() (map[string]*model.Collection, error)
	GetCollection(id string) (*model.Collection, error)
	DeleteCollection(id string) error
	SetActiveCollectionID(id string) error
	ActiveCollectionID() (string, error)
}

// EnvironmentStore loads and saves the whole environment set at once.
type EnvironmentStore interface {
	LoadEnvironments() (*model.Environments, error)
	SaveEnvironments(envs *model.Environments) error
}

// HistoryStore records executed requests, most recent first.
type HistoryStore interface {
	LoadHistory() (*model.History, error)
	AddToHistory(entry model.HistoryEntry) error
	ClearHistory() error
	GetHistoryEntry(id string) (*model.HistoryEntry, error)
}

// Store is the full persistence adapter.
type Store interface {
	CollectionStore
	EnvironmentStore
	HistoryStore
	Close() error
}

// Options configures a backend
type Options struct {
	DataDir      string
	HistoryLimit int
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	return o
}

// Open opens the named backend
func Open(backend string, opts Options) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return NewSQLiteStorage(opts)
	case BackendJSON:
		return NewJSONStorage(opts)
	case BackendMemory:
		return NewMemoryStorage(opts), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want sqlite, json or memory)", backend)
	}
}

// DefaultDataDir returns ~/.apiplay
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".apiplay"), nil
}

func ensureDataDir(dir string) (string, error) {
	if dir == "" {
		d, err := DefaultDataDir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, secureDirMode); err != nil {
		return "", err
	}
	return dir, nil
}
