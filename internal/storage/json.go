package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vedsharma/apiplay/internal/model"
)

const (
	historyFile      = "history.json"
	collectionsFile  = "collections.json"
	environmentsFile = "environments.json"

	// Secure file permissions - owner read/write only
	jsonSecureFileMode = 0600 // -rw-------
)

// JSONStorage handles JSON file persistence on the local device. Every
// mutation reads the affected file, applies the change and writes it back.
type JSONStorage struct {
	dataDir      string
	historyLimit int
	logger       *slog.Logger
}

// NewJSONStorage creates a new JSON storage instance rooted at opts.DataDir
func NewJSONStorage(opts Options) (*JSONStorage, error) {
	opts = opts.withDefaults()

	dataDir, err := ensureDataDir(opts.DataDir)
	if err != nil {
		return nil, err
	}

	return &JSONStorage{dataDir: dataDir, historyLimit: opts.HistoryLimit, logger: opts.Logger}, nil
}

// Close is a no-op; files are written on every mutation
func (s *JSONStorage) Close() error { return nil }

func (s *JSONStorage) path(name string) string {
	return filepath.Join(s.dataDir, name)
}

// readJSON decodes a file into v, leaving v untouched if the file does not exist
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, jsonSecureFileMode)
}

// load reads all files into a fresh document
func (s *JSONStorage) load() (*document, error) {
	doc := newDocument()
	if err := readJSON(s.path(collectionsFile), doc.collections); err != nil {
		return nil, err
	}
	if err := readJSON(s.path(environmentsFile), doc.environments); err != nil {
		return nil, err
	}
	if err := readJSON(s.path(historyFile), doc.history); err != nil {
		return nil, err
	}
	if doc.collections.Collections == nil {
		doc.collections.Collections = make(map[string]*model.Collection)
	}
	if doc.environments.Environments == nil {
		doc.environments.Environments = make(map[string]*model.Environment)
	}
	return doc, nil
}

// updateCollections loads, applies fn and saves collections.json if fn succeeds
func (s *JSONStorage) updateCollections(fn func(doc *document) error) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return writeJSON(s.path(collectionsFile), doc.collections)
}

func (s *JSONStorage) CreateCollection(name, description, color string) (*model.Collection, error) {
	var col *model.Collection
	err := s.updateCollections(func(doc *document) error {
		col = doc.createCollection(name, description, color)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("collection created", "id", col.ID, "name", name)
	return col, nil
}

func (s *JSONStorage) AddRequestToCollection(collectionID string, req model.Request) (*model.Request, error) {
	var stored *model.Request
	err := s.updateCollections(func(doc *document) error {
		var err error
		stored, err = doc.addRequest(collectionID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *JSONStorage) UpdateRequest(collectionID string, req model.Request) error {
	return s.updateCollections(func(doc *document) error {
		return doc.updateRequest(collectionID, req)
	})
}

func (s *JSONStorage) DeleteRequest(collectionID, requestID string) error {
	return s.updateCollections(func(doc *document) error {
		return doc.deleteRequest(collectionID, requestID)
	})
}

func (s *JSONStorage) GetCollections() (map[string]*model.Collection, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.getCollections(), nil
}

func (s *JSONStorage) GetCollection(id string) (*model.Collection, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.getCollection(id)
}

func (s *JSONStorage) DeleteCollection(id string) error {
	return s.updateCollections(func(doc *document) error {
		return doc.deleteCollection(id)
	})
}

func (s *JSONStorage) SetActiveCollectionID(id string) error {
	return s.updateCollections(func(doc *document) error {
		return doc.setActiveCollection(id)
	})
}

func (s *JSONStorage) ActiveCollectionID() (string, error) {
	doc, err := s.load()
	if err != nil {
		return "", err
	}
	return doc.collections.Active, nil
}

// LoadEnvironments loads all environments from disk
func (s *JSONStorage) LoadEnvironments() (*model.Environments, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.environments, nil
}

// SaveEnvironments saves all environments to disk
func (s *JSONStorage) SaveEnvironments(envs *model.Environments) error {
	return writeJSON(s.path(environmentsFile), envs)
}

// LoadHistory loads the request history from disk
func (s *JSONStorage) LoadHistory() (*model.History, error) {
	history := &model.History{Entries: []model.HistoryEntry{}}
	if err := readJSON(s.path(historyFile), history); err != nil {
		return nil, err
	}
	return history, nil
}

// AddToHistory adds an entry to history, keeping only the most recent ones
func (s *JSONStorage) AddToHistory(entry model.HistoryEntry) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.addToHistory(entry, s.historyLimit)
	return writeJSON(s.path(historyFile), doc.history)
}

// ClearHistory clears all history
func (s *JSONStorage) ClearHistory() error {
	return writeJSON(s.path(historyFile), &model.History{Entries: []model.HistoryEntry{}})
}

// GetHistoryEntry gets a specific entry by ID; nil if absent
func (s *JSONStorage) GetHistoryEntry(id string) (*model.HistoryEntry, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.historyEntry(id), nil
}
