package storage

import (
	"sync"

	"github.com/vedsharma/apiplay/internal/model"
)

// MemoryStorage keeps everything in process memory. It backs tests and
// throwaway sessions.
type MemoryStorage struct {
	mu           sync.Mutex
	doc          *document
	historyLimit int
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage(opts Options) *MemoryStorage {
	opts = opts.withDefaults()
	return &MemoryStorage{doc: newDocument(), historyLimit: opts.HistoryLimit}
}

// Close is a no-op
func (s *MemoryStorage) Close() error { return nil }

func (s *MemoryStorage) CreateCollection(name, description, color string) (*model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.createCollection(name, description, color), nil
}

func (s *MemoryStorage) AddRequestToCollection(collectionID string, req model.Request) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.addRequest(collectionID, req)
}

func (s *MemoryStorage) UpdateRequest(collectionID string, req model.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.updateRequest(collectionID, req)
}

func (s *MemoryStorage) DeleteRequest(collectionID, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.deleteRequest(collectionID, requestID)
}

func (s *MemoryStorage) GetCollections() (map[string]*model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.getCollections(), nil
}

func (s *MemoryStorage) GetCollection(id string) (*model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.getCollection(id)
}

func (s *MemoryStorage) DeleteCollection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.deleteCollection(id)
}

func (s *MemoryStorage) SetActiveCollectionID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.setActiveCollection(id)
}

func (s *MemoryStorage) ActiveCollectionID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.collections.Active, nil
}

func (s *MemoryStorage) LoadEnvironments() (*model.Environments, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEnvironments(s.doc.environments), nil
}

func (s *MemoryStorage) SaveEnvironments(envs *model.Environments) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.environments = cloneEnvironments(envs)
	return nil
}

func (s *MemoryStorage) LoadHistory() (*model.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &model.History{Entries: append([]model.HistoryEntry{}, s.doc.history.Entries...)}, nil
}

func (s *MemoryStorage) AddToHistory(entry model.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.addToHistory(entry, s.historyLimit)
	return nil
}

func (s *MemoryStorage) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.history.Entries = []model.HistoryEntry{}
	return nil
}

func (s *MemoryStorage) GetHistoryEntry(id string) (*model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.historyEntry(id), nil
}
