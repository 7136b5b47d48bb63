package storage

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vedsharma/apiplay/internal/model"
)

// document holds everything a whole-file backend keeps in one place. The
// memory and JSON backends both mutate a document; they differ only in
// whether it is written to disk afterwards.
type document struct {
	collections  *model.Collections
	environments *model.Environments
	history      *model.History
}

func newDocument() *document {
	return &document{
		collections:  &model.Collections{Collections: make(map[string]*model.Collection)},
		environments: &model.Environments{Environments: make(map[string]*model.Environment)},
		history:      &model.History{Entries: []model.HistoryEntry{}},
	}
}

func newID() string {
	return uuid.New().String()
}

func cloneCollection(c *model.Collection) *model.Collection {
	out := *c
	out.Requests = make([]model.Request, len(c.Requests))
	for i, r := range c.Requests {
		out.Requests[i] = r.Clone()
	}
	return &out
}

func cloneEnvironments(e *model.Environments) *model.Environments {
	out := &model.Environments{
		Active:       e.Active,
		Environments: make(map[string]*model.Environment, len(e.Environments)),
	}
	for id, env := range e.Environments {
		vars := make(map[string]string, len(env.Variables))
		for k, v := range env.Variables {
			vars[k] = v
		}
		out.Environments[id] = &model.Environment{ID: env.ID, Name: env.Name, Variables: vars}
	}
	return out
}

func (d *document) createCollection(name, description, color string) *model.Collection {
	col := &model.Collection{
		ID:          newID(),
		Name:        name,
		Description: description,
		Color:       color,
		Requests:    []model.Request{},
	}
	d.collections.Collections[col.ID] = col
	return cloneCollection(col)
}

func (d *document) collection(id string) (*model.Collection, error) {
	col, ok := d.collections.Collections[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	return col, nil
}

func (d *document) addRequest(collectionID string, req model.Request) (*model.Request, error) {
	col, err := d.collection(collectionID)
	if err != nil {
		return nil, err
	}

	stored := req.Clone()
	if _, taken := col.Request(stored.ID); stored.ID == "" || taken {
		stored.ID = newID()
	}
	if stored.Headers == nil {
		stored.Headers = make(map[string]string)
	}
	stored.Position = len(col.Requests)
	col.Requests = append(col.Requests, stored)

	out := stored.Clone()
	return &out, nil
}

func (d *document) updateRequest(collectionID string, req model.Request) error {
	col, err := d.collection(collectionID)
	if err != nil {
		return err
	}

	existing, ok := col.Request(req.ID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, req.ID)
	}

	updated := req.Clone()
	updated.Position = existing.Position
	*existing = updated
	return nil
}

func (d *document) deleteRequest(collectionID, requestID string) error {
	col, err := d.collection(collectionID)
	if err != nil {
		return err
	}

	for i := range col.Requests {
		if col.Requests[i].ID != requestID {
			continue
		}
		col.Requests = append(col.Requests[:i], col.Requests[i+1:]...)
		for j := range col.Requests {
			col.Requests[j].Position = j
		}
		return nil
	}

	return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
}

func (d *document) getCollections() map[string]*model.Collection {
	out := make(map[string]*model.Collection, len(d.collections.Collections))
	for id, col := range d.collections.Collections {
		out[id] = cloneCollection(col)
	}
	return out
}

func (d *document) getCollection(id string) (*model.Collection, error) {
	col, err := d.collection(id)
	if err != nil {
		return nil, err
	}
	return cloneCollection(col), nil
}

func (d *document) deleteCollection(id string) error {
	if _, err := d.collection(id); err != nil {
		return err
	}
	delete(d.collections.Collections, id)
	if d.collections.Active == id {
		d.collections.Active = ""
	}
	return nil
}

func (d *document) setActiveCollection(id string) error {
	if id != "" {
		if _, err := d.collection(id); err != nil {
			return err
		}
	}
	d.collections.Active = id
	return nil
}

func (d *document) addToHistory(entry model.HistoryEntry, limit int) {
	// Prepend new entry (most recent first)
	d.history.Entries = append([]model.HistoryEntry{entry}, d.history.Entries...)

	if len(d.history.Entries) > limit {
		d.history.Entries = d.history.Entries[:limit]
	}
}

func (d *document) historyEntry(id string) *model.HistoryEntry {
	for _, entry := range d.history.Entries {
		if entry.ID == id {
			e := entry
			return &e
		}
	}
	return nil
}
