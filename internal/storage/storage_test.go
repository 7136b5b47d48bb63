package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedsharma/apiplay/internal/model"
)

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		BackendMemory: func(t *testing.T) Store {
			return NewMemoryStorage(Options{HistoryLimit: 3})
		},
		BackendJSON: func(t *testing.T) Store {
			s, err := NewJSONStorage(Options{DataDir: t.TempDir(), HistoryLimit: 3})
			require.NoError(t, err)
			return s
		},
		BackendSQLite: func(t *testing.T) Store {
			s, err := NewSQLiteStorage(Options{DataDir: t.TempDir(), HistoryLimit: 3})
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestCollections(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			col, err := s.CreateCollection("Users API", "user endpoints", "#ff0000")
			require.NoError(t, err)
			assert.NotEmpty(t, col.ID)
			assert.Empty(t, col.Requests)

			// same name yields a distinct collection
			other, err := s.CreateCollection("Users API", "", "")
			require.NoError(t, err)
			assert.NotEqual(t, col.ID, other.ID)

			first, err := s.AddRequestToCollection(col.ID, model.Request{
				Name:    "List",
				Method:  "GET",
				URL:     "{{base}}/users",
				Headers: map[string]string{"Accept": "application/json"},
				Tags:    []string{"users"},
			})
			require.NoError(t, err)
			assert.NotEmpty(t, first.ID)
			assert.Equal(t, 0, first.Position)

			second, err := s.AddRequestToCollection(col.ID, model.Request{ID: first.ID, Name: "Create", Method: "POST", Body: `{"a":1}`})
			require.NoError(t, err)
			assert.NotEqual(t, first.ID, second.ID, "duplicate id is replaced")
			assert.Equal(t, 1, second.Position)

			got, err := s.GetCollection(col.ID)
			require.NoError(t, err)
			assert.Equal(t, "Users API", got.Name)
			assert.Equal(t, "user endpoints", got.Description)
			assert.Equal(t, "#ff0000", got.Color)
			require.Len(t, got.Requests, 2)
			assert.Equal(t, "List", got.Requests[0].Name)
			assert.Equal(t, "Create", got.Requests[1].Name)
			assert.Equal(t, map[string]string{"Accept": "application/json"}, got.Requests[0].Headers)
			assert.Equal(t, []string{"users"}, got.Requests[0].Tags)

			updated := got.Requests[0]
			updated.URL = "https://api.example.com/users"
			require.NoError(t, s.UpdateRequest(col.ID, updated))

			require.NoError(t, s.DeleteRequest(col.ID, second.ID))
			assert.ErrorIs(t, s.DeleteRequest(col.ID, second.ID), ErrRequestNotFound)
			assert.ErrorIs(t, s.UpdateRequest(col.ID, model.Request{ID: "nope"}), ErrRequestNotFound)

			all, err := s.GetCollections()
			require.NoError(t, err)
			require.Len(t, all, 2)
			require.Len(t, all[col.ID].Requests, 1)
			assert.Equal(t, "https://api.example.com/users", all[col.ID].Requests[0].URL)

			_, err = s.AddRequestToCollection("missing", model.Request{})
			assert.ErrorIs(t, err, ErrCollectionNotFound)
			_, err = s.GetCollection("missing")
			assert.ErrorIs(t, err, ErrCollectionNotFound)
		})
	}
}

func TestActiveCollection(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			active, err := s.ActiveCollectionID()
			require.NoError(t, err)
			assert.Empty(t, active)

			col, err := s.CreateCollection("A", "", "")
			require.NoError(t, err)
			require.NoError(t, s.SetActiveCollectionID(col.ID))
			assert.ErrorIs(t, s.SetActiveCollectionID("missing"), ErrCollectionNotFound)

			active, err = s.ActiveCollectionID()
			require.NoError(t, err)
			assert.Equal(t, col.ID, active)

			require.NoError(t, s.DeleteCollection(col.ID))
			assert.ErrorIs(t, s.DeleteCollection(col.ID), ErrCollectionNotFound)

			active, err = s.ActiveCollectionID()
			require.NoError(t, err)
			assert.Empty(t, active, "deleting the active collection clears the pointer")
		})
	}
}

func TestEnvironments(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			envs, err := s.LoadEnvironments()
			require.NoError(t, err)
			assert.Empty(t, envs.Environments)

			envs.Environments["dev"] = &model.Environment{ID: "dev", Name: "Dev", Variables: map[string]string{"base": "http://localhost"}}
			envs.Environments["prod"] = &model.Environment{ID: "prod", Name: "Prod", Variables: map[string]string{}}
			envs.Active = "prod"
			require.NoError(t, s.SaveEnvironments(envs))

			loaded, err := s.LoadEnvironments()
			require.NoError(t, err)
			assert.Equal(t, "prod", loaded.Active)
			require.Len(t, loaded.Environments, 2)
			assert.Equal(t, "http://localhost", loaded.Environments["dev"].Variables["base"])

			delete(loaded.Environments, "dev")
			require.NoError(t, s.SaveEnvironments(loaded))

			loaded, err = s.LoadEnvironments()
			require.NoError(t, err)
			assert.Len(t, loaded.Environments, 1)
		})
	}
}

func TestHistory(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			for i, id := range []string{"a", "b", "c", "d"} {
				entry := model.HistoryEntry{
					ID:        id,
					Timestamp: base.Add(time.Duration(i) * time.Minute),
					Method:    "GET",
					URL:       "https://example.com/" + id,
					Headers:   map[string]string{},
				}
				if id == "d" {
					entry.Response = &model.Response{StatusCode: 200, Status: "200 OK", Headers: map[string]string{"X": "1"}, Body: "ok", DurationMs: 5}
				}
				require.NoError(t, s.AddToHistory(entry))
			}

			history, err := s.LoadHistory()
			require.NoError(t, err)
			require.Len(t, history.Entries, 3, "history is capped")
			assert.Equal(t, "d", history.Entries[0].ID)
			assert.Equal(t, "b", history.Entries[2].ID)

			entry, err := s.GetHistoryEntry("d")
			require.NoError(t, err)
			require.NotNil(t, entry)
			require.NotNil(t, entry.Response)
			assert.Equal(t, 200, entry.Response.StatusCode)
			assert.Equal(t, "1", entry.Response.Headers["X"])

			missing, err := s.GetHistoryEntry("a")
			require.NoError(t, err)
			assert.Nil(t, missing)

			require.NoError(t, s.ClearHistory())
			history, err = s.LoadHistory()
			require.NoError(t, err)
			assert.Empty(t, history.Entries)
		})
	}
}

func TestSQLiteMigratesJSON(t *testing.T) {
	dir := t.TempDir()

	js, err := NewJSONStorage(Options{DataDir: dir})
	require.NoError(t, err)
	col, err := js.CreateCollection("Legacy", "", "")
	require.NoError(t, err)
	_, err = js.AddRequestToCollection(col.ID, model.Request{Name: "one", Method: "GET", URL: "https://example.com"})
	require.NoError(t, err)
	require.NoError(t, js.SaveEnvironments(&model.Environments{
		Active:       "default",
		Environments: map[string]*model.Environment{"default": {ID: "default", Name: "Default", Variables: map[string]string{"k": "v"}}},
	}))

	db, err := NewSQLiteStorage(Options{DataDir: dir})
	require.NoError(t, err)
	defer db.Close()

	got, err := db.GetCollection(col.ID)
	require.NoError(t, err)
	require.Len(t, got.Requests, 1)
	assert.Equal(t, "one", got.Requests[0].Name)

	envs, err := db.LoadEnvironments()
	require.NoError(t, err)
	assert.Equal(t, "default", envs.Active)
	assert.Equal(t, "v", envs.Environments["default"].Variables["k"])

	_, err = os.Stat(filepath.Join(dir, collectionsFile+".migrated"))
	assert.NoError(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(BackendMemory, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	_, err = Open("postgres", Options{})
	assert.Error(t, err)
}

func TestSQLiteDeleteCollectionRemovesRequests(t *testing.T) {
	s, err := NewSQLiteStorage(Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	col, err := s.CreateCollection("Doomed", "", "")
	require.NoError(t, err)
	for _, name := range []string{"one", "two"} {
		_, err = s.AddRequestToCollection(col.ID, model.Request{Name: name, Method: "GET", URL: "https://example.com"})
		require.NoError(t, err)
	}

	// Hold two connections at once so the pool has to open a second one
	ctx := context.Background()
	first, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []interface {
		QueryRowContext(context.Context, string, ...any) *sql.Row
	}{first, second} {
		var enabled int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
		assert.Equal(t, 1, enabled)
	}
	require.NoError(t, first.Close())
	require.NoError(t, second.Close())

	require.NoError(t, s.DeleteCollection(col.ID))

	var orphans int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM saved_requests WHERE collection_id = ?", col.ID).Scan(&orphans))
	assert.Zero(t, orphans)
}
