package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vedsharma/apiplay/internal/model"

	_ "modernc.org/sqlite"
)

// parseJSONMap safely parses a JSON object of strings, returning an empty map on error
func parseJSONMap(jsonStr string) (map[string]string, error) {
	if jsonStr == "" {
		return make(map[string]string), nil
	}

	var m map[string]string
	if err := json.Unmarshal([]byte(jsonStr), &m); err != nil {
		return make(map[string]string), fmt.Errorf("failed to parse JSON map: %w", err)
	}

	if m == nil {
		m = make(map[string]string)
	}
	return m, nil
}

func mustJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

const (
	dbFile = "apiplay.db"

	settingActiveCollection  = "active_collection"
	settingActiveEnvironment = "active_environment"

	// Secure file permissions - owner read/write only
	secureFileMode = 0600 // -rw-------
	secureDirMode  = 0700 // drwx------
)

// ensureSecureFile creates a file with secure permissions if it doesn't exist,
// or verifies/fixes permissions if it does exist. This prevents a TOCTOU race
// condition where the file could be created with insecure default permissions.
func ensureSecureFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, secureFileMode)
		if err != nil {
			return fmt.Errorf("failed to create secure file: %w", err)
		}
		f.Close()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Mode().Perm() != secureFileMode {
		if err := os.Chmod(path, secureFileMode); err != nil {
			return fmt.Errorf("failed to set secure permissions: %w", err)
		}
	}
	return nil
}

// SQLiteStorage handles SQLite database persistence
type SQLiteStorage struct {
	db           *sql.DB
	dataDir      string
	historyLimit int
	logger       *slog.Logger
}

// NewSQLiteStorage opens (creating if needed) the database under opts.DataDir
func NewSQLiteStorage(opts Options) (*SQLiteStorage, error) {
	opts = opts.withDefaults()

	dataDir, err := ensureDataDir(opts.DataDir)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// Create database file with secure permissions if it doesn't exist
	if err := ensureSecureFile(dbPath); err != nil {
		return nil, err
	}

	// The pragma goes in the DSN so every pooled connection enforces it
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	s := &SQLiteStorage{db: db, dataDir: dataDir, historyLimit: opts.HistoryLimit, logger: opts.Logger}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	// Migration errors shouldn't prevent startup
	if err := s.migrateFromJSON(); err != nil {
		s.logger.Warn("json migration failed", "error", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStorage) initSchema() error {
	schema := `
	-- History table (stores executed request + embedded response)
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		headers TEXT DEFAULT '{}',
		body TEXT DEFAULT '',
		response_status_code INTEGER,
		response_status TEXT,
		response_headers TEXT,
		response_body TEXT,
		response_duration_ms INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp DESC);

	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT DEFAULT '',
		color TEXT DEFAULT ''
	);

	-- Saved requests (belongs to collection); order is the explicit position
	CREATE TABLE IF NOT EXISTS saved_requests (
		id TEXT NOT NULL,
		collection_id TEXT NOT NULL,
		name TEXT DEFAULT '',
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		headers TEXT DEFAULT '{}',
		body TEXT DEFAULT '',
		description TEXT DEFAULT '',
		tags TEXT DEFAULT '[]',
		position INTEGER NOT NULL,
		PRIMARY KEY (collection_id, id),
		FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_saved_requests_collection ON saved_requests(collection_id, position);

	CREATE TABLE IF NOT EXISTS environments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		variables TEXT DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (s *SQLiteStorage) getSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func setSetting(q querier, key, value string) error {
	_, err := q.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// =============================================================================
// Collection Operations
// =============================================================================

// CreateCollection creates a new collection with a fresh ID
func (s *SQLiteStorage) CreateCollection(name, description, color string) (*model.Collection, error) {
	col := &model.Collection{
		ID:          newID(),
		Name:        name,
		Description: description,
		Color:       color,
		Requests:    []model.Request{},
	}

	_, err := s.db.Exec("INSERT INTO collections (id, name, description, color) VALUES (?, ?, ?, ?)",
		col.ID, col.Name, col.Description, col.Color)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("collection created", "id", col.ID, "name", name)
	return col, nil
}

func collectionExists(q querier, id string) (bool, error) {
	var n int
	if err := q.QueryRow("SELECT COUNT(*) FROM collections WHERE id = ?", id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddRequestToCollection appends a request at the next position
func (s *SQLiteStorage) AddRequestToCollection(collectionID string, req model.Request) (*model.Request, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ok, err := collectionExists(tx, collectionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
	}

	stored := req.Clone()
	if stored.ID == "" {
		stored.ID = newID()
	} else {
		var n int
		if err := tx.QueryRow("SELECT COUNT(*) FROM saved_requests WHERE collection_id = ? AND id = ?",
			collectionID, stored.ID).Scan(&n); err != nil {
			return nil, err
		}
		if n > 0 {
			stored.ID = newID()
		}
	}
	if stored.Headers == nil {
		stored.Headers = make(map[string]string)
	}

	// Get next position
	var maxPos sql.NullInt64
	if err := tx.QueryRow("SELECT MAX(position) FROM saved_requests WHERE collection_id = ?", collectionID).Scan(&maxPos); err != nil {
		return nil, err
	}
	stored.Position = 0
	if maxPos.Valid {
		stored.Position = int(maxPos.Int64) + 1
	}

	if err := insertRequest(tx, collectionID, stored); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &stored, nil
}

func insertRequest(q querier, collectionID string, req model.Request) error {
	_, err := q.Exec(`
		INSERT INTO saved_requests (id, collection_id, name, method, url, headers, body, description, tags, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, collectionID, req.Name, req.Method, req.URL, mustJSON(req.Headers), req.Body,
		req.Description, mustJSON(req.Tags), req.Position)
	return err
}

// UpdateRequest replaces the stored fields of a request, keeping its position
func (s *SQLiteStorage) UpdateRequest(collectionID string, req model.Request) error {
	result, err := s.db.Exec(`
		UPDATE saved_requests
		SET name = ?, method = ?, url = ?, headers = ?, body = ?, description = ?, tags = ?
		WHERE collection_id = ? AND id = ?`,
		req.Name, req.Method, req.URL, mustJSON(req.Headers), req.Body, req.Description, mustJSON(req.Tags),
		collectionID, req.ID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, req.ID)
	}
	return nil
}

// DeleteRequest removes one request; remaining positions keep their order
func (s *SQLiteStorage) DeleteRequest(collectionID, requestID string) error {
	result, err := s.db.Exec("DELETE FROM saved_requests WHERE collection_id = ? AND id = ?", collectionID, requestID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	return nil
}

func (s *SQLiteStorage) loadRequests(collectionID string) ([]model.Request, error) {
	rows, err := s.db.Query(`
		SELECT id, name, method, url, headers, body, description, tags, position
		FROM saved_requests
		WHERE collection_id = ?
		ORDER BY position`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []model.Request{}
	for rows.Next() {
		var req model.Request
		var headersJSON, tagsJSON string
		if err := rows.Scan(&req.ID, &req.Name, &req.Method, &req.URL, &headersJSON, &req.Body,
			&req.Description, &tagsJSON, &req.Position); err != nil {
			return nil, err
		}
		// Malformed JSON columns degrade to empty values
		req.Headers, _ = parseJSONMap(headersJSON)
		_ = json.Unmarshal([]byte(tagsJSON), &req.Tags)
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// GetCollections loads all collections keyed by ID
func (s *SQLiteStorage) GetCollections() (map[string]*model.Collection, error) {
	rows, err := s.db.Query("SELECT id, name, description, color FROM collections")
	if err != nil {
		return nil, err
	}

	var cols []*model.Collection
	for rows.Next() {
		col := &model.Collection{}
		if err := rows.Scan(&col.ID, &col.Name, &col.Description, &col.Color); err != nil {
			rows.Close()
			return nil, err
		}
		cols = append(cols, col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]*model.Collection, len(cols))
	for _, col := range cols {
		if col.Requests, err = s.loadRequests(col.ID); err != nil {
			return nil, err
		}
		out[col.ID] = col
	}
	return out, nil
}

// GetCollection gets a collection by ID
func (s *SQLiteStorage) GetCollection(id string) (*model.Collection, error) {
	col := &model.Collection{}
	err := s.db.QueryRow("SELECT id, name, description, color FROM collections WHERE id = ?", id).
		Scan(&col.ID, &col.Name, &col.Description, &col.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if col.Requests, err = s.loadRequests(id); err != nil {
		return nil, err
	}
	return col, nil
}

// DeleteCollection deletes a collection; its requests cascade
func (s *SQLiteStorage) DeleteCollection(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM saved_requests WHERE collection_id = ?", id); err != nil {
		return err
	}

	result, err := tx.Exec("DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}

	if _, err := tx.Exec("DELETE FROM settings WHERE key = ? AND value = ?", settingActiveCollection, id); err != nil {
		return err
	}

	return tx.Commit()
}

// SetActiveCollectionID records the active collection; empty clears it
func (s *SQLiteStorage) SetActiveCollectionID(id string) error {
	if id == "" {
		_, err := s.db.Exec("DELETE FROM settings WHERE key = ?", settingActiveCollection)
		return err
	}

	ok, err := collectionExists(s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	return setSetting(s.db, settingActiveCollection, id)
}

// ActiveCollectionID returns the active collection ID, or "" if none
func (s *SQLiteStorage) ActiveCollectionID() (string, error) {
	return s.getSetting(settingActiveCollection)
}

// =============================================================================
// Environment Operations
// =============================================================================

// LoadEnvironments loads all environments and the active pointer
func (s *SQLiteStorage) LoadEnvironments() (*model.Environments, error) {
	envs := &model.Environments{Environments: make(map[string]*model.Environment)}

	rows, err := s.db.Query("SELECT id, name, variables FROM environments")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		env := &model.Environment{}
		var varsJSON string
		if err := rows.Scan(&env.ID, &env.Name, &varsJSON); err != nil {
			return nil, err
		}
		env.Variables, _ = parseJSONMap(varsJSON)
		envs.Environments[env.ID] = env
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if envs.Active, err = s.getSetting(settingActiveEnvironment); err != nil {
		return nil, err
	}
	return envs, nil
}

// SaveEnvironments replaces all environments with the provided data
func (s *SQLiteStorage) SaveEnvironments(envs *model.Environments) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM environments"); err != nil {
		return err
	}

	for id, env := range envs.Environments {
		if _, err := tx.Exec("INSERT INTO environments (id, name, variables) VALUES (?, ?, ?)",
			id, env.Name, mustJSON(env.Variables)); err != nil {
			return err
		}
	}

	if err := setSetting(tx, settingActiveEnvironment, envs.Active); err != nil {
		return err
	}

	return tx.Commit()
}

// =============================================================================
// History Operations
// =============================================================================

func scanHistory(scan func(dest ...any) error) (model.HistoryEntry, error) {
	var entry model.HistoryEntry
	var headersJSON string
	var respStatusCode, respDurationMs sql.NullInt64
	var respStatus, respHeaders, respBody sql.NullString

	err := scan(
		&entry.ID, &entry.Timestamp, &entry.Method, &entry.URL,
		&headersJSON, &entry.Body,
		&respStatusCode, &respStatus, &respHeaders,
		&respBody, &respDurationMs,
	)
	if err != nil {
		return entry, err
	}

	entry.Headers, _ = parseJSONMap(headersJSON)

	if respStatusCode.Valid {
		entry.Response = &model.Response{
			StatusCode: int(respStatusCode.Int64),
			Status:     respStatus.String,
			Body:       respBody.String,
			DurationMs: respDurationMs.Int64,
		}
		entry.Response.Headers, _ = parseJSONMap(respHeaders.String)
	}

	return entry, nil
}

const historyColumns = `id, timestamp, method, url, headers, body,
	response_status_code, response_status, response_headers,
	response_body, response_duration_ms`

// LoadHistory loads the request history from the database
func (s *SQLiteStorage) LoadHistory() (*model.History, error) {
	rows, err := s.db.Query(`SELECT `+historyColumns+` FROM history ORDER BY timestamp DESC LIMIT ?`, s.historyLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := &model.History{Entries: []model.HistoryEntry{}}
	for rows.Next() {
		entry, err := scanHistory(rows.Scan)
		if err != nil {
			return nil, err
		}
		history.Entries = append(history.Entries, entry)
	}

	return history, rows.Err()
}

// AddToHistory adds an entry and trims the table to the history limit
func (s *SQLiteStorage) AddToHistory(entry model.HistoryEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertHistoryEntry(tx, entry); err != nil {
		return err
	}

	_, err = tx.Exec(`
		DELETE FROM history
		WHERE id NOT IN (
			SELECT id FROM history ORDER BY timestamp DESC LIMIT ?
		)`, s.historyLimit)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func insertHistoryEntry(q querier, entry model.HistoryEntry) error {
	var respStatusCode, respDurationMs sql.NullInt64
	var respStatus, respHeaders, respBody sql.NullString

	if entry.Response != nil {
		respStatusCode = sql.NullInt64{Int64: int64(entry.Response.StatusCode), Valid: true}
		respStatus = sql.NullString{String: entry.Response.Status, Valid: true}
		respHeaders = sql.NullString{String: mustJSON(entry.Response.Headers), Valid: true}
		respBody = sql.NullString{String: entry.Response.Body, Valid: true}
		respDurationMs = sql.NullInt64{Int64: entry.Response.DurationMs, Valid: true}
	}

	_, err := q.Exec(`
		INSERT OR REPLACE INTO history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp, entry.Method, entry.URL, mustJSON(entry.Headers), entry.Body,
		respStatusCode, respStatus, respHeaders, respBody, respDurationMs,
	)
	return err
}

// ClearHistory clears all history
func (s *SQLiteStorage) ClearHistory() error {
	_, err := s.db.Exec("DELETE FROM history")
	return err
}

// GetHistoryEntry gets a specific entry by ID; nil if absent
func (s *SQLiteStorage) GetHistoryEntry(id string) (*model.HistoryEntry, error) {
	row := s.db.QueryRow(`SELECT `+historyColumns+` FROM history WHERE id = ?`, id)
	entry, err := scanHistory(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// =============================================================================
// Migration from JSON
// =============================================================================

// migrateFromJSON copies data written by the JSON backend into an empty
// database, then renames the source files so it runs once.
func (s *SQLiteStorage) migrateFromJSON() error {
	var count int
	for _, table := range []string{"history", "collections", "environments"} {
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
	}

	source := &JSONStorage{dataDir: s.dataDir, historyLimit: s.historyLimit, logger: s.logger}
	doc, err := source.load()
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, entry := range doc.history.Entries {
		if err := insertHistoryEntry(tx, entry); err != nil {
			return err
		}
	}

	for _, col := range doc.collections.Collections {
		if _, err := tx.Exec("INSERT INTO collections (id, name, description, color) VALUES (?, ?, ?, ?)",
			col.ID, col.Name, col.Description, col.Color); err != nil {
			return err
		}
		for i, req := range col.Requests {
			req.Position = i
			if err := insertRequest(tx, col.ID, req); err != nil {
				return err
			}
		}
	}
	if doc.collections.Active != "" {
		if err := setSetting(tx, settingActiveCollection, doc.collections.Active); err != nil {
			return err
		}
	}

	for id, env := range doc.environments.Environments {
		if _, err := tx.Exec("INSERT INTO environments (id, name, variables) VALUES (?, ?, ?)",
			id, env.Name, mustJSON(env.Variables)); err != nil {
			return err
		}
	}
	if doc.environments.Active != "" {
		if err := setSetting(tx, settingActiveEnvironment, doc.environments.Active); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	migrated := 0
	for _, name := range []string{historyFile, collectionsFile, environmentsFile} {
		path := filepath.Join(s.dataDir, name)
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, path+".migrated"); err != nil {
				s.logger.Warn("could not rename migrated file", "path", path, "error", err)
			}
			migrated++
		}
	}
	if migrated > 0 {
		s.logger.Info("migrated JSON data into sqlite", "files", migrated)
	}

	return nil
}
