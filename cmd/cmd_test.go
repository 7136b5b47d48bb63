package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedsharma/apiplay/internal/model"
	"github.com/vedsharma/apiplay/internal/storage"
)

func TestParseHeaders(t *testing.T) {
	got := parseHeaders([]string{"Accept: application/json", "X-Url: http://a:b", "broken", " Spaced :  v "})
	assert.Equal(t, map[string]string{
		"Accept": "application/json",
		"X-Url":  "http://a:b",
		"Spaced": "v",
	}, got)
}

func TestFilterSensitiveHeaders(t *testing.T) {
	assert.Nil(t, filterSensitiveHeaders(nil))

	got := filterSensitiveHeaders(map[string]string{"Authorization": "Bearer x", "x-api-key": "k", "Accept": "*/*"})
	assert.Equal(t, map[string]string{"Authorization": "[REDACTED]", "x-api-key": "[REDACTED]", "Accept": "*/*"}, got)
}

func TestHasSensitiveBody(t *testing.T) {
	assert.True(t, hasSensitiveBody(`{"Password": "x"}`))
	assert.False(t, hasSensitiveBody(`{"name": "Ada"}`))
}

func TestFindCollection(t *testing.T) {
	store := storage.NewMemoryStorage(storage.Options{})
	shop, err := store.CreateCollection("Shop", "", "")
	require.NoError(t, err)
	_, err = store.CreateCollection("Dup", "", "")
	require.NoError(t, err)
	_, err = store.CreateCollection("dup", "", "")
	require.NoError(t, err)

	got, err := findCollection(store, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, got.ID)

	got, err = findCollection(store, "shop")
	require.NoError(t, err)
	assert.Equal(t, shop.ID, got.ID)

	_, err = findCollection(store, "Dup")
	assert.ErrorContains(t, err, "more than one")

	_, err = findCollection(store, "missing")
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)

	_, err = findCollection(store, "")
	assert.ErrorContains(t, err, "no active collection")

	require.NoError(t, store.SetActiveCollectionID(shop.ID))
	got, err = findCollection(store, "")
	require.NoError(t, err)
	assert.Equal(t, shop.ID, got.ID)
}

func TestFindRequest(t *testing.T) {
	col := &model.Collection{Name: "c", Requests: []model.Request{
		{ID: "a1", Name: "List users"},
		{ID: "b2", Name: "Create user"},
	}}

	req, err := findRequest(col, "b2")
	require.NoError(t, err)
	assert.Equal(t, "Create user", req.Name)

	req, err = findRequest(col, "1")
	require.NoError(t, err)
	assert.Equal(t, "a1", req.ID)

	req, err = findRequest(col, "create USER")
	require.NoError(t, err)
	assert.Equal(t, "b2", req.ID)

	_, err = findRequest(col, "3")
	assert.ErrorIs(t, err, storage.ErrRequestNotFound)
}

func TestReadBodyFromFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "body.json"), []byte(`{"a":1}`), 0600))

	body, err := readBodyFromFile("body.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, body)

	_, err = readBodyFromFile("../outside.json")
	assert.ErrorContains(t, err, "access denied")
}
