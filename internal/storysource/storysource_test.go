package storysource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBundleFile(t *testing.T, dir, storyID, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, storyID+".json"), []byte(body), 0o644))
}

func TestLocalSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeBundleFile(t, dir, "story-a", `{
		"storyId": "story-a",
		"title": "A Story",
		"defaultLocale": "en",
		"knownChats": ["mom", "work"],
		"compiled": {"chunks": []}
	}`)

	src := NewLocalSource(dir)
	bundle, err := src.Load(context.Background(), "story-a")
	require.NoError(t, err)
	assert.Equal(t, "story-a", bundle.StoryID)
	assert.Equal(t, "A Story", bundle.Title)
	assert.Equal(t, []string{"mom", "work"}, bundle.KnownChats)
}

func TestLocalSource_Load_MissingFile(t *testing.T) {
	src := NewLocalSource(t.TempDir())
	_, err := src.Load(context.Background(), "nope")
	assert.Error(t, err)
}

func TestLocalSource_Load_FallsBackToRequestedID(t *testing.T) {
	dir := t.TempDir()
	writeBundleFile(t, dir, "story-b", `{"title": "No ID Field", "compiled": {}}`)

	src := NewLocalSource(dir)
	bundle, err := src.Load(context.Background(), "story-b")
	require.NoError(t, err)
	assert.Equal(t, "story-b", bundle.StoryID)
}

func TestPrefetchAll_ConcurrentLoads(t *testing.T) {
	dir := t.TempDir()
	writeBundleFile(t, dir, "s1", `{"storyId":"s1","compiled":{}}`)
	writeBundleFile(t, dir, "s2", `{"storyId":"s2","compiled":{}}`)

	src := NewLocalSource(dir)
	bundles, errs := PrefetchAll(context.Background(), src, []string{"s1", "s2"}, 2)
	assert.Empty(t, errs)
	assert.Len(t, bundles, 2)
	assert.Equal(t, "s1", bundles["s1"].StoryID)
	assert.Equal(t, "s2", bundles["s2"].StoryID)
}

func TestPrefetchAll_CollectsErrors(t *testing.T) {
	dir := t.TempDir()
	writeBundleFile(t, dir, "s1", `{"storyId":"s1","compiled":{}}`)

	src := NewLocalSource(dir)
	bundles, errs := PrefetchAll(context.Background(), src, []string{"s1", "missing"}, 2)
	assert.Len(t, errs, 1)
	assert.Len(t, bundles, 1)
}

func TestRemoteSource_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stories/story-a", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Bundle{
			StoryID:       "story-a",
			Title:         "A Story",
			DefaultLocale: "en",
			KnownChats:    []string{"mom"},
		})
	}))
	defer srv.Close()

	src := NewRemoteSource(srv.URL)
	bundle, err := src.Load(context.Background(), "story-a")
	require.NoError(t, err)
	assert.Equal(t, "story-a", bundle.StoryID)
	assert.Equal(t, "A Story", bundle.Title)
}

func TestRemoteSource_Load_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewRemoteSource(srv.URL)
	src.client.SetRetryCount(0)
	_, err := src.Load(context.Background(), "missing")
	assert.Error(t, err)
}
