package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "nested", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndex_UpsertAndGet(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	archivedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	record := Record{
		Locator:     "https://e-hentai.org/g/1/abc/",
		Title:       "First Gallery",
		Kind:        "Doujinshi",
		Length:      41,
		ImagesSaved: 40,
		Tags:        []string{"language:korean", "artist:hota."},
		SavePath:    "/archive/Doujinshi/First Gallery",
		ArchivedAt:  archivedAt,
	}
	require.NoError(t, idx.Upsert(ctx, record))

	got, err := idx.Get(ctx, record.Locator)
	require.NoError(t, err)
	assert.Equal(t, record.Title, got.Title)
	assert.Equal(t, record.Tags, got.Tags)
	assert.Equal(t, 40, got.ImagesSaved)
	assert.True(t, archivedAt.Equal(got.ArchivedAt))

	// 同じロケータは更新される
	record.ImagesSaved = 41
	require.NoError(t, idx.Upsert(ctx, record))
	got, err = idx.Get(ctx, record.Locator)
	require.NoError(t, err)
	assert.Equal(t, 41, got.ImagesSaved)

	records, err := idx.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestIndex_GetNotFound(t *testing.T) {
	idx := openTestIndex(t)

	_, err := idx.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIndex_ListOrder(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, idx.Upsert(ctx, Record{Locator: "/g/1/a/", Title: "old", ArchivedAt: base}))
	require.NoError(t, idx.Upsert(ctx, Record{Locator: "/g/2/b/", Title: "new", ArchivedAt: base.Add(time.Hour)}))
	require.NoError(t, idx.Upsert(ctx, Record{Locator: "/g/3/c/", Title: "now"}))

	records, err := idx.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"now", "new", "old"}, []string{records[0].Title, records[1].Title, records[2].Title})
	assert.Nil(t, records[2].Tags)
}

func TestIndex_RejectsEmptyLocator(t *testing.T) {
	idx := openTestIndex(t)

	assert.Error(t, idx.Upsert(context.Background(), Record{Title: "x"}))
}

func TestIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(context.Background(), Record{Locator: "/g/1/a/", Title: "kept"}))
	require.NoError(t, idx.Close())

	idx, err = Open(path)
	require.NoError(t, err)
	defer idx.Close()

	got, err := idx.Get(context.Background(), "/g/1/a/")
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Title)
	assert.Equal(t, path, idx.Path())
}
