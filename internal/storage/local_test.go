package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutGetRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := BuildArchiveKey("shufersal", time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC), "PriceFull.xml")

	require.NoError(t, s.Put(ctx, key, []byte("<Root/>"), &Metadata{ChainSlug: "shufersal", OriginalName: "PriceFull.xml"}))

	content, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "<Root/>", string(content))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := s.GetInfo(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, info.Metadata)
	assert.Equal(t, "shufersal", info.Metadata.ChainSlug)
}

func TestLocalStorageExistsFalseForMissingKey(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	exists, err := s.Exists(context.Background(), "archives/nope/2026-07-30/x.xml")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorageListFiltersByPrefix(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	date := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, BuildArchiveKey("shufersal", date, "a.xml"), []byte("a"), nil))
	require.NoError(t, s.Put(ctx, BuildArchiveKey("shufersal", date, "b.xml"), []byte("b"), nil))
	require.NoError(t, s.Put(ctx, BuildArchiveKey("victory", date, "c.xml"), []byte("c"), nil))

	keys, err := s.List(ctx, "archives/shufersal")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestLocalStorageDeleteRemovesContentAndMetadata(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "archives/shufersal/2026-07-30/a.xml"
	require.NoError(t, s.Put(ctx, key, []byte("a"), &Metadata{ChainSlug: "shufersal"}))
	require.NoError(t, s.Delete(ctx, key))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBuildExpandedKeyStripsZipExtensionCaseInsensitively(t *testing.T) {
	date := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	key := BuildExpandedKey("shufersal", date, "Prices.ZIP", "PriceFull.xml")
	assert.Equal(t, "expanded/shufersal/2026-07-30/Prices/PriceFull.xml", key)
}

func TestComputeChecksumIsDeterministicAndContentSensitive(t *testing.T) {
	a := ComputeChecksum([]byte("hello"))
	b := ComputeChecksum([]byte("hello"))
	c := ComputeChecksum([]byte("world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPruneBeforeRemovesOnlyDateDirsOlderThanCutoff(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	old := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, BuildArchiveKey("shufersal", old, "a.xml"), []byte("a"), nil))
	require.NoError(t, s.Put(ctx, BuildArchiveKey("shufersal", recent, "b.xml"), []byte("b"), nil))
	require.NoError(t, s.Put(ctx, BuildArchiveKey("victory", old, "c.xml"), []byte("c"), nil))

	removed, err := s.PruneBefore(ctx, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	keys, err := s.List(ctx, "archives")
	require.NoError(t, err)
	assert.Equal(t, []string{"archives/shufersal/2026-07-30/b.xml"}, keys)
}

func TestPruneBeforeIsANoOpWhenArchivesDirDoesNotExist(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	removed, err := s.PruneBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestPruneBeforeLeavesNonDateDirectoriesAlone(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "archives/shufersal/latest/a.xml", []byte("a"), nil))

	removed, err := s.PruneBefore(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	exists, err := s.Exists(ctx, "archives/shufersal/latest/a.xml")
	require.NoError(t, err)
	assert.True(t, exists)
}
