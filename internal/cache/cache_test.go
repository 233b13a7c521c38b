package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestKeyForURL_Deterministic(t *testing.T) {
	urls := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://music.youtube.com/watch?v=abc-123&t=10",
		"https://soundcloud.com/artist/song?utm=1",
	}

	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			assert.Equal(t, KeyForURL(u), KeyForURL(u))
			assert.Equal(t, KeyForURL(u), KeyForURL(u+"&list=xyz"))
			assert.Equal(t, KeyForURL(u), KeyForURL("  "+u+"\n"))
			assert.Len(t, KeyForURL(u).Name, 64)
		})
	}

	assert.NotEqual(t,
		KeyForURL("https://www.youtube.com/watch?v=a"),
		KeyForURL("https://www.youtube.com/watch?v=b"))
}

func TestStripQueryParams(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc&list=PL1", "https://www.youtube.com/watch?v=abc"},
		{"https://www.youtube.com/watch?list=PL1&v=abc&t=5", "https://www.youtube.com/watch?v=abc&t=5"},
		{"https://www.youtube.com/watch?v=abc", "https://www.youtube.com/watch?v=abc"},
		{"https://youtu.be/abc?list=PL1", "https://youtu.be/abc"},
		{"https://soundcloud.com/a/b", "https://soundcloud.com/a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripQueryParams(tt.in, "list"))
		})
	}
}

func TestKeyForFileID(t *testing.T) {
	assert.Equal(t, "AgADxyz_1", KeyForFileID("AgADxyz_1").Name)
	assert.Equal(t, "a_b", KeyForFileID("a/b").Name)
	assert.Equal(t, ".jpg", KeyForFileID("x").WithExt("jpg").Ext)
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	key := KeyForURL("https://soundcloud.com/a/b")

	_, ok := s.Get(key)
	assert.False(t, ok)
	assert.False(t, s.Has(key))

	path, err := s.Put(context.Background(), key, strings.NewReader("audio"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), key.Name+".mp3"), path)

	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
}

func TestStore_PutOverwrites(t *testing.T) {
	s := newTestStore(t)
	key := KeyForFileID("unique")

	_, err := s.Put(context.Background(), key, strings.NewReader("one"))
	require.NoError(t, err)
	path, err := s.Put(context.Background(), key, strings.NewReader("two"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestStore_PutFileAndExt(t *testing.T) {
	s := newTestStore(t)
	src := filepath.Join(t.TempDir(), "cover.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg"), 0o644))

	key := KeyForURL("https://example.com/p.png").WithExt(".jpg")
	path, err := s.PutFile(context.Background(), key, src)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".jpg"))

	entry, ok := s.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, path, entry.Path)

	require.NoError(t, s.Remove(key))
	assert.False(t, s.Has(key))
}

func TestStore_EvictOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	oldPath, err := s.Put(ctx, KeyForFileID("old"), strings.NewReader("x"))
	require.NoError(t, err)
	freshPath, err := s.Put(ctx, KeyForFileID("fresh"), strings.NewReader("y"))
	require.NoError(t, err)
	sentinel := filepath.Join(s.Dir(), DefaultSentinel)
	require.NoError(t, os.WriteFile(sentinel, nil, 0o644))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))
	require.NoError(t, os.Chtimes(sentinel, past, past))

	removed, err := s.EvictOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, freshPath)
	assert.FileExists(t, sentinel)
}

func TestStore_EvictCustomSentinel(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Dir: dir, Sentinel: "KEEP"})
	require.NoError(t, err)

	keep := filepath.Join(dir, "KEEP")
	require.NoError(t, os.WriteFile(keep, nil, 0o644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(keep, past, past))

	removed, err := s.EvictOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.FileExists(t, keep)
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
