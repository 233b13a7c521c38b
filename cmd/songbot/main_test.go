package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/songbot/internal/delivery"
	"github.com/handiism/songbot/internal/pipeline"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "songbot.json")
	content := `{"cache_dir": "` + filepath.ToSlash(filepath.Join(dir, "cache")) + `", "work_dir": "` + filepath.ToSlash(filepath.Join(dir, "work")) + `"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCacheSweep(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", writeConfig(t), "cache", "sweep"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Removed 0 expired entries")
}

func TestRun_RequiresInput(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeConfig(t), "run", "--out", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to do")
}

func TestReplyAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

	att, err := replyAttachment(path)
	require.NoError(t, err)
	id, err := delivery.ContentID(path)
	require.NoError(t, err)
	assert.Equal(t, id, att.UniqueID)
	assert.Equal(t, path, att.FileID)
	assert.Equal(t, "song.mp3", att.FileName)
}

func TestRenderSummary(t *testing.T) {
	res := pipeline.Result{Delivered: []delivery.Delivered{{Path: "/out/Song.mp3"}}}
	summary := renderSummary(res, "/out/songbot.m3u")
	assert.Contains(t, summary, "1 file(s) delivered")
	assert.Contains(t, summary, "Song.mp3")
	assert.Contains(t, summary, "songbot.m3u")
}
