package logging

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRotatorEmptyPath(t *testing.T) {
	_, err := NewFileRotator(&Config{})
	assert.Error(t, err)
}

func TestFileRotatorRotate(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{FilePath: filepath.Join(dir, "focusd.log"), MaxBackups: 5}

	r, err := NewFileRotator(cfg)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Write([]byte("first\n"))
	require.NoError(t, err)
	require.NoError(t, r.Rotate())
	_, err = r.Write([]byte("second\n"))
	require.NoError(t, err)

	files, err := r.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, cfg.FilePath, files[0])

	rotated, err := os.ReadFile(files[1])
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(rotated))

	current, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(current))
}

func TestFileRotatorCompress(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{FilePath: filepath.Join(dir, "focusd.log"), MaxBackups: 5, Compress: true}

	r, err := NewFileRotator(cfg)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Write([]byte("compressed line\n"))
	require.NoError(t, err)
	require.NoError(t, r.Rotate())

	files, err := r.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.True(t, strings.HasSuffix(files[1], ".gz"), files[1])

	f, err := os.Open(files[1])
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, "compressed line\n", string(data))
}

func TestFileRotatorPrune(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{FilePath: filepath.Join(dir, "focusd.log"), MaxBackups: 2}

	r, err := NewFileRotator(cfg)
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 5; i++ {
		_, err := r.Write([]byte("x\n"))
		require.NoError(t, err)
		require.NoError(t, r.Rotate())
	}

	files, err := r.Files()
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestFileRotatorSizeLimit(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{FilePath: filepath.Join(dir, "focusd.log"), MaxSize: 1, MaxBackups: 3}

	r, err := NewFileRotator(cfg)
	require.NoError(t, err)
	defer r.Close()

	chunk := make([]byte, 600*1024)
	_, err = r.Write(chunk)
	require.NoError(t, err)
	_, err = r.Write(chunk)
	require.NoError(t, err)

	files, err := r.Files()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	info, err := os.Stat(cfg.FilePath)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size())
}
