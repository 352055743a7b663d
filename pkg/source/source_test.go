package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/nativestub/pkg/util"
)

func TestFile_Text(t *testing.T) {
	f := New("Mod.swift", `Name("Calculator")`)

	text, err := f.Text(5, 12)
	require.NoError(t, err)
	assert.Equal(t, `"Calculator"`, text)

	_, err = f.Text(10, 50)
	assert.Error(t, err)
}

func TestFile_IdentifierStripsQuotes(t *testing.T) {
	f := New("Mod.swift", `Function("add") { }`)

	name, err := f.Identifier(9, 5)
	require.NoError(t, err)
	assert.Equal(t, "add", name)

	bare, err := f.Identifier(0, 8)
	require.NoError(t, err)
	assert.Equal(t, "Function", bare)
}

func TestLoader_SpansComeFromCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Mod.swift")
	require.NoError(t, os.WriteFile(path, []byte(`Name("A")`), 0644))

	cache := util.NewFileCache(&util.FileCacheConfig{Logger: util.DiscardLogger()})
	defer cache.Close()
	loader := NewLoader(cache)

	f, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Size())

	name, err := f.Identifier(5, 3)
	require.NoError(t, err)
	assert.Equal(t, "A", name)
	assert.Equal(t, int64(1), cache.Stats().CacheHits, "span lookups are served by the mapping")

	_, err = f.Text(5, 50)
	assert.Error(t, err)
}

func TestLoader_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Mod.swift")
	require.NoError(t, os.WriteFile(path, []byte(`Name("A")`), 0644))

	cache := util.NewFileCache(&util.FileCacheConfig{Logger: util.DiscardLogger()})
	defer cache.Close()
	loader := NewLoader(cache)

	_, err := loader.Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`Name("Bee")`), 0644))
	f, err := loader.Reload(path)
	require.NoError(t, err)

	name, err := f.Identifier(5, 5)
	require.NoError(t, err)
	assert.Equal(t, "Bee", name)
	assert.Equal(t, int64(2), cache.Stats().FilesLoaded)
}

func TestLoader_MissingFile(t *testing.T) {
	cache := util.NewFileCache(&util.FileCacheConfig{Logger: util.DiscardLogger()})
	defer cache.Close()

	_, err := NewLoader(cache).Load(filepath.Join(t.TempDir(), "missing.swift"))
	assert.Error(t, err)
}
