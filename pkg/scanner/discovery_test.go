package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFiles_BasicDirectory(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "CalculatorModule.swift", "")
	writeFile(t, filepath.Join(tmp, "ios", "Sources"), "CameraModule.swift", "")
	writeFile(t, tmp, "README.md", "")

	files, err := DiscoverFiles(tmp, DefaultScanConfig())
	require.NoError(t, err)

	for _, f := range files {
		assert.True(t, filepath.IsAbs(f), "expected absolute path, got %s", f)
	}
	names := fileNames(files)
	assert.ElementsMatch(t, []string{"CalculatorModule.swift", "CameraModule.swift"}, names)
}

func TestDiscoverFiles_ExcludesDependenciesAndTests(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "MapModule.swift", "")
	writeFile(t, filepath.Join(tmp, "Pods", "Alamofire"), "Session.swift", "")
	writeFile(t, filepath.Join(tmp, "ios", "Pods", "Lib"), "Lib.swift", "")
	writeFile(t, filepath.Join(tmp, ".build", "debug"), "Gen.swift", "")
	writeFile(t, filepath.Join(tmp, "node_modules", "expo"), "ExpoModule.swift", "")
	writeFile(t, tmp, "MapModuleTests.swift", "")
	writeFile(t, filepath.Join(tmp, "ios", "Tests"), "Helpers.swift", "")

	files, err := DiscoverFiles(tmp, DefaultScanConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"MapModule.swift"}, fileNames(files))
}

func TestDiscoverFiles_SortedOutput(t *testing.T) {
	tmp := t.TempDir()
	for _, name := range []string{"c.swift", "a.swift", "b.swift"} {
		writeFile(t, tmp, name, "")
	}

	files, err := DiscoverFiles(tmp, DefaultScanConfig())
	require.NoError(t, err)
	require.Len(t, files, 3)
	for i := 1; i < len(files); i++ {
		assert.LessOrEqual(t, files[i-1], files[i], "files should be sorted")
	}
}

func TestDiscoverFiles_EmptyDirectory(t *testing.T) {
	files, err := DiscoverFiles(t.TempDir(), DefaultScanConfig())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverFiles_InvalidGlob(t *testing.T) {
	cfg := DefaultScanConfig()
	cfg.Exclude = append(cfg.Exclude, "[invalid")
	_, err := DiscoverFiles(t.TempDir(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}

func TestMatches(t *testing.T) {
	root := "/project"
	cfg := DefaultScanConfig()

	assert.True(t, Matches(root, "/project/ios/MapModule.swift", cfg))
	assert.False(t, Matches(root, "/project/ios/MapModule.m", cfg))
	assert.False(t, Matches(root, "/project/Pods/X/Y.swift", cfg))
	assert.False(t, Matches(root, "/project/MapModuleTests.swift", cfg))
	assert.False(t, Matches(root, "/elsewhere/MapModule.swift", cfg))

	assert.True(t, Excluded(root, "/project/Pods", cfg))
	assert.True(t, Excluded(root, "/project/node_modules", cfg))
	assert.False(t, Excluded(root, "/project", cfg))
	assert.False(t, Excluded(root, "/project/ios", cfg))
}

// --- helpers ---

func fileNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}
