package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/nativestub/pkg/scanner"
	"github.com/gnana997/nativestub/pkg/structure"
)

const testProject = "testdata/project"

func TestLoadProjectConfig_Missing(t *testing.T) {
	cfg, err := loadProjectConfig(filepath.Join(t.TempDir(), configFile))
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadProjectConfig_Testdata(t *testing.T) {
	cfg, err := loadProjectConfig(filepath.Join(testProject, configFile))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "xcrun sourcekitten", cfg.Tool)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 128, cfg.CacheSize)
	assert.Equal(t, "src/__mocks__", cfg.OutDir)
	assert.True(t, cfg.Verify)
	assert.Equal(t, []string{"Examples/**"}, cfg.Exclude)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadProjectConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tool: [unterminated\n"), 0644))

	_, err := loadProjectConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestResolveSettings_Defaults(t *testing.T) {
	cmd := parsedCmd(t, "generate")

	st, err := resolveSettings(cmd, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, structure.DefaultCommand, st.Tool)
	assert.Equal(t, scanner.DefaultOutDir, st.OutDir)
	assert.False(t, st.Verify)
	assert.Zero(t, st.Timeout)
	assert.Zero(t, st.CacheSize)
	assert.Equal(t, scanner.DefaultScanConfig(), st.Scan)
}

func TestResolveSettings_ConfigThenFlags(t *testing.T) {
	cmd := parsedCmd(t, "generate", "--tool", "sourcekitten", "--out", "gen", "--exclude", "Legacy/**")

	st, err := resolveSettings(cmd, testProject)
	require.NoError(t, err)

	// Flags win.
	assert.Equal(t, "sourcekitten", st.Tool)
	assert.Equal(t, "gen", st.OutDir)
	// Config fills the rest.
	assert.Equal(t, 30*time.Second, st.Timeout)
	assert.Equal(t, 128, st.CacheSize)
	assert.True(t, st.Verify)
	assert.Equal(t, "debug", st.LogLevel)
	// Excludes accumulate on top of the defaults.
	assert.Contains(t, st.Scan.Exclude, "Pods/**")
	assert.Contains(t, st.Scan.Exclude, "Examples/**")
	assert.Contains(t, st.Scan.Exclude, "Legacy/**")
}

func TestResolveSettings_ExplicitConfigFlag(t *testing.T) {
	cmd := parsedCmd(t, "inspect", "--config", filepath.Join(testProject, configFile))

	st, err := resolveSettings(cmd, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "xcrun sourcekitten", st.Tool)
}

func TestResolveSettings_FlagCanDisableConfiguredVerify(t *testing.T) {
	cmd := parsedCmd(t, "generate", "--verify=false")

	st, err := resolveSettings(cmd, testProject)
	require.NoError(t, err)
	assert.False(t, st.Verify)
}

func TestAppOutDir(t *testing.T) {
	a := &app{root: "/project", settings: settings{OutDir: "mocks"}}
	assert.Equal(t, filepath.Join("/project", "mocks"), a.outDir())

	a.settings.OutDir = "/tmp/stubs"
	assert.Equal(t, "/tmp/stubs", a.outDir())
}

// parsedCmd returns the named subcommand with args parsed as its flags.
func parsedCmd(t *testing.T, name string, args ...string) *cobra.Command {
	t.Helper()
	cmd, _, err := newRootCmd().Find([]string{name})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}
