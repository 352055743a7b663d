package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gnana997/nativestub/pkg/scanner"
	"github.com/gnana997/nativestub/pkg/structure"
	"github.com/gnana997/nativestub/pkg/util"
)

// configFile is the project config location, relative to the project root.
const configFile = ".nativestub/config.yaml"

// ProjectConfig holds the contents of .nativestub/config.yaml.
type ProjectConfig struct {
	Version      string        `yaml:"version"`
	Tool         string        `yaml:"tool"`
	CompilerArgs []string      `yaml:"compiler_args"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheSize    int           `yaml:"cache_size"`
	OutDir       string        `yaml:"out_dir"`
	Verify       bool          `yaml:"verify"`
	Include      []string      `yaml:"include"`
	Exclude      []string      `yaml:"exclude"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	CallLog      string        `yaml:"call_log"`
}

// loadProjectConfig reads the config file at path.
// Returns nil (no error) if the file does not exist.
func loadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// settings is the effective configuration of one command run.
type settings struct {
	Tool         string
	CompilerArgs []string
	Timeout      time.Duration
	CacheSize    int
	OutDir       string
	Verify       bool
	Scan         scanner.ScanConfig
	LogLevel     string
	LogFormat    string
	CallLog      string
}

func defaultSettings() settings {
	return settings{
		Tool:      structure.DefaultCommand,
		OutDir:    scanner.DefaultOutDir,
		Scan:      scanner.DefaultScanConfig(),
		LogLevel:  string(util.LevelInfo),
		LogFormat: string(util.FormatText),
	}
}

// resolveSettings applies the fallback chain:
//  1. Flags explicitly set on the command line
//  2. The project config (--config, or .nativestub/config.yaml under root)
//  3. Built-in defaults
func resolveSettings(cmd *cobra.Command, root string) (settings, error) {
	st := defaultSettings()

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = filepath.Join(root, configFile)
	}
	cfg, err := loadProjectConfig(path)
	if err != nil {
		return st, err
	}
	if cfg != nil {
		applyConfig(&st, cfg)
	}
	applyFlags(&st, cmd)
	return st, nil
}

func applyConfig(st *settings, cfg *ProjectConfig) {
	if cfg.Tool != "" {
		st.Tool = cfg.Tool
	}
	if cfg.CompilerArgs != nil {
		st.CompilerArgs = cfg.CompilerArgs
	}
	if cfg.Timeout > 0 {
		st.Timeout = cfg.Timeout
	}
	if cfg.CacheSize > 0 {
		st.CacheSize = cfg.CacheSize
	}
	if cfg.OutDir != "" {
		st.OutDir = cfg.OutDir
	}
	st.Verify = st.Verify || cfg.Verify
	if len(cfg.Include) > 0 {
		st.Scan.Include = cfg.Include
	}
	// Extra excludes add to the defaults.
	st.Scan.Exclude = append(st.Scan.Exclude, cfg.Exclude...)
	if cfg.LogLevel != "" {
		st.LogLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" {
		st.LogFormat = cfg.LogFormat
	}
	if cfg.CallLog != "" {
		st.CallLog = cfg.CallLog
	}
}

func applyFlags(st *settings, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("tool") {
		st.Tool, _ = flags.GetString("tool")
	}
	if flags.Changed("timeout") {
		st.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("cache-size") {
		st.CacheSize, _ = flags.GetInt("cache-size")
	}
	if flags.Changed("include") {
		st.Scan.Include, _ = flags.GetStringSlice("include")
	}
	if flags.Changed("exclude") {
		extra, _ := flags.GetStringSlice("exclude")
		st.Scan.Exclude = append(st.Scan.Exclude, extra...)
	}
	if flags.Changed("log-level") {
		st.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		st.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("out") {
		st.OutDir, _ = flags.GetString("out")
	}
	if flags.Changed("verify") {
		st.Verify, _ = flags.GetBool("verify")
	}
	if flags.Changed("call-log") {
		st.CallLog, _ = flags.GetString("call-log")
	}
}
