package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/extractor"
	"github.com/gnana997/nativestub/pkg/mockgen"
	"github.com/gnana997/nativestub/pkg/parser"
	"github.com/gnana997/nativestub/pkg/source"
	"github.com/gnana997/nativestub/pkg/structure"
	"github.com/gnana997/nativestub/pkg/util"
)

// Scanner orchestrates the pipeline. It is not safe for concurrent use:
// files are processed strictly in sequence.
type Scanner struct {
	index  *structure.Index
	cache  util.FileCache
	loader *source.Loader
	ext    *extractor.Extractor
	pm     *parser.ParserManager
	log    *slog.Logger
}

// NewScanner creates a scanner around index.
func NewScanner(index *structure.Index, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	cacheCfg := util.DefaultFileCacheConfig()
	cacheCfg.Logger = logger
	cache := util.NewFileCache(cacheCfg)

	return &Scanner{
		index:  index,
		cache:  cache,
		loader: source.NewLoader(cache),
		ext:    extractor.New(index, logger),
		pm:     parser.NewParserManager(logger),
		log:    logger,
	}
}

// Run discovers files under rootDir and extracts their modules.
func (s *Scanner) Run(ctx context.Context, rootDir string, cfg ScanConfig) (*Result, error) {
	totalStart := time.Now()
	startInvocations := s.index.Invocations()
	startCache := s.cache.Stats()
	stats := Stats{}

	// Phase 1: File Discovery
	discoveryStart := time.Now()
	files, err := DiscoverFiles(rootDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	stats.FilesDiscovered = len(files)
	stats.DiscoveryTimeMs = time.Since(discoveryStart).Milliseconds()

	s.log.Info("discovery complete", "files", len(files), "ms", stats.DiscoveryTimeMs)

	// Phase 2: Extraction
	var warnings definition.Warnings
	extractionStart := time.Now()
	modules, failed := s.ExtractAll(ctx, files, &warnings)
	stats.FilesFailed = failed
	stats.FilesExtracted = len(files) - failed
	stats.ModulesFound = len(modules)
	stats.ExtractionTimeMs = time.Since(extractionStart).Milliseconds()
	stats.ToolInvocations = s.index.Invocations() - startInvocations
	cacheStats := s.cache.Stats()
	stats.SpanReads = cacheStats.CacheHits - startCache.CacheHits
	stats.CachedFiles = s.cache.Size()

	s.log.Info("extraction complete",
		"modules", len(modules),
		"failed", failed,
		"tool_invocations", stats.ToolInvocations,
		"span_reads", stats.SpanReads,
		"cached_files", stats.CachedFiles,
		"ms", stats.ExtractionTimeMs)

	stats.TotalTimeMs = time.Since(totalStart).Milliseconds()
	return &Result{
		Modules:  modules,
		Warnings: warnings.Items(),
		Stats:    stats,
	}, nil
}

// Generate runs the pipeline and writes one stub per module.
func (s *Scanner) Generate(ctx context.Context, rootDir string, cfg ScanConfig, opts GenerateOptions) (*Result, error) {
	totalStart := time.Now()

	result, err := s.Run(ctx, rootDir, cfg)
	if err != nil {
		return nil, err
	}

	// Phase 3: Stub Generation
	var warnings definition.Warnings
	generationStart := time.Now()
	for _, m := range result.Modules {
		path, err := s.WriteStub(m, opts, &warnings)
		if err != nil {
			continue
		}
		result.Written = append(result.Written, path)
	}
	result.Warnings = append(result.Warnings, warnings.Items()...)
	result.Stats.StubsWritten = len(result.Written)
	result.Stats.GenerationTimeMs = time.Since(generationStart).Milliseconds()
	result.Stats.TotalTimeMs = time.Since(totalStart).Milliseconds()

	s.log.Info("generation complete",
		"stubs", result.Stats.StubsWritten,
		"out", opts.OutDir,
		"ms", result.Stats.GenerationTimeMs)

	return result, nil
}

// WriteStub generates and writes the stub for m. Verification failures are
// recorded but the stub is still written; write failures are returned.
func (s *Scanner) WriteStub(m definition.ModuleDefinition, opts GenerateOptions, warnings *definition.Warnings) (string, error) {
	outDir := opts.OutDir
	if outDir == "" {
		outDir = DefaultOutDir
	}

	unit := mockgen.GenerateModule(m)
	for _, name := range mockgen.RenamedDeclarations(m) {
		warnings.Add(definition.WarnOutput, m.SourcePath, "module %s: %q is not a valid TypeScript name and is re-exported from a local binding", m.Name, name)
	}
	if opts.Verify {
		if err := mockgen.Verify(s.pm, unit); err != nil {
			warnings.Add(definition.WarnOutput, m.SourcePath, "module %s: %v", m.Name, err)
			s.log.Warn("generated stub failed verification", "module", m.Name, "error", err)
		}
	}

	path, err := mockgen.WriteModule(outDir, m, unit)
	if err != nil {
		warnings.Add(definition.WarnOutput, m.SourcePath, "%v", err)
		s.log.Error("failed to write stub", "module", m.Name, "error", err)
		return "", err
	}
	s.log.Debug("stub written", "module", m.Name, "path", path)
	return path, nil
}

// Forget drops the cached content of path so the next extraction rereads it.
func (s *Scanner) Forget(path string) {
	s.cache.Invalidate(path)
}

// Close releases the file cache and parser.
func (s *Scanner) Close() {
	if err := s.cache.Close(); err != nil {
		s.log.Warn("failed to close file cache", "error", err)
	}
	_ = s.pm.Close()
}
