package scanner

import (
	"context"
	"errors"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/structure"
)

// ExtractFile runs the structure dump for one file and extracts its module.
//
// A nil definition with a nil error means the file declares no module. An
// error means the file could not be loaded or dumped; the caller skips it.
func (s *Scanner) ExtractFile(ctx context.Context, path string, warnings *definition.Warnings) (*definition.ModuleDefinition, error) {
	file, err := s.loader.Load(path)
	if err != nil {
		return nil, err
	}

	tree, err := s.index.Tree(ctx, path)
	if err != nil {
		return nil, err
	}

	return s.ext.ExtractTree(ctx, tree, file, warnings), nil
}

// ExtractAll extracts every file in order. Per-file failures are logged,
// recorded as warnings and counted; they never stop the run.
func (s *Scanner) ExtractAll(ctx context.Context, files []string, warnings *definition.Warnings) ([]definition.ModuleDefinition, int) {
	var modules []definition.ModuleDefinition
	failed := 0

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}

		def, err := s.ExtractFile(ctx, path, warnings)
		if err != nil {
			failed++
			code := definition.WarnStructuralMismatch
			var tie *structure.ToolInvocationError
			if errors.As(err, &tie) {
				code = definition.WarnToolInvocation
			}
			warnings.Add(code, path, "%v", err)
			s.log.Error("extraction failed", "file", path, "error", err)
			continue
		}
		if def == nil {
			s.log.Debug("no module definition", "file", path)
			continue
		}

		s.log.Debug("module extracted",
			"file", path,
			"module", def.Name,
			"functions", len(def.Functions),
			"async_functions", len(def.AsyncFunctions))
		modules = append(modules, *def)
	}
	return modules, failed
}
