package script

import (
	"log/slog"
	"path/filepath"
	"time"
)

// LoadOptions controls Load.
type LoadOptions struct {
	// ResolveIncludes splices <include> files into the tree.
	ResolveIncludes bool
	Logger          *slog.Logger
}

// LoadResult is the outcome of loading a script.
type LoadResult struct {
	// Tree is nil when the script contains no element.
	Tree *Tree
	// Skipped lists includes that were left out of the tree.
	Skipped []error
	// Files lists the root script followed by every spliced include file.
	Files    []string
	Duration time.Duration
}

// Load parses the script at path and, when requested, resolves its includes.
// Only a failure to parse the root script is returned as an error.
func Load(path string, opts LoadOptions) (*LoadResult, error) {
	start := time.Now()

	root, err := Parse(path)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{
		Tree:  NewTree(root),
		Files: []string{path},
	}
	if result.Tree != nil && opts.ResolveIncludes {
		resolver := NewResolver(opts.Logger)
		resolver.Resolve(result.Tree, filepath.Dir(path))
		for _, skipped := range resolver.Skipped() {
			result.Skipped = append(result.Skipped, skipped)
		}
		result.Files = append(result.Files, resolver.Files()...)
	}
	result.Duration = time.Since(start)
	return result, nil
}
