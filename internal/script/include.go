package script

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
)

var (
	errMissingBuildFile = errors.New("include has no buildfile attribute")
	errEmptyInclude     = errors.New("included file has no root element")
	errIncludeCycle     = errors.New("include cycle")
)

// Resolver splices included scripts into a tree.
//
// It tracks the files currently being resolved so that a file including
// itself, directly or through other files, is skipped instead of recursing
// forever. A Resolver is not safe for concurrent use.
type Resolver struct {
	logger    *slog.Logger
	resolving map[string]bool
	skipped   []*rerrors.RunnerError
	files     []string
}

// NewResolver returns a Resolver logging skipped includes to logger
// (slog.Default when nil).
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		logger:    logger,
		resolving: make(map[string]bool),
	}
}

// Skipped returns the includes that could not be resolved, in encounter order.
func (r *Resolver) Skipped() []*rerrors.RunnerError {
	return r.skipped
}

// Files returns every included file whose children were spliced in.
func (r *Resolver) Files() []string {
	return r.files
}

// Resolve splices every include of tree, resolving buildfile paths against dir.
// Includes found while resolving are resolved relative to their own file.
// Failures are recorded and logged; they never abort resolution.
func (r *Resolver) Resolve(tree *Tree, dir string) {
	if tree == nil || tree.Root == nil {
		return
	}
	if file := tree.File(); file != "" {
		key := canonicalPath(file)
		if !r.resolving[key] {
			r.resolving[key] = true
			defer delete(r.resolving, key)
		}
	}

	// Includes are collected before splicing; includes brought in by an
	// included file are resolved by the recursive call, not here.
	for _, include := range tree.Includes() {
		r.resolveInclude(tree.Root, include, dir)
	}
}

func (r *Resolver) resolveInclude(root, include *Node, dir string) {
	buildFile := include.Attr(AttrBuildFile)
	if strings.TrimSpace(buildFile) == "" {
		r.skip(include, buildFile, errMissingBuildFile)
		return
	}

	path := buildFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	key := canonicalPath(path)
	if r.resolving[key] {
		r.skip(include, buildFile, fmt.Errorf("%w: %s is already being resolved", errIncludeCycle, path))
		return
	}

	sub, err := Parse(path)
	if err != nil {
		r.skip(include, buildFile, err)
		return
	}
	if sub == nil {
		r.skip(include, buildFile, errEmptyInclude)
		return
	}

	r.files = append(r.files, path)
	r.Resolve(NewTree(sub), filepath.Dir(path))
	root.appendChildren(sub.Children)

	r.logger.Debug("Include resolved",
		logfields.Include(path),
		slog.Int("children", len(sub.Children)))
}

func (r *Resolver) skip(include *Node, buildFile string, cause error) {
	err := rerrors.IncludeResolutionError(buildFile, cause).WithContext("line", include.Line)
	r.skipped = append(r.skipped, err)
	r.logger.Warn("Skipping include",
		logfields.Include(buildFile),
		slog.Int("line", include.Line),
		logfields.Error(cause))
}

func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// ResolveIncludes resolves the includes of tree against dir with a fresh
// Resolver and returns the includes that were skipped.
func ResolveIncludes(tree *Tree, dir string) []*rerrors.RunnerError {
	r := NewResolver(nil)
	r.Resolve(tree, dir)
	return r.Skipped()
}
