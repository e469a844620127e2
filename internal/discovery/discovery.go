// Package discovery locates build scripts under a search root.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DefaultScriptName is preferred over any other match.
const DefaultScriptName = "default.build"

// FindBuildFiles walks root and returns files whose base name matches one of
// patterns (case-insensitive), shallowest first. Hidden directories are skipped.
func FindBuildFiles(root string, patterns []string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are not fatal.
			return fs.SkipDir
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if matches(d.Name(), patterns) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}

	sort.SliceStable(found, func(i, j int) bool {
		di, dj := depth(found[i]), depth(found[j])
		if di != dj {
			return di < dj
		}
		return found[i] < found[j]
	})
	return found, nil
}

func matches(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(p), lower); ok {
			return true
		}
	}
	return false
}

func depth(path string) int {
	return strings.Count(filepath.ToSlash(path), "/")
}

// DefaultBuildFile picks default.build when present, otherwise the first
// candidate. It returns "" for no candidates.
func DefaultBuildFile(candidates []string) string {
	for _, c := range candidates {
		if strings.EqualFold(filepath.Base(c), DefaultScriptName) {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

// Find searches root and returns the default build file, or "" when none matches.
func Find(root string, patterns []string) (string, error) {
	files, err := FindBuildFiles(root, patterns)
	if err != nil {
		return "", err
	}
	return DefaultBuildFile(files), nil
}

// SearchRoot returns the worktree root of the git repository containing dir,
// or dir itself (made absolute) when it is not inside a repository.
func SearchRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return abs, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", abs, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no worktree to search.
		return abs, nil
	}
	return worktree.Filesystem.Root(), nil
}

// Revision describes the checked-out commit of the repository containing dir.
type Revision struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit"`
}

// Short returns the abbreviated commit hash.
func (r Revision) Short() string {
	if len(r.Commit) > 8 {
		return r.Commit[:8]
	}
	return r.Commit
}

// CurrentRevision returns the HEAD revision of the repository containing dir.
// ok is false outside a repository or before the first commit.
func CurrentRevision(dir string) (rev Revision, ok bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Revision{}, false
	}
	head, err := repo.Head()
	if err != nil {
		return Revision{}, false
	}
	rev.Commit = head.Hash().String()
	if head.Name() != plumbing.HEAD && head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev, true
}
