package script

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
)

func load(t *testing.T, path string) *LoadResult {
	t.Helper()
	result, err := Load(path, LoadOptions{ResolveIncludes: true})
	require.NoError(t, err)
	require.NotNil(t, result.Tree)
	return result
}

func TestResolve_SplicesIncludedChildren(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "common.build", `<project><target name="c1"/><property name="c2"/></project>`)
	root := writeScript(t, dir, "default.build", `<project><include buildfile="common.build"/><target name="main"/></project>`)

	result := load(t, root)
	children := result.Tree.Root.Children

	require.Len(t, children, 4)
	assert.Equal(t, "include", children[0].Name)
	assert.Equal(t, "main", children[1].Attr(AttrName))
	assert.Equal(t, "c1", children[2].Attr(AttrName))
	assert.Equal(t, "c2", children[3].Attr(AttrName))

	assert.Equal(t, []string{"main", "c1"}, result.Tree.TargetNames())
	assert.Len(t, result.Tree.Includes(), 1)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, []string{root, filepath.Join(dir, "common.build")}, result.Files)
}

func TestResolve_NestedIncludesRelativeToIncludingFile(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "lib/deep/leaf.build", `<project><target name="leaf"/></project>`)
	writeScript(t, dir, "lib/mid.build", `<project><include buildfile="deep/leaf.build"/><target name="mid"/></project>`)
	root := writeScript(t, dir, "default.build", `<project><include buildfile="lib/mid.build"/></project>`)

	result := load(t, root)

	assert.Equal(t, []string{"mid", "leaf"}, result.Tree.TargetNames())
	// include from mid.build is spliced too but stays an include.
	assert.Len(t, result.Tree.Includes(), 2)
	assert.Empty(t, result.Skipped)
}

func TestResolve_AbsoluteBuildFile(t *testing.T) {
	dir := t.TempDir()
	shared := writeScript(t, t.TempDir(), "shared.build", `<project><target name="shared"/></project>`)
	root := writeScript(t, dir, "default.build", `<project><include buildfile="`+shared+`"/></project>`)

	result := load(t, root)
	assert.Equal(t, []string{"shared"}, result.Tree.TargetNames())
}

func TestResolve_BadIncludesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.build", `<project><target name="x">`)
	writeScript(t, dir, "empty.build", ``)
	writeScript(t, dir, "good.build", `<project><target name="good"/></project>`)
	root := writeScript(t, dir, "default.build", `<project>
  <include/>
  <include buildfile="missing.build"/>
  <include buildfile="broken.build"/>
  <include buildfile="empty.build"/>
  <include buildfile="good.build"/>
  <target name="main"/>
</project>`)

	result := load(t, root)

	assert.Equal(t, []string{"main", "good"}, result.Tree.TargetNames())
	require.Len(t, result.Skipped, 4)
	for _, err := range result.Skipped {
		assert.True(t, rerrors.IsCategory(err, rerrors.CategoryInclude), err.Error())
	}
	re, ok := rerrors.As(result.Skipped[1])
	require.True(t, ok)
	assert.Equal(t, "missing.build", re.Context["buildfile"])
	assert.Equal(t, 3, re.Context["line"])
}

func TestResolve_CycleIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.build", `<project><include buildfile="b.build"/><target name="a"/></project>`)
	writeScript(t, dir, "b.build", `<project><include buildfile="a.build"/><target name="b"/></project>`)

	result := load(t, filepath.Join(dir, "a.build"))

	assert.Equal(t, []string{"a", "b"}, result.Tree.TargetNames())
	require.Len(t, result.Skipped, 1)
	assert.ErrorIs(t, result.Skipped[0], errIncludeCycle)
}

func TestResolve_SelfInclude(t *testing.T) {
	dir := t.TempDir()
	root := writeScript(t, dir, "self.build", `<project><include buildfile="./self.build"/><target name="only"/></project>`)

	result := load(t, root)
	assert.Equal(t, []string{"only"}, result.Tree.TargetNames())
	assert.Len(t, result.Skipped, 1)
}

func TestResolve_DiamondIncludesSplicedTwice(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "common.build", `<project><target name="common"/></project>`)
	writeScript(t, dir, "left.build", `<project><include buildfile="common.build"/></project>`)
	writeScript(t, dir, "right.build", `<project><include buildfile="common.build"/></project>`)
	root := writeScript(t, dir, "default.build", `<project><include buildfile="left.build"/><include buildfile="right.build"/></project>`)

	result := load(t, root)
	assert.Equal(t, []string{"common", "common"}, result.Tree.TargetNames())
	assert.Empty(t, result.Skipped)
}

func TestLoad_WithoutIncludeResolution(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "common.build", `<project><target name="c1"/></project>`)
	root := writeScript(t, dir, "default.build", `<project><include buildfile="common.build"/></project>`)

	result, err := Load(root, LoadOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Tree.AllTargets())
	assert.Equal(t, []string{root}, result.Files)
}

func TestLoad_RootParseErrorIsFatal(t *testing.T) {
	root := writeScript(t, t.TempDir(), "default.build", `<project>`)

	result, err := Load(root, LoadOptions{ResolveIncludes: true})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, rerrors.IsCategory(err, rerrors.CategoryParse))
}

func TestLoad_EmptyDocument(t *testing.T) {
	root := writeScript(t, t.TempDir(), "default.build", `<?xml version="1.0"?>`)

	result, err := Load(root, LoadOptions{ResolveIncludes: true})
	require.NoError(t, err)
	assert.Nil(t, result.Tree)
}

func TestResolveIncludes_Helper(t *testing.T) {
	dir := t.TempDir()
	root, err := Parse(writeScript(t, dir, "default.build", `<project><include buildfile="nope.build"/></project>`))
	require.NoError(t, err)

	skipped := ResolveIncludes(NewTree(root), dir)
	assert.Len(t, skipped, 1)
}
