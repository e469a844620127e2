package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
)

const sampleScript = `<?xml version="1.0" encoding="utf-8"?>
<Project name="sample" default="build">
  <!-- shared settings -->
  <property name="configuration" value="Release"/>
  <target name="build" description="Builds the solution">
    <echo message="building"/>
    <exec program="msbuild">
      <arg value="/p:Configuration=${configuration}"/>
    </exec>
  </target>
  <target name="clean">
    <delete dir="bin"/>
  </target>
</Project>
`

func TestParseReader_BuildsTree(t *testing.T) {
	root, err := ParseReader(strings.NewReader(sampleScript), "sample.build")
	require.NoError(t, err)
	require.NotNil(t, root)

	assert.Equal(t, "project", root.Name)
	assert.Equal(t, 2, root.Line)
	assert.Equal(t, "sample", root.Attr("name"))
	assert.Equal(t, "sample.build", root.Attr(AttrFile))

	require.Len(t, root.Children, 3)
	property, build, clean := root.Children[0], root.Children[1], root.Children[2]

	assert.Equal(t, "property", property.Name)
	assert.Equal(t, 4, property.Line)
	assert.Empty(t, property.Children)

	assert.Equal(t, "target", build.Name)
	assert.Equal(t, 5, build.Line)
	require.Len(t, build.Children, 2)
	assert.Equal(t, "echo", build.Children[0].Name)
	assert.Equal(t, 6, build.Children[0].Line)
	exec := build.Children[1]
	assert.Equal(t, 7, exec.Line)
	require.Len(t, exec.Children, 1)
	assert.Equal(t, "/p:Configuration=${configuration}", exec.Children[0].Attr("value"))
	assert.Equal(t, 8, exec.Children[0].Line)

	assert.Equal(t, 11, clean.Line)
	require.Len(t, clean.Children, 1)
	assert.Equal(t, "delete", clean.Children[0].Name)
}

func TestParseReader_AttributesInDocumentOrder(t *testing.T) {
	root, err := ParseReader(strings.NewReader(`<project b="2" a="1" c="3"/>`), "x.build")
	require.NoError(t, err)

	assert.Equal(t, []Attr{
		{Name: "b", Value: "2"},
		{Name: "a", Value: "1"},
		{Name: "c", Value: "3"},
		{Name: AttrFile, Value: "x.build"},
	}, root.Attrs())
}

func TestParseReader_SyntheticFileOverridesAuthoredAttribute(t *testing.T) {
	root, err := ParseReader(strings.NewReader(`<project file="authored" name="p"/>`), "real.build")
	require.NoError(t, err)

	assert.Equal(t, "real.build", root.Attr(AttrFile))
	assert.Equal(t, "file", root.Attrs()[0].Name)
}

func TestParseReader_AbsentAttributeIsEmpty(t *testing.T) {
	root, err := ParseReader(strings.NewReader(`<project><target name="t"/></project>`), "x.build")
	require.NoError(t, err)

	target := root.Children[0]
	assert.Equal(t, "", target.Attr("description"))
	v, ok := target.Lookup("description")
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.False(t, target.HasAttr("description"))

	var nilNode *Node
	assert.Equal(t, "", nilNode.Attr("anything"))
}

func TestParseReader_EmptyAttributeIsPresent(t *testing.T) {
	root, err := ParseReader(strings.NewReader(`<project><target name="t" description=""/></project>`), "x.build")
	require.NoError(t, err)

	assert.True(t, root.Children[0].HasAttr("description"))
}

func TestParseReader_TagNamesLowercased(t *testing.T) {
	root, err := ParseReader(strings.NewReader(`<PROJECT><Target Name="Build"/><nant:Include xmlns:nant="urn:x" buildfile="a"/></PROJECT>`), "x.build")
	require.NoError(t, err)

	assert.Equal(t, "project", root.Name)
	assert.Equal(t, "target", root.Children[0].Name)
	// Attribute names are kept as written.
	assert.Equal(t, "Build", root.Children[0].Attr("Name"))
	assert.Equal(t, "include", root.Children[1].Name)
	assert.Equal(t, "urn:x", root.Children[1].Attr("xmlns:nant"))
}

func TestParseReader_Text(t *testing.T) {
	doc := "<project>\n  <echo>hello world</echo>\n  <script><![CDATA[a < b]]></script>\n  <empty>   \n  </empty>\n</project>"
	root, err := ParseReader(strings.NewReader(doc), "x.build")
	require.NoError(t, err)

	require.Len(t, root.Children, 3)
	assert.Equal(t, "hello world", root.Children[0].Text)
	assert.Equal(t, "a < b", root.Children[1].Text)
	assert.Equal(t, "", root.Children[2].Text)
	assert.Equal(t, "", root.Text)
}

func TestParseReader_SelfClosingNeverReceivesChildren(t *testing.T) {
	root, err := ParseReader(strings.NewReader(`<project><a/><b><c/></b></project>`), "x.build")
	require.NoError(t, err)

	require.Len(t, root.Children, 2)
	assert.Empty(t, root.Children[0].Children)
	require.Len(t, root.Children[1].Children, 1)
	assert.Equal(t, "c", root.Children[1].Children[0].Name)
}

func TestParseReader_DeepNestingUsesNoRecursion(t *testing.T) {
	const depth = 20000
	doc := strings.Repeat("<task>", depth) + strings.Repeat("</task>", depth)
	root, err := ParseReader(strings.NewReader(doc), "deep.build")
	require.NoError(t, err)

	n, levels := root, 1
	for len(n.Children) == 1 {
		n = n.Children[0]
		levels++
	}
	assert.Equal(t, depth, levels)
}

func TestParseReader_NoElementMeansNothingLoaded(t *testing.T) {
	for _, doc := range []string{"", "   \n", `<?xml version="1.0"?>`, "<!-- only a comment -->"} {
		root, err := ParseReader(strings.NewReader(doc), "empty.build")
		require.NoError(t, err, doc)
		assert.Nil(t, root, doc)
		assert.Nil(t, NewTree(root))
	}
}

func TestParseReader_Malformed(t *testing.T) {
	cases := map[string]string{
		"unclosed":         `<project><target name="a">`,
		"mismatched":       `<project><target></project></target>`,
		"stray end":        `<project/></target>`,
		"second root":      `<project/><project/>`,
		"duplicate attr":   `<project><target name="a" name="b"/></project>`,
		"bad attribute":    `<project name=unquoted/>`,
		"undefined entity": `<project>&nope;</project>`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			root, err := ParseReader(strings.NewReader(doc), "bad.build")
			require.Error(t, err)
			assert.Nil(t, root)
			assert.True(t, rerrors.IsCategory(err, rerrors.CategoryParse))
		})
	}
}

func TestParse_UnreadableFile(t *testing.T) {
	_, err := Parse(t.TempDir() + "/missing.build")
	require.Error(t, err)
	assert.True(t, rerrors.IsCategory(err, rerrors.CategoryParse))
}

func TestParse_Idempotent(t *testing.T) {
	path := writeScript(t, t.TempDir(), "default.build", sampleScript)

	first, err := Parse(path)
	require.NoError(t, err)
	second, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.String(), second.String())
}

func TestParse_DeclaredLegacyEncoding(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"windows-1252\"?>\n<project name=\"caf\xe9\"/>"
	path := writeScript(t, t.TempDir(), "legacy.build", doc)

	root, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "café", root.Attr("name"))
}

func TestNode_String(t *testing.T) {
	root, err := ParseReader(strings.NewReader(`<project name="p"><target name="t"><echo/></target></project>`), "x.build")
	require.NoError(t, err)

	want := "project name=p file=x.build\n" +
		"   target name=t\n" +
		"      echo\n"
	assert.Equal(t, want, root.String())
}
