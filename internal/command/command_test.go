package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/xml2py/internal/dom"
	"github.com/phobologic/xml2py/internal/model"
)

const keypointXML = `<?xml version="1.0" encoding="UTF-8"?>
<refentry id="Hlp_C_K">
<refnamediv>
<refname>K</refname>
<refpurpose>Defines a keypoint.</refpurpose>
<refclass>&prep_keyp;</refclass>
</refnamediv>
<refsynopsisdiv>
<cmdsynopsis><command>K</command>, <arg><replaceable>NPT</replaceable></arg>, <arg>--</arg>, <arg><replaceable>X</replaceable></arg>, <arg><replaceable>LAMBDA</replaceable></arg></cmdsynopsis>
</refsynopsisdiv>
<refsect1><title>Argument Descriptions</title>
<variablelist>
<varlistentry><term><replaceable>NPT</replaceable></term><listitem><para>Reference number.</para></listitem></varlistentry>
<varlistentry><term><replaceable>X</replaceable>, <replaceable>LAMBDA</replaceable></term><listitem><para>Coordinates.</para></listitem></varlistentry>
</variablelist>
</refsect1>
<refsect1><title>Notes</title><para>Keypoints are "points".</para></refsect1>
<refsect1><title>Menu Paths</title><para>Main Menu</para></refsect1>
<refsect1><title>Product Restrictions</title><para>None.</para></refsect1>
</refentry>
`

func entryXML(id, name, refclass string) string {
	return `<refentry id="` + id + `"><refnamediv><refname>` + name +
		`</refname><refpurpose>Does ` + name + `.</refpurpose><refclass>` + refclass +
		`</refclass></refnamediv></refentry>`
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeReference(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "prep/Hlp_C_K.xml", keypointXML)
	writeFile(t, dir, "apdl/Hlp_C_VGET.xml", entryXML("Hlp_C_VGET", "VGET", "&apdl_par;"))
	writeFile(t, dir, "apdl/Hlp_C_VGET_st.xml", entryXML("Hlp_C_VGET_st", "*VGET", "&apdl_par;"))
	writeFile(t, dir, "graph/Hlp_C_GCOLUMN.xml", entryXML("Hlp_C_GCOLUMN", "/GCOLUMN", "&apdl_par;"))
	writeFile(t, dir, "prep/Hlp_C_CECYC.xml", entryXML("Hlp_C_CECYC", "CECYC",
		"<classname>PREP7</classname>, <classname>SOLUTION</classname>: <type>Constraint Equations</type>"))
	writeFile(t, dir, "cad/Hlp_C_CATIAIN.xml", entryXML("Hlp_C_CATIAIN", "~CATIAIN", "&xtycadimport;"))
	writeFile(t, dir, "topics/overview.xml", `<topic><title>Overview</title></topic>`)
	writeFile(t, dir, "broken.xml", `<refentry><<`)
	writeFile(t, dir, "empty.xml", "")
	return dir
}

func newExtractor() (*Extractor, *test.Hook) {
	terms := model.Terms{}
	terms.SetGroup("prep_keyp", "PREP7", "Keypoints")
	terms.SetGroup("apdl_par", "APDL", "Parameters")
	logger, hook := test.NewNullLogger()
	return &Extractor{
		Log:             logger,
		Tables:          &dom.Tables{Terms: terms},
		ExcludedGroups:  []string{"xtycadimport"},
		CommandLabel:    "Mechanical APDL Command",
		CmdBaseURL:      "https://help/ans_cmd/",
		SkippedSections: []string{"Menu Paths"},
	}, hook
}

func TestLoadCommands(t *testing.T) {
	t.Parallel()

	x, hook := newExtractor()
	commands, err := x.LoadCommands(writeReference(t), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"*VGET", "/GCOLUMN", "CECYC", "K", "VGET", "~CATIAIN"}, Names(commands))

	k := commands["K"]
	assert.Equal(t, "Hlp_C_K", k.ID)
	assert.Equal(t, "Defines a keypoint.", k.Purpose)
	assert.Equal(t, GroupClassified{Code: "prep_keyp", Module: "PREP7", Class: "Keypoints"}, k.Classification)
	assert.Equal(t, []Argument{
		{Raw: "NPT", Key: "npt", Name: "npt"},
		{Raw: "--"},
		{Raw: "X", Key: "x", Name: "x"},
		{Raw: "LAMBDA", Key: "lambda", Name: "lambda_"},
	}, k.Args)

	assert.Equal(t, ClassTypeClassified{Module: "PREP7", Class: "Constraint Equations", Archived: true},
		commands["CECYC"].Classification)
	assert.Equal(t, Excluded{Code: "xtycadimport"}, commands["~CATIAIN"].Classification)
	_, _, ok := commands["~CATIAIN"].Placement()
	assert.False(t, ok)

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Message == "excluded group, command will not be converted" {
			warned = true
		}
	}
	assert.True(t, warned, "excluded commands are logged")
}

func TestLoadCommandsMetaOnly(t *testing.T) {
	t.Parallel()

	x, _ := newExtractor()
	commands, err := x.LoadCommands(writeReference(t), true)
	require.NoError(t, err)

	k := commands["K"]
	require.NotNil(t, k)
	assert.Equal(t, "refnamediv", k.Root.Tag)
	assert.Nil(t, k.Classification)
	assert.Empty(t, k.Purpose)
	assert.Len(t, commands, 6)
}

func TestLoadCommandsMetaOnlySkipsBody(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Hlp_C_KX.xml", `<?xml version="1.0"?>
<refentry id="Hlp_C_KX" lang="en"><refnamediv><refname>KX</refname>
<refpurpose>Lists keypoints.</refpurpose></refnamediv>
<refsect1><title>Notes</title><para><<</para></refsect1>`)

	x, _ := newExtractor()
	commands, err := x.LoadCommands(dir, true)
	require.NoError(t, err)
	require.Contains(t, commands, "KX")
	assert.Equal(t, "Hlp_C_KX", commands["KX"].ID)
	assert.Equal(t, "refnamediv", commands["KX"].Root.Tag)
}

func TestLoadCommandsDeterministic(t *testing.T) {
	t.Parallel()

	dir := writeReference(t)
	load := func() (map[string]string, NameMap) {
		x, _ := newExtractor()
		commands, err := x.LoadCommands(dir, false)
		require.NoError(t, err)
		names, err := BuildNameMap(Names(commands), nil)
		require.NoError(t, err)
		groups := map[string]string{}
		for _, c := range Sorted(commands) {
			module, class, _ := c.Placement()
			groups[c.Name] = module + "/" + class
		}
		return groups, names
	}

	groups1, names1 := load()
	groups2, names2 := load()
	assert.Equal(t, groups1, groups2)
	assert.Equal(t, names1, names2)
}

func TestLoadCommandsMissingDirectory(t *testing.T) {
	t.Parallel()

	x, _ := newExtractor()
	_, err := x.LoadCommands(filepath.Join(t.TempDir(), "nope"), false)
	require.ErrorIs(t, err, ErrDirectoryNotFound)
}

func TestLoadCommandsUnknownGroup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Hlp_C_X.xml", entryXML("Hlp_C_X", "X", "&nogroup;"))

	x, _ := newExtractor()
	_, err := x.LoadCommands(dir, false)
	require.ErrorIs(t, err, ErrUnknownGroup)
}

func TestRender(t *testing.T) {
	t.Parallel()

	x, _ := newExtractor()
	commands, err := x.LoadCommands(writeReference(t), false)
	require.NoError(t, err)
	k := commands["K"]
	k.PyName = "k"

	got, err := k.Render(nil, "    ")
	require.NoError(t, err)

	want := `    def k(self, npt: str = "", x: str = "", lambda_: str = "", **kwargs):
        r"""Defines a keypoint.

        Mechanical APDL Command: ` + "`K <https://help/ans_cmd/Hlp_C_K.html>`_" + `

        Parameters
        ----------
        npt : str
            Reference number.

        x : str
            Coordinates.

        lambda_ : str
            Coordinates.

        Notes
        -----
        Keypoints are "points".

        **Product Restrictions**

        None.
        """
        command = f"K,{npt},,{x},{lambda_}"
        return self.run(command, **kwargs)
`
	assert.Equal(t, want, got)
}

type fakeOverrides map[string]model.Override

func (f fakeOverrides) Override(name string) (model.Override, bool) {
	ov, ok := f[name]
	return ov, ok
}

func TestRenderOverride(t *testing.T) {
	t.Parallel()

	c := &Command{
		Name:    "K",
		PyName:  "k",
		ID:      "Hlp_C_K",
		Purpose: "Defines a keypoint.",
		Args:    []Argument{{Raw: "NPT", Key: "npt", Name: "npt"}},
	}
	overrides := fakeOverrides{"k": {
		Imports:  []string{"import numpy as np"},
		Params:   "(self, npt=1, **kwargs)",
		Body:     "return np.array([npt])",
		Returns:  "numpy.ndarray\n    Keypoint numbers.",
		Examples: ">>> mapdl.k(1)",
	}}

	got, err := c.Render(overrides, "    ")
	require.NoError(t, err)

	assert.Contains(t, got, "    import numpy as np\n    def k(self, npt=1, **kwargs):\n")
	assert.Contains(t, got, "        Returns\n        -------\n        numpy.ndarray\n            Keypoint numbers.\n")
	assert.Contains(t, got, "        Examples\n        --------\n        >>> mapdl.k(1)\n")
	assert.Contains(t, got, "        return np.array([npt])\n")
	assert.NotContains(t, got, "self.run")

	imports, rest := SplitImports(got)
	assert.Equal(t, []string{"import numpy as np"}, imports)
	assert.NotContains(t, rest, "import numpy")
}

func TestRenderWithoutArguments(t *testing.T) {
	t.Parallel()

	c := &Command{Name: "/CLEAR", PyName: "clear", Purpose: `Clears """all""" data.`}
	got, err := c.Render(nil, "")
	require.NoError(t, err)

	assert.Contains(t, got, "def clear(self, **kwargs):\n")
	assert.Contains(t, got, `Clears \"\"\"all\"\"\" data.`)
	assert.Contains(t, got, `    command = "/CLEAR"`+"\n")
}

func TestSplitImports(t *testing.T) {
	t.Parallel()

	method := "    import numpy as np\n    from ansys.tools import path\n    def k(self):\n        import os\n        return 1\n"
	imports, rest := SplitImports(method)
	assert.Equal(t, []string{"import numpy as np", "from ansys.tools import path"}, imports)
	assert.Equal(t, "    def k(self):\n        import os\n        return 1\n", rest)

	assert.Equal(t, []string{"import a", "import b"}, MergeImports([]string{"import a"}, "import b", "import a"))
}

func TestParseArgumentsDuplicates(t *testing.T) {
	t.Parallel()

	synopsis, err := dom.ParseXML(strings.NewReader(`<cmdsynopsis><arg><replaceable>VAL</replaceable></arg><arg><replaceable>VAL</replaceable></arg><arg><replaceable>1ST</replaceable></arg><arg><replaceable>Self</replaceable></arg></cmdsynopsis>`))
	require.NoError(t, err)

	var names []string
	for _, a := range parseArguments(synopsis) {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"val", "val_2", "arg1st", "self_"}, names)
}
