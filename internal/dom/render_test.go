package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/xml2py/internal/model"
)

func testTables() *Tables {
	terms := model.Terms{}
	terms.SetText("me", "Ansys Mechanical")
	terms.SetMarkup("sgr", ":math:`\\sigma`")
	terms.SetText("prod_", "MAPDL")
	return &Tables{
		Links: map[string]model.Link{
			"cmd.k": {RootName: "ans_cmd", Href: "Hlp_C_K.html", Text: "K"},
		},
		BaseURL:      "https://help/",
		FCache:       map[string]string{"gcmd1": "gcmd1.png"},
		Terms:        terms,
		Replacements: []model.Replacement{{Old: "Dtl?", New: ""}},
		ImageDir:     "../images",
		CodeLanguage: "apdl",
	}
}

func mustParse(t *testing.T, src string) *Element {
	t.Helper()
	e, err := ParseXML(strings.NewReader(src))
	require.NoError(t, err)
	return e
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "inline markup",
			src:  `<para>Use <emphasis role="bold">this</emphasis> or <emphasis>that</emphasis> with <literal>K</literal>, <replaceable>VALUE</replaceable>.</para>`,
			want: "Use **this** or *that* with ``K``, ``value``.",
		},
		{
			name: "entities",
			src:  `<para>Run &me; &unknown; at &sgr;.</para>`,
			want: "Run Ansys Mechanical &unknown; at :math:`\\sigma`.",
		},
		{
			name: "entity name ending in underscore",
			src:  `<para>&prod_; and &other_; for x_</para>`,
			want: `MAPDL and &other\_; for x\_`,
		},
		{
			name: "escaping",
			src:  `<para>a*b and x_ y|z</para>`,
			want: `a\*b and x\_ y\|z`,
		},
		{
			name: "whitespace collapse",
			src:  "<para>  one\n\n   two  </para>",
			want: "one two",
		},
		{
			name: "replacements",
			src:  `<para>Dtl?Hello</para>`,
			want: "Hello",
		},
		{
			name: "olink",
			src:  `<para>See <olink targetptr="cmd.k"/> and <olink targetptr="cmd.k">the K command</olink>.</para>`,
			want: "See `K <https://help/ans_cmd/Hlp_C_K.html>`_ and `the K command <https://help/ans_cmd/Hlp_C_K.html>`_.",
		},
		{
			name: "unresolved link keeps text",
			src:  `<para><xref linkend="nowhere"/> <olink targetptr="cmd.x">X</olink></para>`,
			want: "nowhere X",
		},
		{
			name: "ulink",
			src:  `<para><ulink url="https://ansys.com">site</ulink></para>`,
			want: "`site <https://ansys.com>`_",
		},
		{
			name: "skipped elements",
			src:  `<para>a<indexterm><primary>x</primary></indexterm>b<remark>r</remark></para>`,
			want: "ab",
		},
		{
			name: "superscript",
			src:  `<para>m<superscript>2</superscript></para>`,
			want: "m\\ :sup:`2`",
		},
		{
			name: "itemized list",
			src:  `<itemizedlist><listitem><para>one</para></listitem><listitem><para>two</para></listitem></itemizedlist>`,
			want: "* one\n* two",
		},
		{
			name: "ordered list with paragraphs",
			src:  `<orderedlist><listitem><para>one</para><para>more</para></listitem><listitem><para>two</para></listitem></orderedlist>`,
			want: "#. one\n\n   more\n\n#. two",
		},
		{
			name: "variable list",
			src:  `<variablelist><varlistentry><term>VAL</term><listitem><para>The value.</para></listitem></varlistentry><varlistentry><term>KEY</term><listitem><para>A key.</para></listitem></varlistentry></variablelist>`,
			want: "VAL\n    The value.\n\nKEY\n    A key.",
		},
		{
			name: "table",
			src:  `<informaltable><tgroup cols="2"><thead><row><entry>A</entry><entry>B</entry></row></thead><tbody><row><entry>1</entry></row></tbody></tgroup></informaltable>`,
			want: ".. list-table::\n   :header-rows: 1\n\n   * - A\n     - B\n   * - 1\n     -",
		},
		{
			name: "program listing",
			src:  "<programlisting>\n    *GET,A\n      B\n</programlisting>",
			want: ".. code:: apdl\n\n   *GET,A\n     B",
		},
		{
			name: "note",
			src:  `<note><para>Careful.</para></note>`,
			want: ".. note::\n\n   Careful.",
		},
		{
			name: "section with title",
			src:  `<refsect1><title>Notes</title><para>First.</para><para>Second.</para></refsect1>`,
			want: "**Notes**\n\nFirst.\n\nSecond.",
		},
		{
			name: "graphic",
			src:  `<para>Figure:<graphic fileref="graphics\gcmd1.gif"/></para>`,
			want: "Figure:\n\n.. image:: ../images/gcmd1.png",
		},
		{
			name: "equation",
			src:  `<informalequation><mathphrase>a = b</mathphrase></informalequation>`,
			want: ".. math::\n\n   a = b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := mustParse(t, tt.src).Render(testTables())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderMissingGraphic(t *testing.T) {
	t.Parallel()

	e := mustParse(t, `<mediaobject><imageobject><imagedata fileref="nothere.png"/></imageobject></mediaobject>`)
	_, err := e.Render(testTables())
	require.ErrorIs(t, err, ErrMissingResource)
}

func TestRenderWrap(t *testing.T) {
	t.Parallel()

	tables := testTables()
	tables.WrapWidth = 20

	got, err := mustParse(t, `<para>aaaa bbbb cccc dddd eeee</para>`).Render(tables)
	require.NoError(t, err)
	assert.Equal(t, "aaaa bbbb cccc dddd\neeee", got)

	got, err = mustParse(t, `<para>aaaa bbbb cccc dddd - eeee</para>`).Render(tables)
	require.NoError(t, err)
	assert.Equal(t, "aaaa bbbb cccc dddd - eeee", got, "a wrapped line must not start a list")
}

func TestRenderInline(t *testing.T) {
	t.Parallel()

	e := mustParse(t, `<refpurpose>Defines a
  <emphasis>keypoint</emphasis> for &me;.</refpurpose>`)
	got, err := e.RenderInline(testTables())
	require.NoError(t, err)
	assert.Equal(t, "Defines a *keypoint* for Ansys Mechanical.", got)
}

func TestPlain(t *testing.T) {
	t.Parallel()

	e := mustParse(t, `<title>Menu   <emphasis>Paths</emphasis></title>`)
	assert.Equal(t, "Menu Paths", e.Plain(testTables()))
}
