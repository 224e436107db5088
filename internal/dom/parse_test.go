package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseXML(t *testing.T) {
	t.Parallel()

	root, err := ParseXML(strings.NewReader(`<?xml version="1.0"?>
<RefEntry id="Hlp_C_K">
  <!-- comment -->
  <refnamediv><refname>K</refname><refpurpose>Defines a &kp;.</refpurpose></refnamediv>
</RefEntry>`))
	require.NoError(t, err)

	assert.Equal(t, "refentry", root.Tag)
	id, ok := root.Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "Hlp_C_K", id)
	assert.Equal(t, "K", root.First("refname").Text())
	assert.Equal(t, "Defines a &kp;.", root.First("refpurpose").Text(), "unknown entities stay verbatim")
	assert.Len(t, root.ChildElements(), 1, "comments are dropped")
}

func TestParseXMLNoRoot(t *testing.T) {
	t.Parallel()

	_, err := ParseXML(strings.NewReader(`<?xml version="1.0"?>`))
	require.Error(t, err)
}

func TestParseHTMLSingleRoot(t *testing.T) {
	t.Parallel()

	root, err := ParseHTML(strings.NewReader(
		`<div targetptr="top"><ttl>Command Reference</ttl><obj targetptr="k" href="Hlp_C_K.html"><ttl>K</ttl></obj></div>`))
	require.NoError(t, err)

	assert.Equal(t, "div", root.Tag)
	assert.Equal(t, "ttl", root.FirstChildElement().Tag)
	assert.Equal(t, "Command Reference", root.FirstChildElement().Text())
	objs := root.Find("obj")
	require.Len(t, objs, 1)
	href, _ := objs[0].Attr("href")
	assert.Equal(t, "Hlp_C_K.html", href)
}

func TestParseHTMLMultipleRoots(t *testing.T) {
	t.Parallel()

	root, err := ParseHTML(strings.NewReader(`<div>a</div><div>b</div>`))
	require.NoError(t, err)
	assert.Equal(t, "body", root.Tag)
	assert.Len(t, root.ChildElements(), 2)
}

func TestParseFragment(t *testing.T) {
	t.Parallel()

	frag, err := ParseFragment(` me 'Mechanical <emphasis>APDL</emphasis>'>`)
	require.NoError(t, err)
	assert.Equal(t, "fragment", frag.Tag)
	assert.Equal(t, " me 'Mechanical APDL'>", frag.Text())
	require.NotNil(t, frag.First("emphasis"))
}
