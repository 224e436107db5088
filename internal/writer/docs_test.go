package writer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/xml2py/internal/model"
)

func TestWriteDocs(t *testing.T) {
	t.Parallel()

	ps := model.PackageStructure{
		LibraryName: []string{"pyconverter", "generatedcommands"},
		Modules: []model.Module{
			{Name: "apdl", Classes: []model.Class{
				{FileName: "parameters", Name: "Parameters", Methods: []string{"star_vget", "vget"}},
			}},
			{Name: "aux_2", Classes: []model.Class{
				{FileName: "binary_files", Name: "BinaryFiles", Methods: []string{"fileaux2"}},
			}},
		},
	}

	target := t.TempDir()
	summary, err := newWriter().WriteDocs(target, ps)
	require.NoError(t, err)

	docs := filepath.Join(target, "package", "doc", "source")
	assert.Equal(t, filepath.Join(docs, "docs.rst"), summary)

	assert.Equal(t, `
API documentation
=================

.. toctree::
   :maxdepth: 1

   apdl/index.rst
   aux_2/index.rst
`, readFile(t, summary))

	assert.Equal(t, `
.. _ref_aux_2:

Aux 2
=====

.. list-table::

   * - :ref:`+"`ref_binary_files`"+`


.. toctree::
   :maxdepth: 1
   :hidden:

   binary_files
`, readFile(t, filepath.Join(docs, "aux_2", "index.rst")))

	assert.Equal(t, `
.. _ref_parameters:


Parameters
==========


.. currentmodule:: pyconverter.generatedcommands.apdl.parameters

.. autoclass:: pyconverter.generatedcommands.apdl.parameters.Parameters

.. autosummary::
   :template: base.rst
   :toctree: _autosummary


   Parameters.star_vget
   Parameters.vget
`, readFile(t, filepath.Join(docs, "apdl", "parameters.rst")))
}

func TestCapitalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Aux 2", capitalize("aux 2"))
	assert.Equal(t, "Prep7", capitalize("PREP7"))
	assert.Equal(t, "", capitalize(""))
}
