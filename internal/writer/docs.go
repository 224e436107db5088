package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/phobologic/xml2py/internal/model"
)

// WriteDocs writes the reStructuredText tree for a generated package under
// <package>/doc/source and returns the path of the summary page.
func (w *Writer) WriteDocs(target string, ps model.PackageStructure) (string, error) {
	docPath := filepath.Join(w.PackagePath(target), "doc", "source")
	if err := os.MkdirAll(docPath, 0o755); err != nil {
		return "", fmt.Errorf("creating doc directory: %w", err)
	}

	summary := filepath.Join(docPath, "docs.rst")
	if err := os.WriteFile(summary, []byte(summaryPage(ps)), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", summary, err)
	}

	library := strings.Join(ps.LibraryName, ".")
	for _, mod := range ps.Modules {
		dir := filepath.Join(docPath, mod.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
		pages := map[string]string{"index.rst": modulePage(mod)}
		for _, c := range mod.Classes {
			pages[c.FileName+".rst"] = classPage(library, mod.Name, c)
		}
		for name, content := range pages {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("writing %s: %w", path, err)
			}
		}
	}

	w.Log.WithField("path", summary).Info("wrote docs")
	return summary, nil
}

func summaryPage(ps model.PackageStructure) string {
	var b strings.Builder
	b.WriteString("\n" + heading("API documentation", "=") + "\n")
	b.WriteString(toctree(nil, moduleIndexes(ps)))
	return b.String()
}

func moduleIndexes(ps model.PackageStructure) []string {
	out := make([]string, 0, len(ps.Modules))
	for _, m := range ps.Modules {
		out = append(out, m.Name+"/index.rst")
	}
	return out
}

func modulePage(mod model.Module) string {
	files := make([]string, 0, len(mod.Classes))
	for _, c := range mod.Classes {
		files = append(files, c.FileName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n.. _ref_%s:\n\n", mod.Name)
	b.WriteString(heading(capitalize(strings.ReplaceAll(mod.Name, "_", " ")), "=") + "\n")
	b.WriteString(formatListTable(files))
	b.WriteString("\n\n")
	b.WriteString(toctree([]string{":hidden:"}, files))
	return b.String()
}

func classPage(library, module string, c model.Class) string {
	qualified := library + "." + module + "." + c.FileName

	var b strings.Builder
	fmt.Fprintf(&b, "\n.. _ref_%s:\n\n\n", c.FileName)
	b.WriteString(heading(c.Name, "=") + "\n\n")
	fmt.Fprintf(&b, ".. currentmodule:: %s\n\n", qualified)
	fmt.Fprintf(&b, ".. autoclass:: %s.%s\n\n", qualified, c.Name)
	b.WriteString(".. autosummary::\n   :template: base.rst\n   :toctree: _autosummary\n\n\n")
	for _, m := range c.Methods {
		fmt.Fprintf(&b, "   %s.%s\n", c.Name, m)
	}
	return b.String()
}

func heading(title, mark string) string {
	return title + "\n" + strings.Repeat(mark, len(title)) + "\n"
}

func formatListTable(refs []string) string {
	var b strings.Builder
	b.WriteString(".. list-table::\n\n")
	for _, ref := range refs {
		fmt.Fprintf(&b, "   * - :ref:`ref_%s`\n", ref)
	}
	return b.String()
}

func toctree(options, entries []string) string {
	var b strings.Builder
	b.WriteString(".. toctree::\n   :maxdepth: 1\n")
	for _, opt := range options {
		fmt.Fprintf(&b, "   %s\n", opt)
	}
	b.WriteString("\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "   %s\n", e)
	}
	return b.String()
}

// capitalize upper-cases the first character and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(strings.ToLower(s))
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}
