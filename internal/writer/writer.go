// Package writer lays out the generated Python package: one directory per
// module, one file per class, and the reStructuredText pages documenting them.
package writer

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/phobologic/xml2py/internal/command"
	"github.com/phobologic/xml2py/internal/config"
	"github.com/phobologic/xml2py/internal/model"
	"github.com/phobologic/xml2py/internal/parse"
)

// Writer writes the generated package below a target directory.
type Writer struct {
	Config *config.Config
	Log    logrus.FieldLogger
}

// PackagePath returns the root of the generated package below target.
func (w *Writer) PackagePath(target string) string {
	return filepath.Join(target, w.Config.NewPackageName)
}

// LibraryPath returns the importable library directory below target.
func (w *Writer) LibraryPath(target string) string {
	parts := append([]string{w.PackagePath(target), "src"}, w.Config.LibraryName()...)
	return filepath.Join(parts...)
}

type classBuild struct {
	model.Class
	imports []string
	bodies  []string
}

// WriteSource renders every placed command into its class file and writes
// the package __init__ files. Ignored, excluded and unplaced commands are
// left out. The package directory is recreated from scratch. Every class
// file must pass the Python syntax check.
func (w *Writer) WriteSource(target string, commands map[string]*command.Command, overrides command.Overrides) (model.PackageStructure, error) {
	ps := model.PackageStructure{LibraryName: w.Config.LibraryName()}

	modules := map[string]map[string]*classBuild{}
	written := 0
	for _, c := range command.Sorted(commands) {
		log := w.Log.WithField("command", c.Name)
		if w.Config.IsIgnoredCommand(c.Name) {
			log.Debug("ignored command")
			continue
		}
		module, class, ok := c.Placement()
		if !ok {
			log.Debug("unplaced command")
			continue
		}
		if c.PyName == "" {
			log.Warn("command has no python name")
			continue
		}
		if renamed, ok := w.Config.SpecificClasses[class]; ok {
			class = renamed
		}

		modName := ModuleName(module)
		classes, ok := modules[modName]
		if !ok {
			classes = map[string]*classBuild{}
			modules[modName] = classes
		}
		file := FileName(class)
		cb, ok := classes[file]
		if !ok {
			cb = &classBuild{Class: model.Class{FileName: file, Name: ClassName(class)}}
			classes[file] = cb
		}

		method, err := c.Render(overrides, "    ")
		if err != nil {
			return ps, err
		}
		imports, rest := command.SplitImports(method)
		cb.imports = command.MergeImports(cb.imports, imports...)
		cb.bodies = append(cb.bodies, rest)
		cb.Methods = append(cb.Methods, c.PyName)
		written++
	}

	if err := os.RemoveAll(w.PackagePath(target)); err != nil {
		return ps, fmt.Errorf("cleaning package: %w", err)
	}
	lib := w.LibraryPath(target)
	if err := os.MkdirAll(lib, 0o755); err != nil {
		return ps, fmt.Errorf("creating library: %w", err)
	}

	var paths []string
	for _, modName := range sortedKeys(modules) {
		dir := filepath.Join(lib, modName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ps, fmt.Errorf("creating module %s: %w", modName, err)
		}
		mod := model.Module{Name: modName}
		for _, file := range sortedKeys(modules[modName]) {
			cb := modules[modName][file]
			path := filepath.Join(dir, file+".py")
			if err := os.WriteFile(path, []byte(classSource(cb)), 0o644); err != nil {
				return ps, fmt.Errorf("writing %s: %w", path, err)
			}
			paths = append(paths, path)
			mod.Classes = append(mod.Classes, cb.Class)
		}
		if err := writeModuleInit(dir, mod); err != nil {
			return ps, err
		}
		ps.Modules = append(ps.Modules, mod)
	}

	if err := validateConcurrent(paths); err != nil {
		return ps, err
	}
	if err := w.writeLibraryInit(lib, ps); err != nil {
		return ps, err
	}

	w.Log.WithFields(logrus.Fields{
		"commands": written,
		"modules":  len(ps.Modules),
		"path":     lib,
	}).Info("wrote source")
	return ps, nil
}

func classSource(cb *classBuild) string {
	var b strings.Builder
	if len(cb.imports) > 0 {
		b.WriteString(strings.Join(cb.imports, "\n"))
		b.WriteString("\n\n\n")
	}
	fmt.Fprintf(&b, "class %s:\n", cb.Name)
	b.WriteString(strings.Join(cb.bodies, "\n"))
	return b.String()
}

func writeModuleInit(dir string, mod model.Module) error {
	var b strings.Builder
	b.WriteString("from . import (\n")
	for _, c := range mod.Classes {
		fmt.Fprintf(&b, "    %s,\n", c.FileName)
	}
	b.WriteString(")\n")
	path := filepath.Join(dir, "__init__.py")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (w *Writer) writeLibraryInit(lib string, ps model.PackageStructure) error {
	var b strings.Builder
	b.WriteString("from . import (\n")
	for _, m := range ps.Modules {
		fmt.Fprintf(&b, "    %s,\n", m.Name)
	}
	b.WriteString(")\n\n")
	b.WriteString("try:\n")
	b.WriteString("    import importlib.metadata as importlib_metadata\n")
	b.WriteString("except ModuleNotFoundError:\n")
	b.WriteString("    import importlib_metadata\n\n")
	b.WriteString("__version__ = importlib_metadata.version(__name__.replace('.', '-'))\n")
	fmt.Fprintf(&b, "\"\"\"%s version.\"\"\"\n", strings.Join(ps.LibraryName, "-"))
	path := filepath.Join(lib, "__init__.py")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// validateConcurrent syntax-checks the given files, one parser per worker.
// The first failing file in input order is reported.
func validateConcurrent(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	type result struct {
		index int
		err   error
	}

	numWorkers := min(runtime.GOMAXPROCS(0), len(paths))
	work := make(chan int, len(paths))
	results := make(chan result, len(paths))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				source, err := os.ReadFile(paths[idx])
				if err == nil {
					err = parse.Validate(source)
				}
				results <- result{index: idx, err: err}
			}
		}()
	}

	for i := range paths {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	errs := make([]error, len(paths))
	for r := range results {
		errs[r.index] = r.err
	}
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("%s: %w", paths[i], err)
		}
	}
	return nil
}

// CopyGraphics copies the graphics directory into the documentation images
// folder of the package. A missing source directory is not an error.
func (w *Writer) CopyGraphics(graphics, target string) error {
	if _, err := os.Stat(graphics); err != nil {
		w.Log.WithField("dir", graphics).Warn("no graphics to copy")
		return nil
	}
	dst := filepath.Join(w.PackagePath(target), "doc", "source", "images")
	return filepath.WalkDir(graphics, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(graphics, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, out)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// ModuleName returns the directory name of a module group, e.g.
// "APDL" -> "apdl", "Session/Data" -> "sessiondata".
func ModuleName(group string) string {
	s := strings.ReplaceAll(group, "/", "")
	s = strings.ReplaceAll(s, " ", "_")
	return identifier(strings.ToLower(s), "_")
}

// FileName returns the file stem of a class group, e.g.
// "Constraint Equations" -> "constraint_equations".
func FileName(class string) string {
	s := strings.NewReplacer(" ", "_", "/", "_").Replace(class)
	return identifier(strings.ToLower(s), "_")
}

// ClassName returns the Python class name of a class group, e.g.
// "constraint equations" -> "ConstraintEquations".
func ClassName(class string) string {
	s := strings.NewReplacer(" ", "", "/", "").Replace(title(class))
	return identifier(s, "")
}

// title upper-cases the first letter of every run of letters and
// lower-cases the rest, the way Python's str.title does.
func title(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		if i > 0 && unicode.IsLetter(rs[i-1]) {
			rs[i] = unicode.ToLower(r)
		} else {
			rs[i] = unicode.ToUpper(r)
		}
	}
	return string(rs)
}

// identifier replaces characters that cannot appear in a Python identifier
// with repl and guards a leading digit.
func identifier(s, repl string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
			continue
		}
		b.WriteString(repl)
	}
	out := b.String()
	if out != "" && unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
