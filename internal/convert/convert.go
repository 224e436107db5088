// Package convert runs the conversion pipeline over a documentation
// checkout: resolver tables, a metadata pass to build the name map, the full
// command pass, and finally the package writers.
package convert

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/phobologic/xml2py/internal/command"
	"github.com/phobologic/xml2py/internal/config"
	"github.com/phobologic/xml2py/internal/custom"
	"github.com/phobologic/xml2py/internal/model"
	"github.com/phobologic/xml2py/internal/resolve"
	"github.com/phobologic/xml2py/internal/writer"
)

// Converter turns a documentation checkout into a Python package.
type Converter struct {
	Config *config.Config
	Log    logrus.FieldLogger
}

// Result holds the tables and commands of one conversion.
type Result struct {
	Resolver *resolve.Resolver
	Commands map[string]*command.Command
	Names    command.NameMap
}

// Convert loads every command below root with its Python name assigned.
func (c *Converter) Convert(root string) (*Result, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", command.ErrDirectoryNotFound, root)
	}
	layout := config.LayoutFor(root)

	res, err := (&resolve.Loader{Log: c.Log}).Load(layout, c.Config)
	if err != nil {
		return nil, fmt.Errorf("loading resolver tables: %w", err)
	}

	x := &command.Extractor{
		Log:             c.Log,
		Tables:          res.Tables(c.Config),
		ExcludedGroups:  c.Config.ExcludedGroups,
		IgnorePatterns:  c.Config.IgnorePatterns,
		CommandLabel:    c.Config.CommandLabel,
		CmdBaseURL:      res.Version.CmdBaseURL,
		SkippedSections: c.Config.SkippedSections,
	}

	meta, err := x.LoadCommands(layout.XML, true)
	if err != nil {
		return nil, err
	}
	names, err := command.BuildNameMap(command.Names(meta), c.Config.SpecificCommandMapping)
	if err != nil {
		return nil, err
	}

	commands, err := x.LoadCommands(layout.XML, false)
	if err != nil {
		return nil, err
	}
	command.AssignNames(commands, names)

	return &Result{Resolver: res, Commands: commands, Names: names}, nil
}

// Options names the directories of a Package run. FuncPath may be empty.
type Options struct {
	XMLPath  string
	FuncPath string
	Target   string
}

// Package converts the checkout at opts.XMLPath and writes the source tree,
// the graphics and the documentation pages below opts.Target.
func (c *Converter) Package(opts Options) (model.PackageStructure, error) {
	res, err := c.Convert(opts.XMLPath)
	if err != nil {
		return model.PackageStructure{}, err
	}
	overrides, err := custom.Load(opts.FuncPath, c.Log)
	if err != nil {
		return model.PackageStructure{}, err
	}
	c.warnUnusedOverrides(overrides, res.Names)

	w := &writer.Writer{Config: c.Config, Log: c.Log}
	ps, err := w.WriteSource(opts.Target, res.Commands, overrides)
	if err != nil {
		return ps, err
	}
	if err := w.CopyGraphics(config.LayoutFor(opts.XMLPath).Graphics, opts.Target); err != nil {
		return ps, fmt.Errorf("copying graphics: %w", err)
	}
	if _, err := w.WriteDocs(opts.Target, ps); err != nil {
		return ps, err
	}
	return ps, nil
}

func (c *Converter) warnUnusedOverrides(overrides *custom.Set, names command.NameMap) {
	used := make(map[string]bool, len(names))
	for _, py := range names {
		used[py] = true
	}
	for _, name := range overrides.Names() {
		if !used[name] {
			c.Log.WithField("function", name).Warn("custom function matches no command")
		}
	}
}
