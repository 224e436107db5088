// Package config loads the converter configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/xml2py/internal/model"
)

// ErrInvalid is returned when a configuration value cannot be used.
var ErrInvalid = errors.New("invalid configuration")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TermFiles names the auxiliary entity files, relative to the terms directory.
type TermFiles struct {
	Variables  string `yaml:"variables"`
	Global     string `yaml:"global"`
	Manuals    string `yaml:"manuals"`
	DocuGlobal string `yaml:"docu_global"`
	GroupCodes string `yaml:"group_codes"`
	Characters string `yaml:"characters"`
}

// Config is the conversion configuration read from config.yaml. Keys absent
// from the file keep their Default values.
type Config struct {
	LibraryNameStructured []string `yaml:"library_name_structured"`
	NewPackageName        string   `yaml:"new_package_name"`
	ImageFolderPath       string   `yaml:"image_folder_path"`

	// Command and class naming
	SpecificCommandMapping map[string]string `yaml:"specific_command_mapping"`
	SpecificClasses        map[string]string `yaml:"specific_classes"`
	IgnoredCommands        []string          `yaml:"ignored_commands"`
	ExcludedGroups         []string          `yaml:"excluded_groups"`

	// XML scan
	IgnorePatterns []string `yaml:"ignore_patterns"`

	// Rendering
	TextReplacements []model.Replacement `yaml:"text_replacements"`
	SkippedSections  []string            `yaml:"skipped_sections"`
	CommandLabel     string              `yaml:"command_label"`
	CodeLanguage     string              `yaml:"code_language"`
	WrapWidth        int                 `yaml:"wrap_width"`

	// Terms
	VersionTerm    string            `yaml:"version_term"`
	DefaultVersion string            `yaml:"default_version"`
	TermOverrides  map[string]string `yaml:"term_overrides"`
	TermFiles      TermFiles         `yaml:"term_files"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		LibraryNameStructured: []string{"pyconverter", "generatedcommands"},
		NewPackageName:        "package",
		ImageFolderPath:       "../../../images/_commands",
		SpecificCommandMapping: map[string]string{
			"*DEL": "stardel",
		},
		SpecificClasses: map[string]string{},
		IgnoredCommands: []string{"*IF", "*ELSE", "*RETURN", "*DEL"},
		ExcludedGroups:  []string{"xtycadimport"},
		TextReplacements: []model.Replacement{
			{Old: "Dtl?", New: ""},
			{Old: "Caret?", New: ""},
			{Old: "Caret1?", New: ""},
			{Old: "Caret 40?", New: ""},
			{Old: "``\"``", New: "``"},
		},
		SkippedSections: []string{"Menu Paths"},
		CommandLabel:    "Mechanical APDL Command",
		CodeLanguage:    "apdl",
		WrapWidth:       88,
		VersionTerm:     "ansys_internal_version",
		DefaultVersion:  "23.2",
		TermOverrides: map[string]string{
			"sgr":    ":math:`\\sigma`",
			"gt":     ":math:`\\sigma`",
			"thgr":   ":math:`<`",
			"phgr":   ":math:`<`",
			"ngr":    ":math:`\\phi`",
			"agr":    ":math:`\\alpha`",
			"OHgr":   ":math:`\\Omega`",
			"phis":   ":math:`\\phi`",
			"thetas": ":math:`\\theta`",
			"#13":    "#13",
			"#160":   "nbsp",
			"#215":   "times",
			"#934":   ":math:`\\Phi`",
		},
		TermFiles: TermFiles{
			Variables:  "build_variables.ent",
			Global:     "terms_global.ent",
			Manuals:    "manuals.ent",
			DocuGlobal: "docu_global.ent",
			GroupCodes: "../xml/ansys.groupcodes.commands.ent",
			Characters: "ent",
		},
	}
}

// Load reads a YAML configuration file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes on top of Default.
// Scalars and lists present in the document replace the default; maps are
// merged into the default entries.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns ErrInvalid when a required setting is empty or a value
// cannot be used.
func (c *Config) Validate() error {
	if len(c.LibraryNameStructured) == 0 {
		return fmt.Errorf("%w: library_name_structured is required", ErrInvalid)
	}
	if c.NewPackageName == "" {
		return fmt.Errorf("%w: new_package_name is required", ErrInvalid)
	}
	for raw, py := range c.SpecificCommandMapping {
		if !identRe.MatchString(py) {
			return fmt.Errorf("%w: specific_command_mapping[%q] = %q is not a Python identifier", ErrInvalid, raw, py)
		}
	}
	if c.WrapWidth < 0 {
		return fmt.Errorf("%w: wrap_width must not be negative", ErrInvalid)
	}
	return nil
}

// LibraryName returns the importable library segments, without a leading "src".
func (c *Config) LibraryName() []string {
	name := slices.Clone(c.LibraryNameStructured)
	if len(name) > 0 && name[0] == "src" {
		name = name[1:]
	}
	return name
}

// IsIgnoredCommand reports whether a raw command name is never written.
func (c *Config) IsIgnoredCommand(name string) bool {
	return slices.Contains(c.IgnoredCommands, name)
}
