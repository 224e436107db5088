// xml2py converts an XML command reference into a Python package with
// matching reStructuredText documentation.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/phobologic/xml2py/internal/config"
	"github.com/phobologic/xml2py/internal/convert"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "xml2py",
		Short:         "Convert an XML command reference into a Python package",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Version = version
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(newPackageCmd(stdout, stderr))
	cmd.AddCommand(newInitCmd(stdout, stderr))
	cmd.AddCommand(newVersionCmd(stdout))
	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the xml2py version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, _ = fmt.Fprintf(stdout, "xml2py %s\n", version)
			return nil
		},
	}
}

func newPackageCmd(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("xml2py")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("xml-path", "XML_PATH", "XML2PY_XML_PATH")

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Create a Python package from an XML documentation checkout",
		Long: strings.TrimSpace(`
Convert the XML command reference found under --xml-path into a Python package
written to <targ-path>/<new_package_name>. The checkout must contain the
graphics, links, terms and xml directories.

Functions in --func-path named <python_name>.py replace the generated body of
the matching command. Without it the default code generation applies to every
command.

XML_PATH, XML2PY_FUNC_PATH, XML2PY_TARG_PATH and XML2PY_CONFIG are used when
the matching flag is not given.
`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.StringP("xml-path", "x", "", "path to the documentation checkout")
	flags.StringP("func-path", "f", "", "directory of custom functions")
	flags.StringP("targ-path", "p", ".", "directory the package is created in")
	flags.StringP("config", "c", defaultConfigPath, "configuration file")
	flags.BoolP("verbose", "v", false, "log debug messages")
	for _, name := range []string{"xml-path", "func-path", "targ-path", "config", "verbose"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runPackage(v, cmd.Flags().Changed("config"), stdout, stderr)
	}
	return cmd
}

func runPackage(v *viper.Viper, explicitConfig bool, stdout, stderr io.Writer) error {
	log := newLogger(stderr, v.GetBool("verbose"))

	xmlPath := v.GetString("xml-path")
	if xmlPath == "" {
		return errors.New("no XML path: pass --xml-path or set XML_PATH")
	}
	xmlPath, err := filepath.Abs(xmlPath)
	if err != nil {
		return fmt.Errorf("resolving xml path: %w", err)
	}

	funcPath := v.GetString("func-path")
	if funcPath == "" {
		log.Info("no custom functions path, the default code generation applies to all commands")
	} else if info, err := os.Stat(funcPath); err != nil || !info.IsDir() {
		return fmt.Errorf("func path %q is not a directory", funcPath)
	}

	cfg, err := loadConfig(v.GetString("config"), explicitConfig, log)
	if err != nil {
		return err
	}

	target := v.GetString("targ-path")
	conv := &convert.Converter{Config: cfg, Log: log}
	ps, err := conv.Package(convert.Options{XMLPath: xmlPath, FuncPath: funcPath, Target: target})
	if err != nil {
		return err
	}

	classes := 0
	for _, m := range ps.Modules {
		classes += len(m.Classes)
	}
	_, _ = fmt.Fprintf(stdout, "wrote %d modules and %d classes to %s\n",
		len(ps.Modules), classes, filepath.Join(target, cfg.NewPackageName))
	return nil
}

// loadConfig reads the configuration file. A missing file falls back to the
// defaults unless the path was given explicitly.
func loadConfig(path string, explicit bool, log logrus.FieldLogger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		log.WithField("file", path).Warn("no configuration file, using defaults")
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}
