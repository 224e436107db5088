package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/xml2py/internal/config"
)

const configHeader = `# xml2py configuration.
#
# Every key is optional; the values below are the defaults. Command names are
# case-sensitive.
`

// errConfigExists is returned when init would overwrite a configuration file.
var errConfigExists = errors.New("configuration file already exists")

func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun, force bool
	cmd := &cobra.Command{
		Use:   "init [path-to-config.yaml]",
		Short: "Write a starter configuration file",
		Long: strings.TrimSpace(`
Write a config.yaml holding every recognized key with its default value.

path-to-config.yaml defaults to ./config.yaml. An existing file is left alone
unless --force is given.
`),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the configuration instead of writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.RunE = func(_ *cobra.Command, args []string) error {
		path := defaultConfigPath
		if len(args) > 0 {
			path = args[0]
		}
		return runInit(path, dryRun, force, stdout, stderr)
	}
	return cmd
}

// runInit implements the `xml2py init` subcommand.
func runInit(path string, dryRun, force bool, stdout, stderr io.Writer) error {
	content, err := generateConfig()
	if err != nil {
		return err
	}

	if dryRun {
		_, _ = fmt.Fprint(stdout, content)
		return nil
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s (use --force to overwrite)", errConfigExists, path)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote configuration to %s\n", path)
	return nil
}

// generateConfig returns the default configuration as commented YAML.
func generateConfig() (string, error) {
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return "", fmt.Errorf("encoding default configuration: %w", err)
	}
	return configHeader + "\n" + string(data), nil
}
