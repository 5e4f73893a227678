// Package initcmder provides the init command, which writes a default
// config.toml.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/puterbridge/pkg/config"
)

const initLongDesc string = `Write a default config.toml to the config directory
(~/.puterbridge unless --config-dir is set).

An existing config is left alone unless --force is given.`

const initShortDesc string = "Write a default config.toml"

type initCommander struct {
	configDir string
	force     bool
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Overwrite an existing config.toml")

	return cmd
}

func (c *initCommander) run(w io.Writer) error {
	dir, err := config.Dir(c.configDir)
	if err != nil {
		return err
	}

	path, err := config.WriteDefault(dir, c.force)
	if errors.Is(err, os.ErrExist) {
		fmt.Fprintf(w, "Config already exists at %s (use --force to overwrite)\n", path)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote default config to %s\n", path)
	return nil
}
