// Package modelscmder provides the models listing command.
package modelscmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/puterbridge/pkg/config"
	"github.com/papercomputeco/puterbridge/pkg/models"
)

const modelsLongDesc string = `List the models the bridge advertises on /v1/models, with the
upstream driver each chat model is routed to. The first model of each
list is the default.

Override the lists in config.toml:

  [models]
  chat = ["gpt-4o-mini", "claude-3-5-sonnet"]
  image = ["gpt-image-1"]`

const modelsShortDesc string = "List advertised models"

type modelsCommander struct {
	registry *models.Registry
}

func NewModelsCmd() *cobra.Command {
	cmder := &modelsCommander{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := config.Load(cmd)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.registry = models.NewRegistry(cfg.Models.Chat, cfg.Models.Image)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	return cmd
}

func (c *modelsCommander) run(w io.Writer) error {
	fmt.Fprintln(w, "Chat models:")
	for _, id := range c.registry.ChatModels() {
		fmt.Fprintf(w, "  %-32s %s%s\n", id, models.DriverFor(id), defaultMark(id, c.registry.DefaultChatModel()))
	}

	fmt.Fprintln(w, "Image models:")
	for _, id := range c.registry.ImageModels() {
		fmt.Fprintf(w, "  %-32s %s%s\n", id, models.DriverOpenAIImage, defaultMark(id, c.registry.DefaultImageModel()))
	}

	return nil
}

func defaultMark(id, def string) string {
	if id == def {
		return " (default)"
	}
	return ""
}
