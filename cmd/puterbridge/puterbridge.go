// Package puterbridgecmder is the root puterbridge command.
package puterbridgecmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/puterbridge/cmd/puterbridge/chat"
	initcmder "github.com/papercomputeco/puterbridge/cmd/puterbridge/init"
	modelscmder "github.com/papercomputeco/puterbridge/cmd/puterbridge/models"
	servecmder "github.com/papercomputeco/puterbridge/cmd/puterbridge/serve"
	versioncmder "github.com/papercomputeco/puterbridge/cmd/version"
)

const puterbridgeLongDesc string = `puterbridge exposes an OpenAI-compatible API on top of Puter's
driver-call endpoint, spreading requests across a pool of account tokens.

  puterbridge init      Write a default config.toml
  puterbridge serve     Run the bridge server
  puterbridge models    List the advertised models
  puterbridge chat      Chat through a running bridge`

const puterbridgeShortDesc string = "puterbridge - OpenAI-compatible bridge"

func NewPuterbridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "puterbridge",
		Short:         puterbridgeShortDesc,
		Long:          puterbridgeLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Config directory (default: ~/.puterbridge)")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(modelscmder.NewModelsCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
