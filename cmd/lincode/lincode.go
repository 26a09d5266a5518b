// Package lincodecmder is the root lincode command.
package lincodecmder

import (
	"os"

	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/lincode/cmd/lincode/auth"
	chatcmder "github.com/papercomputeco/lincode/cmd/lincode/chat"
	configcmder "github.com/papercomputeco/lincode/cmd/lincode/config"
	initcmder "github.com/papercomputeco/lincode/cmd/lincode/init"
	servecmder "github.com/papercomputeco/lincode/cmd/lincode/serve"
	statuscmder "github.com/papercomputeco/lincode/cmd/lincode/status"
	versioncmder "github.com/papercomputeco/lincode/cmd/version"
	"github.com/papercomputeco/lincode/pkg/cliui"
)

const lincodeLongDesc string = `LinCode is a streaming Linux command line assistant.

Run a server in front of an LLM provider, then chat with it from a terminal:
  lincode serve        Run the chat server
  lincode chat         Chat with a running server

Manage local state:
  lincode init         Create a .lincode/ directory here
  lincode config       Get and set persistent configuration
  lincode status       Show the resumable chat session
  lincode auth         Store provider API keys`

const lincodeShortDesc string = "LinCode - Linux command line assistant"

func NewLincodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lincode",
		Short:        lincodeShortDesc,
		Long:         lincodeLongDesc,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			noColor, _ := cmd.Flags().GetBool("no-color")
			if noColor || os.Getenv("NO_COLOR") != "" {
				cliui.DisableColor()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml and session state (default: ./.lincode or ~/.lincode)")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
