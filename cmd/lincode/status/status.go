// Package statuscmder provides the status command for displaying the chat
// session the CLI will resume.
package statuscmder

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/lincode/pkg/cliui"
	"github.com/papercomputeco/lincode/pkg/dotdir"
)

const statusLongDesc string = `Show the chat session "lincode chat" will resume.

Reads session.json from the local .lincode/ directory (or ~/.lincode/) and
prints the session id, the server it belongs to, and when it was last used.

Use --forget to drop the stored session so the next chat starts a new
conversation. The history stays on the server until it is cleared there.

Examples:
  lincode status
  lincode status --forget`

const statusShortDesc string = "Show the resumable chat session"

type statusCommander struct {
	forget bool
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.OutOrStdout(), configDir)
		},
	}

	cmd.Flags().BoolVar(&cmder.forget, "forget", false, "Forget the stored session")

	return cmd
}

func (c *statusCommander) run(w io.Writer, configDir string) error {
	manager := dotdir.NewManager()

	if c.forget {
		if err := manager.ClearSessionState(configDir); err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s Forgot stored session. Next chat will start a new conversation.\n", cliui.SuccessMark)
		return nil
	}

	state, err := manager.LoadSessionState(configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	if state == nil {
		fmt.Fprintf(w, "  %s No stored session. Next chat will start a new conversation.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(w, "\n  %s  %s\n", cliui.KeyStyle.Render("Session:  "), cliui.NameStyle.Render(state.SessionID))
	fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("Server:   "), cliui.ValueStyle.Render(state.Target))
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "  %s  %s %s\n",
			cliui.KeyStyle.Render("Last used:"),
			cliui.ValueStyle.Render(state.UpdatedAt.Local().Format(time.RFC1123)),
			cliui.DimStyle.Render("("+time.Since(state.UpdatedAt).Round(time.Second).String()+" ago)"),
		)
	}

	fmt.Fprintln(w)
	return nil
}
