// Package chatcmder provides the chat command, an interactive terminal client
// for a lincode chat server.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/lincode/pkg/chat"
	"github.com/papercomputeco/lincode/pkg/cliui"
	"github.com/papercomputeco/lincode/pkg/config"
	"github.com/papercomputeco/lincode/pkg/dotdir"
	"github.com/papercomputeco/lincode/pkg/logger"
	"github.com/papercomputeco/lincode/pkg/utils"
)

const (
	cmdExit  = "/exit"
	cmdClear = "/clear"

	healthTimeout = 5 * time.Second
)

var userPrompt = cliui.PromptStyle.Render("you> ")

type chatCommander struct {
	target       string
	stallTimeout string
	format       string
	dumpPath     string
	newSession   bool
	skipHealth   bool
	configDir    string
	debug        bool

	ddm    *dotdir.Manager
	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive chat with a lincode server.

Every message is sent to the server, which streams the reply back as it is
generated. The conversation continues across runs: the session id is kept
in .lincode/session.json and reused while the target stays the same.

Commands:
  /clear    Forget the conversation and start a new session
  /exit     Quit (Ctrl+D also works)

Output formats:
  auto        markdown on a terminal, text otherwise (default)
  text        Print tokens as they arrive
  markdown    Render the finished reply for the terminal
  html        Print the sanitized HTML of the finished reply

Examples:
  lincode chat
  lincode chat --target http://build-box:7777 --new
  lincode chat --format html --dump replies.sse`

const chatShortDesc string = "Interactive chat with a lincode server"

var chatFlagKeys = []string{
	config.FlagTarget,
	config.FlagStallTimeout,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{ddm: dotdir.NewManager()}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.ChatFlags, chatFlagKeys)

			cmder.target = v.GetString("client.target")
			cmder.stallTimeout = v.GetString("client.stall_timeout")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			return cmder.run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), isTerminal(cmd.OutOrStdout()))
		},
	}

	config.AddStringFlag(cmd, config.ChatFlags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.ChatFlags, config.FlagStallTimeout, &cmder.stallTimeout)
	cmd.Flags().StringVarP(&cmder.format, "format", "f", FormatAuto,
		fmt.Sprintf("Reply output format (%s)", strings.Join(ValidFormats(), ", ")))
	cmd.Flags().StringVar(&cmder.dumpPath, "dump", "", "Write the raw event stream of every reply to this file")
	cmd.Flags().BoolVar(&cmder.newSession, "new", false, "Start a new session instead of resuming the last one")
	cmd.Flags().BoolVar(&cmder.skipHealth, "skip-health-check", false, "Do not check the server before starting")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, in io.Reader, out io.Writer, isTTY bool) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithWriter(os.Stderr),
		logger.WithColor(cliui.ColorEnabled()),
	)
	defer func() { _ = c.logger.Sync() }()

	format, err := resolveFormat(c.format, isTTY)
	if err != nil {
		return err
	}

	stall, err := (&config.ClientConfig{StallTimeout: c.stallTimeout}).StallTimeoutDuration()
	if err != nil {
		return err
	}

	var dump io.Writer
	if c.dumpPath != "" {
		f, err := os.OpenFile(c.dumpPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening dump file: %w", err)
		}
		defer f.Close()
		dump = f
	}

	fmt.Fprintln(out)
	if !c.skipHealth {
		err := cliui.Step(out, "Connecting to "+c.target, func() error {
			return checkHealth(ctx, c.target)
		})
		if err != nil {
			return fmt.Errorf("chat server at %s is not reachable: %w", c.target, err)
		}
	}

	sessionID, resumed := c.resumeSession()

	pres := newPresenter(format, out)
	driver, err := chat.NewDriver(chat.Config{
		Target:       c.target,
		SessionID:    sessionID,
		StallTimeout: stall,
		Sink:         pres,
		Dump:         dump,
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}
	c.saveSession(driver.SessionID())

	if resumed {
		fmt.Fprintf(out, "  %s Resuming session %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(utils.Truncate(driver.SessionID(), 8)),
		)
	} else {
		fmt.Fprintf(out, "  %s New session %s\n",
			cliui.DimStyle.Render("●"),
			cliui.NameStyle.Render(utils.Truncate(driver.SessionID(), 8)),
		)
	}
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /clear to start over, /exit or Ctrl+D to quit."))

	return c.repl(ctx, in, out, driver, pres)
}

// repl reads one message per line until /exit, EOF, or ctx is done.
func (c *chatCommander) repl(ctx context.Context, in io.Reader, out io.Writer, driver *chat.Driver, pres presenter) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			break
		}

		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case cmdExit:
			fmt.Fprintln(out)
			return nil
		case cmdClear:
			id := driver.Clear(ctx)
			c.saveSession(id)
			fmt.Fprintf(out, "  %s Started session %s\n\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(utils.Truncate(id, 8)),
			)
			continue
		}

		pres.Reset()
		outcome := driver.Submit(ctx, input)
		if outcome.Rejected {
			continue
		}
		c.logger.Debug("reply finished",
			zap.String("state", outcome.State.String()),
			zap.Int("reply_len", len(outcome.Text)),
		)
		fmt.Fprintln(out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

// resumeSession returns the stored session id when it belongs to the same
// target.
func (c *chatCommander) resumeSession() (string, bool) {
	if c.newSession {
		return "", false
	}

	state, err := c.ddm.LoadSessionState(c.configDir)
	if err != nil {
		c.logger.Debug("ignoring unreadable session state", zap.Error(err))
		return "", false
	}
	if state == nil || state.SessionID == "" || state.Target != c.target {
		return "", false
	}
	return state.SessionID, true
}

func (c *chatCommander) saveSession(sessionID string) {
	err := c.ddm.SaveSessionState(&dotdir.SessionState{
		SessionID: sessionID,
		Target:    c.target,
	}, c.configDir)
	if err != nil {
		c.logger.Warn("could not save session state", zap.Error(err))
	}
}

func checkHealth(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(target, "/")+chat.HealthPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", utils.UserAgent())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(resp.Status)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
