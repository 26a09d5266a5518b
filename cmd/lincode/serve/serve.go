// Package servecmder provides the serve command, which runs the lincode chat
// server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/lincode/api"
	"github.com/papercomputeco/lincode/pkg/cliui"
	"github.com/papercomputeco/lincode/pkg/config"
	"github.com/papercomputeco/lincode/pkg/logger"
	"github.com/papercomputeco/lincode/pkg/prompt"
)

type ServeCommander struct {
	listen       string
	providerType string
	upstream     string
	model        string
	maxTokens    int
	promptPath   string

	storageDriver string
	sqlitePath    string
	postgresDSN   string

	eventStream  string
	kafkaBrokers string
	kafkaTopic   string

	numWorkers uint
	configDir  string
	debug      bool
	jsonLogs   bool
	logger     *zap.Logger
}

const serveLongDesc string = `Run the lincode chat server.

The server keeps a history per session, streams every reply from the
configured LLM provider as server-sent events, and publishes a turn event
for each finished reply.

Flags override LINCODE_* environment variables, which override values in
.lincode/config.toml.

Providers:
  ollama       Local Ollama server (default, no API key)
  anthropic    Anthropic Messages API, key from ANTHROPIC_API_KEY
               or "lincode auth anthropic"

Storage:
  memory       Histories are lost on restart (default)
  sqlite       --sqlite <path>, or .lincode/lincode.db
  postgres     --postgres <dsn>

Examples:
  lincode serve
  lincode serve --provider anthropic --model claude-sonnet-4-5
  lincode serve --sqlite ~/.lincode/sessions.db --system-prompt ./prompt.md
  lincode serve --eventstream kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the lincode chat server"

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagProvider,
	config.FlagUpstream,
	config.FlagModel,
	config.FlagMaxTokens,
	config.FlagSystemPrompt,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagEventStream,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewServeCmd() *cobra.Command {
	return newServeCmd(&ServeCommander{})
}

func newServeCmd(cmder *ServeCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.loadConfig(cmd, configDir)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagProvider, &cmder.providerType)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagModel, &cmder.model)
	config.AddIntFlag(cmd, config.ServeFlags, config.FlagMaxTokens, &cmder.maxTokens)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSystemPrompt, &cmder.promptPath)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventStream, &cmder.eventStream)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	cmd.Flags().UintVar(&cmder.numWorkers, "workers", 3, "Workers publishing turn events")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write logs as JSON")

	return cmd
}

// loadConfig resolves every setting through viper, so each one follows
// flag > env > config file > default.
func (c *ServeCommander) loadConfig(cmd *cobra.Command, configDir string) error {
	c.configDir = configDir
	v, err := config.InitViper(configDir)
	if err != nil {
		return err
	}
	config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)

	c.listen = v.GetString("server.listen")
	c.providerType = v.GetString("llm.provider")
	c.upstream = v.GetString("llm.upstream")
	c.model = v.GetString("llm.model")
	c.maxTokens = v.GetInt("llm.max_tokens")
	c.promptPath = v.GetString("llm.system_prompt_path")
	c.storageDriver = v.GetString("storage.driver")
	c.sqlitePath = v.GetString("storage.sqlite_path")
	c.postgresDSN = v.GetString("storage.postgres_dsn")
	c.eventStream = v.GetString("eventstream.provider")
	c.kafkaBrokers = v.GetString("eventstream.brokers")
	c.kafkaTopic = v.GetString("eventstream.topic")

	if c.maxTokens <= 0 {
		return fmt.Errorf("invalid max tokens %d", c.maxTokens)
	}

	c.applyProviderPreset()
	c.storageDriver = impliedStorageDriver(c.storageDriver, c.sqlitePath, c.postgresDSN)

	return nil
}

func (c *ServeCommander) run() error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(c.jsonLogs),
		logger.WithColor(cliui.ColorEnabled()),
	)
	defer func() { _ = c.logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	completer, err := c.createCompleter()
	if err != nil {
		return err
	}

	storer, err := c.createStorer(ctx)
	if err != nil {
		return err
	}
	defer storer.Close()

	publisher, err := c.createPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	loader, err := prompt.NewLoader(c.promptPath, c.logger)
	if err != nil {
		return err
	}
	go func() {
		if err := loader.Watch(ctx); err != nil {
			c.logger.Warn("system prompt watcher stopped", zap.Error(err))
		}
	}()

	server, err := api.NewServer(api.Config{
		ListenAddr: c.listen,
		Model:      c.model,
		MaxTokens:  c.maxTokens,
		Prompt:     loader,
		NumWorkers: c.numWorkers,
	}, completer, storer, publisher, c.logger)
	if err != nil {
		return fmt.Errorf("creating chat server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("chat server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	if err := server.Shutdown(); err != nil {
		c.logger.Warn("chat server shutdown", zap.Error(err))
	}
	return nil
}
