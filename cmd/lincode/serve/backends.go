package servecmder

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/papercomputeco/lincode/pkg/config"
	"github.com/papercomputeco/lincode/pkg/credentials"
	"github.com/papercomputeco/lincode/pkg/dotdir"
	"github.com/papercomputeco/lincode/pkg/eventstream"
	"github.com/papercomputeco/lincode/pkg/eventstream/kafka"
	"github.com/papercomputeco/lincode/pkg/eventstream/nop"
	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/llm/provider"
	"github.com/papercomputeco/lincode/pkg/storage"
	"github.com/papercomputeco/lincode/pkg/storage/inmemory"
	"github.com/papercomputeco/lincode/pkg/storage/postgres"
	"github.com/papercomputeco/lincode/pkg/storage/sqlite"
)

const (
	storageMemory   = "memory"
	storageSQLite   = "sqlite"
	storagePostgres = "postgres"

	eventStreamNop   = "nop"
	eventStreamKafka = "kafka"

	defaultSQLiteFile = "lincode.db"
)

// applyProviderPreset swaps the upstream and model for the provider's own
// defaults when only the provider was changed from the default one.
func (c *ServeCommander) applyProviderPreset() {
	defaults := config.NewDefaultConfig()
	if c.providerType == defaults.LLM.Provider {
		return
	}

	preset, err := config.PresetConfig(c.providerType)
	if err != nil {
		return
	}
	if c.upstream == defaults.LLM.Upstream {
		c.upstream = preset.LLM.Upstream
	}
	if c.model == defaults.LLM.Model {
		c.model = preset.LLM.Model
	}
}

// impliedStorageDriver lets --sqlite or --postgres select their driver when
// the driver itself was left at memory.
func impliedStorageDriver(driver, sqlitePath, postgresDSN string) string {
	if driver != storageMemory && driver != "" {
		return driver
	}
	switch {
	case sqlitePath != "":
		return storageSQLite
	case postgresDSN != "":
		return storagePostgres
	default:
		return storageMemory
	}
}

func (c *ServeCommander) createCompleter() (llm.Completer, error) {
	cfg := provider.Config{
		Upstream: c.upstream,
		Logger:   c.logger,
	}
	if credentials.IsSupportedProvider(c.providerType) {
		mgr, err := credentials.NewManager(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		cfg.APIKey, err = mgr.ResolveKey(c.providerType)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("no API key for %s: set %s or run 'lincode auth %s'",
				c.providerType, credentials.EnvVarForProvider(c.providerType), c.providerType)
		}
	}

	completer, err := provider.New(c.providerType, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating completer: %w", err)
	}

	c.logger.Info("using llm provider",
		zap.String("provider", completer.Name()),
		zap.String("upstream", c.upstream),
		zap.String("model", c.model),
	)
	return completer, nil
}

func (c *ServeCommander) createStorer(ctx context.Context) (storage.Driver, error) {
	switch c.storageDriver {
	case storageSQLite:
		if c.sqlitePath == "" {
			dir, err := dotdir.NewManager().Target(c.configDir)
			if err != nil {
				return nil, err
			}
			c.sqlitePath = filepath.Join(dir, defaultSQLiteFile)
		}
		storer, err := sqlite.NewSQLiteDriver(c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", c.sqlitePath))
		return storer, nil

	case storagePostgres:
		if c.postgresDSN == "" {
			return nil, fmt.Errorf("%s storage requires --%s", storagePostgres, config.FlagPostgres)
		}
		storer, err := postgres.NewDriver(ctx, c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		c.logger.Info("using PostgreSQL storage")
		return storer, nil

	case storageMemory, "":
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q (supported: %s, %s, %s)",
			c.storageDriver, storageMemory, storageSQLite, storagePostgres)
	}
}

func (c *ServeCommander) createPublisher() (eventstream.Publisher, error) {
	switch c.eventStream {
	case eventStreamKafka:
		esCfg := config.EventStreamConfig{Brokers: c.kafkaBrokers}
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: esCfg.BrokerList(),
			Topic:   c.kafkaTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing turn events to kafka",
			zap.Strings("brokers", esCfg.BrokerList()),
			zap.String("topic", c.kafkaTopic),
		)
		return publisher, nil

	case eventStreamNop, "":
		return nop.NewPublisher(c.logger), nil

	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q (supported: %s, %s)",
			c.eventStream, eventStreamNop, eventStreamKafka)
	}
}
