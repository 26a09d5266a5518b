package servecmder

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/lincode/pkg/credentials"
	"github.com/papercomputeco/lincode/pkg/eventstream/kafka"
	"github.com/papercomputeco/lincode/pkg/eventstream/nop"
	"github.com/papercomputeco/lincode/pkg/storage/inmemory"
	"github.com/papercomputeco/lincode/pkg/storage/sqlite"
)

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers every server flag with its default", func() {
		cmd := NewServeCmd()
		defaults := map[string]string{
			"listen":        ":7777",
			"provider":      "ollama",
			"upstream":      "http://localhost:11434",
			"model":         "llama3.2",
			"max-tokens":    "4096",
			"system-prompt": "",
			"storage":       "memory",
			"sqlite":        "",
			"postgres":      "",
			"eventstream":   "nop",
			"kafka-brokers": "",
			"kafka-topic":   "lincode.turns",
			"workers":       "3",
			"json-logs":     "false",
		}
		for name, def := range defaults {
			f := cmd.Flags().Lookup(name)
			Expect(f).NotTo(BeNil(), name)
			Expect(f.DefValue).To(Equal(def), name)
		}
	})

	It("rejects positional arguments", func() {
		cmd := NewServeCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})

var _ = Describe("loadConfig", func() {
	var (
		configDir string
		cmder     *ServeCommander
		cmd       *cobra.Command
	)

	BeforeEach(func() {
		var err error
		configDir, err = os.MkdirTemp("", "lincode-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, configDir)

		cmder = &ServeCommander{}
		cmd = newServeCmd(cmder)
	})

	writeConfig := func(body string) {
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(body), 0o600)).To(Succeed())
	}

	It("uses defaults without a config file", func() {
		Expect(cmder.loadConfig(cmd, configDir)).To(Succeed())

		Expect(cmder.listen).To(Equal(":7777"))
		Expect(cmder.providerType).To(Equal("ollama"))
		Expect(cmder.maxTokens).To(Equal(4096))
		Expect(cmder.storageDriver).To(Equal(storageMemory))
		Expect(cmder.eventStream).To(Equal(eventStreamNop))
	})

	It("reads values from config.toml", func() {
		writeConfig("[server]\nlisten = \":9000\"\n\n[llm]\nmodel = \"qwen2.5-coder\"\nmax_tokens = 512\n")

		Expect(cmder.loadConfig(cmd, configDir)).To(Succeed())
		Expect(cmder.listen).To(Equal(":9000"))
		Expect(cmder.model).To(Equal("qwen2.5-coder"))
		Expect(cmder.maxTokens).To(Equal(512))
	})

	It("lets environment variables override the config file", func() {
		writeConfig("[llm]\nmodel = \"qwen2.5-coder\"\n")
		GinkgoT().Setenv("LINCODE_LLM_MODEL", "mistral")

		Expect(cmder.loadConfig(cmd, configDir)).To(Succeed())
		Expect(cmder.model).To(Equal("mistral"))
	})

	It("lets flags override environment variables", func() {
		GinkgoT().Setenv("LINCODE_SERVER_LISTEN", ":9001")
		Expect(cmd.ParseFlags([]string{"--listen", ":9002"})).To(Succeed())

		Expect(cmder.loadConfig(cmd, configDir)).To(Succeed())
		Expect(cmder.listen).To(Equal(":9002"))
	})

	It("switches upstream and model with the provider", func() {
		Expect(cmd.ParseFlags([]string{"--provider", "anthropic"})).To(Succeed())

		Expect(cmder.loadConfig(cmd, configDir)).To(Succeed())
		Expect(cmder.upstream).To(Equal("https://api.anthropic.com"))
		Expect(cmder.model).To(Equal("claude-sonnet-4-5"))
	})

	It("keeps an explicit model when switching provider", func() {
		Expect(cmd.ParseFlags([]string{"--provider", "anthropic", "--model", "claude-haiku-4-5"})).To(Succeed())

		Expect(cmder.loadConfig(cmd, configDir)).To(Succeed())
		Expect(cmder.model).To(Equal("claude-haiku-4-5"))
	})

	It("infers sqlite storage from --sqlite", func() {
		Expect(cmd.ParseFlags([]string{"--sqlite", "sessions.db"})).To(Succeed())

		Expect(cmder.loadConfig(cmd, configDir)).To(Succeed())
		Expect(cmder.storageDriver).To(Equal(storageSQLite))
	})

	It("rejects a non-positive max tokens", func() {
		Expect(cmd.ParseFlags([]string{"--max-tokens", "0"})).To(Succeed())
		Expect(cmder.loadConfig(cmd, configDir)).To(HaveOccurred())
	})
})

var _ = Describe("impliedStorageDriver", func() {
	DescribeTable("picks the driver",
		func(driver, sqlitePath, dsn, expected string) {
			Expect(impliedStorageDriver(driver, sqlitePath, dsn)).To(Equal(expected))
		},
		Entry("memory by default", "memory", "", "", storageMemory),
		Entry("empty driver", "", "", "", storageMemory),
		Entry("sqlite path", "memory", "a.db", "", storageSQLite),
		Entry("postgres dsn", "memory", "", "postgres://x", storagePostgres),
		Entry("explicit driver wins", "postgres", "a.db", "postgres://x", storagePostgres),
	)
})

var _ = Describe("backends", func() {
	var cmder *ServeCommander

	BeforeEach(func() {
		cmder = &ServeCommander{logger: zap.NewNop()}
	})

	Describe("createStorer", func() {
		It("creates an in-memory driver", func() {
			cmder.storageDriver = storageMemory
			storer, err := cmder.createStorer(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(storer).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		})

		It("creates a SQLite driver", func() {
			cmder.storageDriver = storageSQLite
			cmder.sqlitePath = filepath.Join(GinkgoT().TempDir(), "sessions.db")

			storer, err := cmder.createStorer(context.Background())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(storer.Close)
			Expect(storer).To(BeAssignableToTypeOf(&sqlite.SQLiteDriver{}))
		})

		It("defaults the SQLite file into the config dir", func() {
			cmder.storageDriver = storageSQLite
			cmder.configDir = GinkgoT().TempDir()

			storer, err := cmder.createStorer(context.Background())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(storer.Close)
			Expect(cmder.sqlitePath).To(Equal(filepath.Join(cmder.configDir, defaultSQLiteFile)))
		})

		It("requires a DSN for postgres", func() {
			cmder.storageDriver = storagePostgres
			_, err := cmder.createStorer(context.Background())
			Expect(err).To(MatchError(ContainSubstring("--postgres")))
		})

		It("rejects unknown drivers", func() {
			cmder.storageDriver = "redis"
			_, err := cmder.createStorer(context.Background())
			Expect(err).To(MatchError(ContainSubstring("unknown storage driver")))
		})
	})

	Describe("createPublisher", func() {
		It("creates a nop publisher by default", func() {
			cmder.eventStream = eventStreamNop
			publisher, err := cmder.createPublisher()
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("creates a kafka publisher from the broker list", func() {
			cmder.eventStream = eventStreamKafka
			cmder.kafkaBrokers = "localhost:9092, localhost:9093"
			cmder.kafkaTopic = "lincode.turns"

			publisher, err := cmder.createPublisher()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(publisher.Close)
			Expect(publisher).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		})

		It("requires brokers for kafka", func() {
			cmder.eventStream = eventStreamKafka
			cmder.kafkaTopic = "lincode.turns"
			_, err := cmder.createPublisher()
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown providers", func() {
			cmder.eventStream = "nats"
			_, err := cmder.createPublisher()
			Expect(err).To(MatchError(ContainSubstring("unknown eventstream provider")))
		})
	})

	Describe("createCompleter", func() {
		It("creates an ollama completer", func() {
			cmder.providerType = "ollama"
			cmder.upstream = "http://localhost:11434"
			completer, err := cmder.createCompleter()
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.Name()).To(Equal("ollama"))
		})

		It("requires an API key for anthropic", func() {
			GinkgoT().Setenv("ANTHROPIC_API_KEY", "")
			cmder.configDir = GinkgoT().TempDir()
			cmder.providerType = "anthropic"
			_, err := cmder.createCompleter()
			Expect(err).To(MatchError(ContainSubstring("lincode auth anthropic")))
		})

		It("uses a stored anthropic API key", func() {
			GinkgoT().Setenv("ANTHROPIC_API_KEY", "")
			cmder.configDir = GinkgoT().TempDir()
			mgr, err := credentials.NewManager(cmder.configDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("anthropic", "sk-stored")).To(Succeed())

			cmder.providerType = "anthropic"
			completer, err := cmder.createCompleter()
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.Name()).To(Equal("anthropic"))
		})

		It("reads the anthropic API key from the environment", func() {
			GinkgoT().Setenv("ANTHROPIC_API_KEY", "sk-test")
			cmder.configDir = GinkgoT().TempDir()
			cmder.providerType = "anthropic"
			cmder.upstream = "https://api.anthropic.com"
			completer, err := cmder.createCompleter()
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.Name()).To(Equal("anthropic"))
		})

		It("rejects unknown providers", func() {
			cmder.providerType = "openai"
			_, err := cmder.createCompleter()
			Expect(err).To(HaveOccurred())
		})
	})
})
