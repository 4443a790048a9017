package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	chatlogx "github.com/loanbotlabs/loanbot-gateway/chatlog"
	computex "github.com/loanbotlabs/loanbot-gateway/compute"
	classifyx "github.com/loanbotlabs/loanbot-gateway/gateway/classify"
	composex "github.com/loanbotlabs/loanbot-gateway/gateway/compose"
	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
	dispatchx "github.com/loanbotlabs/loanbot-gateway/gateway/dispatch"
	orchestratorx "github.com/loanbotlabs/loanbot-gateway/gateway/orchestrator"
	configx "github.com/loanbotlabs/loanbot-gateway/pkg/config"
	_ "github.com/loanbotlabs/loanbot-gateway/pkg/logger/autoload"
	openrouterx "github.com/loanbotlabs/loanbot-gateway/pkg/openrouter"
	retrieverx "github.com/loanbotlabs/loanbot-gateway/retriever"
	serverx "github.com/loanbotlabs/loanbot-gateway/server"
	websearchx "github.com/loanbotlabs/loanbot-gateway/websearch"
)

type AppConfig struct {
	// BackendMode selects the capability implementations: "mock" serves the
	// canned backends, "production" wires qdrant, web search and the engine.
	BackendMode string `envconfig:"BACKEND_MODE" split_words:"true" default:"mock"`
	RedisAddr   string `envconfig:"REDIS_ADDR" split_words:"true"`
	ChatlogDSN  string `envconfig:"CHATLOG_DSN" split_words:"true"`
}

type GatewayConfig struct {
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	MaxRetries int           `envconfig:"MAX_RETRIES" split_words:"true" default:"1"`
	BaseDelay  time.Duration `envconfig:"BASE_DELAY" split_words:"true" default:"200ms"`
}

func main() {
	var envFile string

	root := &cobra.Command{
		Use:           "loanbot-gateway",
		Short:         "Loan consultation chat gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				configx.SetEnvFile(envFile)
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file")

	root.AddCommand(newServeCommand(), newIngestCommand())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg, err := configx.New[AppConfig]("")
	if err != nil {
		return err
	}
	gatewayCfg, err := configx.New[GatewayConfig]("GATEWAY")
	if err != nil {
		return err
	}
	serverCfg, err := configx.New[serverx.Config]("SERVER")
	if err != nil {
		return err
	}

	retrieval, computeBackend, err := buildBackends(ctx, appCfg)
	if err != nil {
		return err
	}

	dispatcher, err := dispatchx.New(retrieval, computeBackend, dispatchx.Config{
		Timeout:    gatewayCfg.Timeout,
		MaxRetries: gatewayCfg.MaxRetries,
		BaseDelay:  gatewayCfg.BaseDelay,
		ParamSpec:  computex.RequiredParams(),
	})
	if err != nil {
		return err
	}

	orch, err := orchestratorx.New(classifyx.New(classifyx.Config{}), dispatcher, composex.New())
	if err != nil {
		return err
	}

	logStore, err := buildChatLogStore(ctx, appCfg.ChatlogDSN)
	if err != nil {
		return err
	}

	handler := serverx.NewHandler(orch, computeBackend, logStore, serverCfg.Version)
	app := serverx.NewApp(handler)

	addr := fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()
	log.Info().Str("addr", addr).Str("backend_mode", appCfg.BackendMode).Msg("gateway listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func buildBackends(ctx context.Context, appCfg *AppConfig) (contractx.Retrieval, contractx.Compute, error) {
	switch strings.ToLower(strings.TrimSpace(appCfg.BackendMode)) {
	case "", "mock":
		return retrieverx.NewMock(), computex.NewMock(), nil
	case "production":
		pipeline, err := buildRetrievalPipeline(ctx, appCfg)
		if err != nil {
			return nil, nil, err
		}
		return pipeline, computex.NewEngine(), nil
	default:
		return nil, nil, fmt.Errorf("unknown backend mode %q", appCfg.BackendMode)
	}
}

func buildRetrievalPipeline(ctx context.Context, appCfg *AppConfig) (*retrieverx.Pipeline, error) {
	store, err := buildVectorStore(ctx)
	if err != nil {
		return nil, err
	}

	retrCfg, err := configx.New[retrieverx.Config]("RETRIEVER")
	if err != nil {
		return nil, err
	}

	var opts []retrieverx.PipelineOption

	webProvider, err := buildWebProvider(appCfg)
	if err != nil {
		return nil, err
	}
	if webProvider != nil {
		opts = append(opts, retrieverx.WithWebProvider(webProvider))
	}

	openRouterCfg, err := configx.New[openrouterx.Config]("OPENROUTER")
	if err != nil {
		return nil, err
	}
	if openRouterCfg.Enabled() {
		synth, err := openrouterx.NewSynthesizer(*openRouterCfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, retrieverx.WithAnswerer(synth))
	}

	return retrieverx.NewPipeline(store, *retrCfg, opts...)
}

func buildVectorStore(ctx context.Context) (*retrieverx.QdrantStore, error) {
	qdrantCfg, err := configx.New[retrieverx.QdrantConfig]("QDRANT")
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: qdrantCfg.Host,
		Port: qdrantCfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	store := retrieverx.NewQdrantStore(client, qdrantCfg.Collection)
	if err := store.InitCollection(ctx, retrieverx.EmbeddingDim); err != nil {
		return nil, err
	}
	return store, nil
}

// buildWebProvider assembles the search chain: HTTP provider, then domain
// whitelist, then redis result cache. Each layer is optional by config; no
// URL means no web search at all.
func buildWebProvider(appCfg *AppConfig) (websearchx.Provider, error) {
	webCfg, err := configx.New[websearchx.Config]("WEBSEARCH")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(webCfg.URL) == "" {
		return nil, nil
	}

	var provider websearchx.Provider
	provider, err = websearchx.NewHTTPProvider(*webCfg)
	if err != nil {
		return nil, err
	}

	if webCfg.WhitelistPath != "" {
		domains, err := websearchx.LoadWhitelist(webCfg.WhitelistPath)
		if err != nil {
			return nil, err
		}
		provider = websearchx.NewWhitelistProvider(provider, domains)
	}

	if appCfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: appCfg.RedisAddr})
		provider = websearchx.NewCachingProvider(provider, websearchx.NewRedisCache(client), webCfg.CacheTTL)
	}

	return provider, nil
}

func buildChatLogStore(ctx context.Context, dsn string) (contractx.ChatLogStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil
	}
	db, err := chatlogx.NewDB(chatlogx.Config{DSN: dsn})
	if err != nil {
		return nil, err
	}
	store := chatlogx.NewStore(db)
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newIngestCommand() *cobra.Command {
	var rawDir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk and embed raw documents into the knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := buildVectorStore(ctx)
			if err != nil {
				return err
			}
			retrCfg, err := configx.New[retrieverx.Config]("RETRIEVER")
			if err != nil {
				return err
			}
			chunkCfg, err := configx.New[retrieverx.ChunkConfig]("CHUNK")
			if err != nil {
				return err
			}

			pipeline, err := retrieverx.NewPipeline(store, *retrCfg)
			if err != nil {
				return err
			}
			count, err := pipeline.Ingest(ctx, rawDir, *chunkCfg)
			if err != nil {
				return err
			}
			log.Info().Int("chunks", count).Str("dir", rawDir).Msg("ingest complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&rawDir, "dir", "data/raw", "directory of raw .txt/.md documents")

	return cmd
}
