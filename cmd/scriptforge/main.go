package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/ai"
	"github.com/forgelabs/scriptforge/internal/archive"
	"github.com/forgelabs/scriptforge/internal/config"
	"github.com/forgelabs/scriptforge/internal/embedcache"
	"github.com/forgelabs/scriptforge/internal/fetch"
	"github.com/forgelabs/scriptforge/internal/handler"
	"github.com/forgelabs/scriptforge/internal/ingest"
	"github.com/forgelabs/scriptforge/internal/job"
	"github.com/forgelabs/scriptforge/internal/market"
	"github.com/forgelabs/scriptforge/internal/middleware"
	"github.com/forgelabs/scriptforge/internal/research"
	"github.com/forgelabs/scriptforge/internal/retrieve"
	"github.com/forgelabs/scriptforge/internal/schedule"
	"github.com/forgelabs/scriptforge/internal/script"
	"github.com/forgelabs/scriptforge/internal/storage"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "scriptforge",
		Short: "research ingestion and script generation server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run scriptforge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("storage", cfg.Storage.Type),
		zap.String("embed_provider", cfg.AI.EmbedProvider),
	)

	store, err := storage.New(cfg.Storage.Type, cfg.Storage.Postgres)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedData)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel, cfg.AI.MaxInputChars)
	embedder = ai.WrapTimeoutToEmbedder(embedder, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
	embedder = ai.WrapRetryToEmbedder(embedder, ai.RetryConfig{MaxRetries: cfg.AI.MaxRetries})
	embedder = embedcache.WrapStoreCacheToEmbedder(embedder, store)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder,
		cfg.Retrieval.QueryCacheSize,
		time.Duration(cfg.Retrieval.QueryCacheTTL)*time.Second,
	)

	var generator ai.IGenerator
	if cfg.AI.Provider != "" {
		genProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
		if err != nil {
			return fmt.Errorf("init ai provider: %w", err)
		}
		generator = ai.NewGenerator(genProvider, cfg.AI.Model)
	}

	coordinator := ingest.NewCoordinator(store, embedder, ingest.Options{
		MaxLen:  cfg.Chunking.MaxLen,
		Overlap: cfg.Chunking.Overlap,
	})
	retriever := retrieve.NewService(store, embedder, retrieve.Options{
		DefaultTopK:     cfg.Retrieval.TopK,
		MaxContextChars: cfg.Retrieval.MaxContextChars,
	})

	fetcher := fetch.NewWikipediaFetcher(fetch.Options{
		BaseURL:   cfg.Fetcher.BaseURL,
		UserAgent: cfg.Fetcher.UserAgent,
		Delay:     time.Duration(cfg.Fetcher.DelayMillis) * time.Millisecond,
	})
	var arc archive.Archive
	if cfg.Archive.Type != "" {
		arc, err = archive.New(cfg.Archive.Type, cfg.Archive.Data)
		if err != nil {
			return fmt.Errorf("init archive: %w", err)
		}
	}
	researchService := research.NewService(fetcher, arc, coordinator, generator)
	scriptGenerator := script.NewGenerator(retriever, generator, script.Options{})
	marketService := market.NewService(market.NewYTDLPSearcher(market.Options{
		Binary:    cfg.Market.YTDLPPath,
		UserAgent: cfg.Market.UserAgent,
	}), generator)

	scheduler := schedule.New()
	if cfg.Jobs.RefreshSpec != "" && len(cfg.Jobs.RefreshTopics) > 0 {
		if err := scheduler.AddJob(job.NewRefreshJob(researchService, cfg.Jobs.RefreshTopics), cfg.Jobs.RefreshSpec); err != nil {
			return fmt.Errorf("schedule refresh job: %w", err)
		}
	}
	if cfg.Jobs.CacheCleanupSpec != "" {
		if err := scheduler.AddJob(job.NewCacheCleanupJob(store, cfg.Jobs.CacheMaxAgeDays), cfg.Jobs.CacheCleanupSpec); err != nil {
			return fmt.Errorf("schedule cache cleanup job: %w", err)
		}
	}

	deps := handler.RouterDeps{
		Ingest:   handler.NewIngestHandler(coordinator),
		Search:   handler.NewSearchHandler(retriever, cfg.Retrieval.TopK),
		Sources:  handler.NewSourceHandler(store),
		Research: handler.NewResearchHandler(researchService),
		Scripts:  handler.NewScriptHandler(scriptGenerator),
		Market:   handler.NewMarketHandler(marketService, cfg.Market.MaxVideos),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
