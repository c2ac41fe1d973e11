package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opentracing/opentracing-go"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/config"
	"github.com/customeros/mailvector/internal/cron"
	"github.com/customeros/mailvector/internal/database"
	"github.com/customeros/mailvector/internal/logger"
	"github.com/customeros/mailvector/internal/repository"
	"github.com/customeros/mailvector/internal/tracing"
	"github.com/customeros/mailvector/services/attachments"
	"github.com/customeros/mailvector/services/email_filter"
	"github.com/customeros/mailvector/services/embedding"
	"github.com/customeros/mailvector/services/embedding_cache"
	"github.com/customeros/mailvector/services/events"
	"github.com/customeros/mailvector/services/extractors"
	"github.com/customeros/mailvector/services/textproc"
	"github.com/customeros/mailvector/services/vectorizer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}
	if cfg == nil {
		log.Fatalf("config is empty")
	}

	db, err := database.InitVectorDatabase(cfg.VectorDatabaseConfig)
	if err != nil {
		log.Fatalf("Vector database initialization failed: %v", err)
	}

	switch os.Args[1] {
	case "migrate":

		err := repository.MigrateDB(cfg.VectorDatabaseConfig, db)
		if err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		log.Println("Database migration completed successfully")

	case "worker":

		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("MailVector worker starting up...")

		appLogger := logger.NewAppLogger(cfg.Logger)
		appLogger.InitLogger()

		tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
		if err != nil {
			appLogger.Fatalf("Could not initialize jaeger tracer: %v", err)
		}
		defer closer.Close()
		opentracing.SetGlobalTracer(tracer)

		repositories := repository.InitRepositories(db)

		cache := buildCache(cfg, appLogger)
		client := embedding.NewEmbeddingClient(cfg.EmbeddingAPIConfig, appLogger)
		textProcessor := textproc.NewTextProcessorService(textproc.Config{
			MaxChunkSize: cfg.PipelineConfig.ChunkMaxSize,
			Overlap:      cfg.PipelineConfig.ChunkOverlap,
			MinChunkSize: cfg.PipelineConfig.ChunkMinSize,
			MaxTokens:    cfg.EmbeddingAPIConfig.MaxInputTokens,
		})

		attachmentService := attachments.NewAttachmentService(
			appLogger,
			attachments.Config{
				MaxSizeBytes: int64(cfg.PipelineConfig.AttachmentMaxSizeBytes),
				Concurrency:  cfg.PipelineConfig.AttachmentConcurrency,
			},
			extractors.NewPDFExtractor(),
			extractors.NewDocumentExtractor(),
			extractors.NewHTMLExtractor(),
		)
		filterService := email_filter.NewEmailFilterService(appLogger, email_filter.Config{
			CacheMaxEntries: cfg.PipelineConfig.FilterCacheMaxEntries,
			CacheTTL:        time.Duration(cfg.PipelineConfig.FilterCacheTTLMinutes) * time.Minute,
		})

		var publisher interfaces.EventPublisher
		if cfg.AppConfig.RabbitMQURL != "" {
			publisher, err = events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, appLogger, nil)
			if err != nil {
				appLogger.Warnf("Event publisher unavailable, continuing without events: %v", err)
				publisher = nil
			} else {
				defer publisher.Close()
			}
		}

		vectorizationService := vectorizer.NewVectorizationService(
			appLogger,
			vectorizer.Config{
				BatchSize:       cfg.PipelineConfig.VectorizationBatchSize,
				InterBatchDelay: time.Duration(cfg.PipelineConfig.InterBatchDelayMs) * time.Millisecond,
			},
			vectorizer.Dependencies{
				Repo:        repositories.EmailVectorRepository,
				RuleRepo:    repositories.FilterRuleRepository,
				Filter:      filterService,
				Attachments: attachmentService,
				Cache:       cache,
				Client:      client,
				TextProc:    textProcessor,
				Events:      publisher,
			},
		)

		cronManager := cron.NewCronManager(cfg, appLogger, k8sClient(appLogger), vectorizationService, cache)
		if err := cronManager.Start(cfg.AppConfig.PodName, cfg.AppConfig.Namespace); err != nil {
			appLogger.Fatalf("Could not start cron manager: %v", err)
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		appLogger.Info("Shutting down worker...")
		cronManager.Stop()
		log.Println("Shutdown complete")

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: mailvector <command>")
	fmt.Println("Commands:")
	fmt.Println("  migrate   Run database migrations")
	fmt.Println("  worker    Start the vectorization worker")
}

func buildCache(cfg *config.Config, appLogger logger.Logger) interfaces.EmbeddingCache {
	cacheConfig := embedding_cache.Config{
		MaxEntries: cfg.EmbeddingCacheConfig.MaxEntries,
		TTL:        time.Duration(cfg.EmbeddingCacheConfig.TTLHours) * time.Hour,
	}

	if cfg.EmbeddingCacheConfig.RedisURL != "" {
		cache, err := embedding_cache.NewRedisCache(cfg.EmbeddingCacheConfig.RedisURL, cacheConfig, appLogger)
		if err == nil {
			appLogger.Info("Using redis embedding cache")
			return cache
		}
		appLogger.Warnf("Redis cache unavailable, falling back to in-memory: %v", err)
	}
	return embedding_cache.NewMemoryCache(cacheConfig)
}

// k8sClient returns an in-cluster client, or nil outside a cluster so the
// cron manager runs in local mode.
func k8sClient(appLogger logger.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		appLogger.Info("Not running in kubernetes, cron leader election disabled")
		return nil
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		appLogger.Warnf("Could not create kubernetes client: %v", err)
		return nil
	}
	return clientset
}
