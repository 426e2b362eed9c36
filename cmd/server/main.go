package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proctorhub/internal/api"
	"proctorhub/internal/api/handler"
	"proctorhub/internal/app/analyzer"
	"proctorhub/internal/app/service"
	"proctorhub/internal/app/worker"
	"proctorhub/internal/common/security"
	"proctorhub/internal/domain/repository"
	"proctorhub/internal/platform/blob"
	"proctorhub/internal/platform/classifier"
	"proctorhub/internal/platform/config"
	"proctorhub/internal/platform/database"
	"proctorhub/internal/platform/embedding"
	"proctorhub/internal/platform/queue"
	"proctorhub/internal/vector"
)

func main() {
	cfg := config.Load()
	jwt := security.NewJWT(cfg.JWTKey, cfg.JWTExp)

	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("FATAL: failed to run migrations: %v", err)
	}

	rdb, err := queue.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to redis: %v", err)
	}
	defer queue.Close(rdb)

	blobs, err := blob.NewStore(cfg.BlobDir)
	if err != nil {
		log.Fatalf("FATAL: failed to open blob store: %v", err)
	}

	// A broken index disables plagiarism checks but not the rest of the API.
	index := vector.New(cfg.IndexDir)
	if err := index.Load(); err != nil {
		log.Printf("ERROR: similarity index unavailable, plagiarism analysis disabled: %v", err)
	} else {
		log.Printf("Similarity index loaded with %d entries.", index.Count())
	}

	loader := embedding.NewLoader(cfg.IndexDir)
	completer := classifier.NewClient(cfg.ClassifierBaseURL, cfg.ClassifierAPIKey, cfg.ClassifierModel,
		time.Duration(cfg.ClassifierTimeoutSeconds)*time.Second)

	userRepo := repository.NewPgUserRepository(db)
	subRepo := repository.NewPgSubmissionRepository(db)
	reportRepo := repository.NewPgReportRepository(db)
	reviewRepo := repository.NewPgReviewRepository(db)

	registry := analyzer.NewRegistry(time.Duration(cfg.AnalyzerTimeoutSeconds) * time.Second)
	registry.Register(analyzer.NewCodeQualityAnalyzer())
	registry.Register(analyzer.NewPlagiarismAnalyzer(loader, index, cfg.SimilarityNeighbors))
	registry.Register(analyzer.NewAIDetectionAnalyzer(completer, cfg.ClassifierModel))

	cleanupQueue := queue.NewRedisTombstoneQueue(rdb, cfg.CleanupQueueName)

	authService := service.NewAuthService(userRepo, jwt)
	submissionService := service.NewSubmissionService(subRepo, blobs, cleanupQueue)
	analysisService := service.NewAnalysisService(subRepo, reportRepo, blobs, registry)
	reviewService := service.NewReviewService(reviewRepo, subRepo, userRepo)
	dashboardService := service.NewDashboardService(userRepo, subRepo, reportRepo)
	textToolsService := service.NewTextToolsService(completer, cfg.ClassifierModel)

	router := api.NewRouter(jwt, api.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Submission: handler.NewSubmissionHandler(submissionService, cfg.MaxUploadBytes),
		Analysis:   handler.NewAnalysisHandler(analysisService),
		Review:     handler.NewReviewHandler(reviewService),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		TextTools:  handler.NewTextToolsHandler(textToolsService),
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	cleanupWorker := worker.NewCleanupWorker(rdb, blobs, index,
		cfg.CleanupQueueName, cfg.CleanupLockKey,
		time.Duration(cfg.CleanupLockTTLSeconds)*time.Second)
	go cleanupWorker.Start(workerCtx)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown: %v", err)
	}
	log.Println("Server exited.")
}
