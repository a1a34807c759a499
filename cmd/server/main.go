package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/socrabot/tutor-backend/internal/api"
	"github.com/socrabot/tutor-backend/internal/audit"
	"github.com/socrabot/tutor-backend/internal/canvas"
	"github.com/socrabot/tutor-backend/internal/config"
	"github.com/socrabot/tutor-backend/internal/core"
	"github.com/socrabot/tutor-backend/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flags for document ingestion
	ingestFile := flag.String("ingest", "", "Ingest documents from a markdown table file and exit")
	ingestCourse := flag.Int64("ingest-course", 0, "Course id to ingest documents under")
	flag.Parse()

	// Initialize database store
	dbStore, err := newStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// One long-lived HTTP client shared by all upstream calls for the life
	// of the process.
	httpClient := &http.Client{Timeout: config.AppConfig.UpstreamTimeout}

	llamaService := core.NewLlamaService(
		httpClient,
		config.AppConfig.EmbeddingURL,
		config.AppConfig.EmbeddingToken,
		config.AppConfig.CompletionURL,
		config.AppConfig.CompletionToken,
	)

	// Handle document ingestion if requested
	if *ingestFile != "" {
		if *ingestCourse == 0 {
			log.Fatal("-ingest requires -ingest-course")
		}
		log.Println("Starting document ingestion process...")
		embedder := func(ctx context.Context, text string) ([]float32, error) {
			return llamaService.GenerateEmbedding(ctx, text, false)
		}
		numIngested, err := store.IngestMarkdownTable(context.Background(), dbStore, *ingestCourse, *ingestFile, embedder)
		if err != nil {
			log.Fatalf("Document ingestion failed: %v", err)
		}
		log.Printf("Document ingestion complete. Ingested %d documents. Exiting.", numIngested)
		os.Exit(0)
	}

	var canvasClient *canvas.Client
	if config.AppConfig.CanvasURL != "" {
		canvasClient = canvas.NewClient(config.AppConfig.CanvasURL, config.AppConfig.CanvasAPIToken, httpClient)
	} else {
		log.Println("CANVAS_URL not set, assignment-text fallback disabled")
	}

	promptService := core.NewPromptService(llamaService)
	policyService := core.NewPolicyService(llamaService)
	tutorService := core.NewTutorService(dbStore, llamaService, promptService, policyService, canvasClient)

	auditLogger := audit.NewLogger(config.AppConfig.AuditDir)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(tutorService, auditLogger)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // policy reissues can chain several completions
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active requests time to finish before closing the shared client
	// session and stores.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

func newStore(databaseURL string) (store.Store, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return store.NewPostgresStore(databaseURL)
	}
	return store.NewSQLiteStore(databaseURL)
}
