package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/voxaccess/voxaccess-api/internal/config"
	"github.com/voxaccess/voxaccess-api/internal/database"
	"github.com/voxaccess/voxaccess-api/internal/handlers"
	"github.com/voxaccess/voxaccess-api/internal/services"
	"github.com/voxaccess/voxaccess-api/internal/storage"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Open the document registry
	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open document registry: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize object storage
	store, err := newObjectStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Extraction and synthesis adapters. All of them are process-wide and
	// lazily initialized; a missing engine degrades results, never startup.
	ocrService := services.NewOCRService(cfg.OCRLanguage)
	captionService := services.NewCaptionService(cfg.CaptionURL, cfg.CaptionTimeout)
	speechService := services.NewSpeechService(cfg.TTSLanguage, cfg.TTSTimeout)
	pdfService := services.NewPDFService()

	if cfg.CaptionURL == "" {
		log.Println("CAPTION_API_URL not set, image descriptions disabled")
	}
	log.Printf("Speech synthesis voice: %s", speechService.Voice())

	pipeline := services.NewPipeline(
		db, store, ocrService, captionService, speechService, pdfService,
		cfg.InferenceSlots,
	)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    int(cfg.MaxUploadBytes) + 1024*1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Create handler with dependencies
	h := handlers.New(db, cfg, store, pipeline)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Service banner
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "VoxAccess API está funcionando!"})
	})

	// API routes
	api := app.Group("/api")
	api.Post("/upload", h.UploadDocument)
	api.Post("/process", h.ProcessDocument)
	api.Get("/audio/:id", h.GetAudio)
	api.Post("/export", h.ExportDocument)
	api.Get("/files", h.ListDocuments)
	api.Get("/files/:id", h.GetDocument)
	api.Delete("/files/:id", h.DeleteDocument)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// newObjectStore picks the storage backend from config. The filesystem
// backend is the default; S3 requires credentials.
func newObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.StorageBackend != "s3" {
		return storage.NewFSStore(cfg.DataDir)
	}

	s3, err := storage.NewS3Store(
		cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL,
	)
	if err != nil {
		return nil, err
	}

	if err := s3.EnsureBucket(context.Background()); err != nil {
		log.Printf("Warning: failed to ensure S3 bucket exists: %v", err)
	}

	return s3, nil
}
