package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/avery-dunn/entomosysbackend/config"
	"github.com/avery-dunn/entomosysbackend/database"
	"github.com/avery-dunn/entomosysbackend/handlers"
	"github.com/avery-dunn/entomosysbackend/realtime"
	"github.com/avery-dunn/entomosysbackend/repository"
	"github.com/avery-dunn/entomosysbackend/services"
	"github.com/avery-dunn/entomosysbackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	detectionRepo := repository.NewDetectionRepository(db)
	resultRepo := repository.NewAnalysisResultRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	hub := realtime.NewHub()
	go hub.Run()

	pmiService := services.NewPMIService(cfg.PMIBaseTempC)
	pmiWorker := workers.NewPMIWorker(caseRepo, detectionRepo, resultRepo, pmiService, hub, cfg.PMIQueueSize, cfg.NumPMIWorkers)
	pmiWorker.EnqueuePending()

	reconciler := services.NewReconcilerService(db, caseRepo, uploadRepo, detectionRepo, hub, pmiWorker)
	analytics := services.NewAnalyticsService(analyticsRepo)

	jwtSecret := []byte(cfg.JWTSecret)
	authHandler := handlers.NewAuthHandler(userRepo, jwtSecret)
	caseHandler := &handlers.CaseHandler{CaseRepo: caseRepo, UploadRepo: uploadRepo, ResultRepo: resultRepo}
	uploadHandler := &handlers.UploadHandler{CaseRepo: caseRepo, UploadRepo: uploadRepo, DetectionRepo: detectionRepo}
	detectionHandler := &handlers.DetectionHandler{Reconciler: reconciler}
	analyticsHandler := &handlers.AnalyticsHandler{Analytics: analytics}

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// everything below requires an authenticated caller
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return handlers.AuthMiddleware(jwtSecret, userRepo, next)
			})

			r.Route("/cases", func(r chi.Router) {
				r.Post("/", caseHandler.CreateCase)
				r.Get("/", caseHandler.ListCases)
				r.Route("/{case_id}", func(r chi.Router) {
					r.Get("/", caseHandler.GetCase)
					r.Put("/", caseHandler.UpdateCase)
					r.Delete("/", caseHandler.DeleteCase)
					r.Post("/activate", caseHandler.ActivateCase)
					r.Post("/close", caseHandler.CloseCase)
					r.Get("/uploads", uploadHandler.ListUploads)
					r.Post("/uploads", uploadHandler.CreateUpload)
				})
			})

			r.Route("/uploads/{upload_id}", func(r chi.Router) {
				r.Get("/", uploadHandler.GetUpload)
				r.Put("/detections", detectionHandler.ReconcileDetections)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/confidence", analyticsHandler.ConfidenceDistribution)
				r.Get("/stages", analyticsHandler.StageDistribution)
				r.Get("/dashboard", analyticsHandler.DashboardMetrics)
			})
		})
	})

	r.Get("/ws", hub.ServeWS)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
