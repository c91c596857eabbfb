package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/handler"
	"microloan-service/internal/middleware"
	"microloan-service/internal/models"
	"microloan-service/internal/repository"
	"microloan-service/internal/service"
	"microloan-service/pkg/scheduler"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	// Load configuration
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize repositories
	repos := repository.NewRepository(db)

	// Initialize services
	services := service.NewService(service.Dependencies{
		Repos:  repos,
		Logger: log,
		Config: cfg,
	})

	// Initialize handlers
	handlers := handler.NewHandler(handler.Dependencies{
		Services: services,
		Logger:   log,
		Config:   cfg,
	})

	// Initialize router
	router := mux.NewRouter()

	// Public routes
	router.HandleFunc("/register", handlers.User.Register).Methods(http.MethodPost)
	router.HandleFunc("/login", handlers.User.Login).Methods(http.MethodPost)

	// Protected routes with middleware
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	api.Use(middleware.LogMiddleware(log))

	// Profile endpoints
	api.HandleFunc("/profile", handlers.User.Profile).Methods(http.MethodGet)
	api.HandleFunc("/profile", handlers.User.UpdateProfile).Methods(http.MethodPut)

	// Loan endpoints
	api.HandleFunc("/loans", handlers.Loan.Create).Methods(http.MethodPost)
	api.HandleFunc("/loans", handlers.Loan.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", handlers.Loan.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", handlers.Trash.MoveToTrash).Methods(http.MethodDelete)
	api.HandleFunc("/loans/{id}/schedule", handlers.Loan.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/summary", handlers.Loan.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/disburse", handlers.Loan.Disburse).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/payments", handlers.Payment.GetByLoanID).Methods(http.MethodGet)

	// EMI endpoints
	api.HandleFunc("/emis/{id}/pay", handlers.EMI.MarkPaid).Methods(http.MethodPost)
	api.HandleFunc("/emis/{id}/payments", handlers.EMI.RecordPayment).Methods(http.MethodPost)

	// Payment endpoints
	api.HandleFunc("/payments", handlers.Payment.GetHistory).Methods(http.MethodGet)

	// Trash endpoints
	api.HandleFunc("/trash", handlers.Trash.List).Methods(http.MethodGet)
	api.HandleFunc("/trash/{id}/restore", handlers.Trash.Restore).Methods(http.MethodPost)
	api.HandleFunc("/trash/{id}", handlers.Trash.PermanentDelete).Methods(http.MethodDelete)

	// Statistics endpoints
	api.HandleFunc("/stats", handlers.Loan.GetStats).Methods(http.MethodGet)

	// Admin endpoints
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(string(models.RoleSuperAdmin)))
	admin.HandleFunc("/users/pending", handlers.Admin.GetPendingUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/approve", handlers.Admin.ApproveUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/deactivate", handlers.Admin.DeactivateUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/verify-kyc", handlers.Admin.VerifyKYC).Methods(http.MethodPost)
	admin.HandleFunc("/trash/purge", handlers.Admin.PurgeTrash).Methods(http.MethodPost)

	// Start the maintenance scheduler
	maintenance := scheduler.NewScheduler(services.Trash, services.EMI, log)
	if err := maintenance.Start(cfg.Retention.PurgeSchedule, cfg.Retention.SweepSchedule); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer maintenance.Stop()

	// Configure and start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Second * 15,
		WriteTimeout: time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}

	// Start the server in a goroutine
	go func() {
		log.Infof("Starting server on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Create a deadline context for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	// Shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Info("Server gracefully stopped")
}

func initDB(cfg *configs.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.DBName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
