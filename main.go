package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "shiptrack/internal/config"
	intdb "shiptrack/internal/db"
	router "shiptrack/internal/http"
	"shiptrack/internal/http/handlers"
	"shiptrack/internal/integrations/shipsgo"
	"shiptrack/internal/repositories"
	"shiptrack/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db, err := intconfig.ConnectDB(env)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer intconfig.CloseDB()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := intdb.EnsureSchema(schemaCtx, db); err != nil {
		cancelSchema()
		log.Fatalf("schema setup failed: %v", err)
	}
	cancelSchema()

	shipmentRepo := repositories.ShipmentRepository{DB: db}
	paymentRepo := repositories.PaymentRepository{DB: db}
	clientRepo := repositories.ClientRepository{DB: db}
	userRepo := repositories.UserRepository{DB: db}

	var provider services.TrackingProvider
	if env.ShipsGoConfigured() {
		provider = shipsgo.NewClient(env.ShipsGoBaseURL, env.ShipsGoAPIKey, nil)
	} else {
		log.Println("ShipsGo not configured, tracking serves mock data")
	}
	tracking := services.NewTrackingService(provider, env.ShipsGoTimeout, env.ShipsGoMockMode)

	auth := services.AuthService{Users: userRepo, Clients: clientRepo, Secret: []byte(env.JWTSecret), TTL: env.JWTTTL}
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if admin, created, err := auth.SeedAdmin(seedCtx, env.AdminName, env.AdminEmail, env.AdminPassword); err != nil {
		cancelSeed()
		log.Fatalf("admin seed failed: %v", err)
	} else if created {
		log.Printf("seeded admin account %s", admin.Email)
	}
	cancelSeed()

	hs := &handlers.Handlers{
		Shipments: services.ShipmentService{Shipments: shipmentRepo, Clients: clientRepo, PaymentMode: env.PaymentStatusMode},
		Payments:  services.PaymentService{Payments: paymentRepo, Shipments: shipmentRepo},
		Tracking:  tracking,
		Auth:      auth,
		Clients:   services.ClientService{Clients: clientRepo},
		Docs:      services.DocsService{Shipments: shipmentRepo, Clients: clientRepo, Payments: paymentRepo},
	}

	r := router.NewRouter(env, hs)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	log.Println("Server stopped cleanly.")
}
