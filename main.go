package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"millionMetersAPI/handlers"
	"millionMetersAPI/internal/store"
	"millionMetersAPI/middleware"
	"millionMetersAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool             *pgxpool.Pool
	badgeStore         store.BadgeStore
	userStore          store.UserStore
	badgeService       *services.BadgeService
	workoutService     *services.WorkoutService
	userService        *services.UserService
	leaderboardService *services.LeaderboardService
	refreshWorker      *services.RefreshWorker
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch os.Getenv("STORAGE_BACKEND") {
	case "postgres":
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			log.Fatal("DATABASE_URL environment variable is not set")
		}

		poolConfig, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			log.Fatal("Failed to parse database URL:", err)
		}

		poolConfig.MaxConns = 25
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute
		poolConfig.HealthCheckPeriod = time.Minute

		dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			log.Fatal("Failed to create connection pool:", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Fatal("Failed to ping database:", err)
		}

		badgeStore = store.NewPostgresStore(dbPool)
		userStore = store.NewPostgresUserStore(dbPool)
		log.Println("Successfully connected to Postgres")

	default:
		client, err := store.NewFirestoreClient(ctx, "./serviceAccountKey.json")
		if err != nil {
			log.Fatal("Failed to initialize Firestore:", err)
		}

		badgeStore = store.NewFirestoreStore(client)
		userStore = store.NewFirestoreUserStore(client)
		log.Println("Successfully connected to Firestore")
	}

	badgeService = services.NewBadgeService(badgeStore, userStore)
	workoutService = services.NewWorkoutService(userStore, badgeService)
	userService = services.NewUserService(userStore)
	leaderboardService = services.NewLeaderboardService(userStore)
	refreshWorker = services.NewRefreshWorker(badgeService, 15*time.Minute)

	middleware.InitPrometheus()
	services.InitMetrics()
}

func main() {
	defer func() {
		if dbPool != nil {
			log.Println("Closing database connection pool...")
			dbPool.Close()
		}
	}()

	userHandler := handlers.NewUserHandler(userService)
	workoutHandler := handlers.NewWorkoutHandler(workoutService)
	badgeHandler := handlers.NewBadgeHandler(badgeService)
	teamHandler := handlers.NewTeamHandler(leaderboardService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "millionMeters-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/stats", userHandler.GetStats).Methods("GET")
	protected.HandleFunc("/user/badges", badgeHandler.GetBadges).Methods("GET")
	protected.HandleFunc("/user/badges/refresh", badgeHandler.RefreshBadges).Methods("POST")
	protected.HandleFunc("/workouts", workoutHandler.GetWorkouts).Methods("GET")
	protected.HandleFunc("/workouts", workoutHandler.SubmitWorkout).Methods("POST")
	protected.HandleFunc("/leaderboard", teamHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/team", teamHandler.GetTeamProgress).Methods("GET")

	// -------------------------------------------------------------------------
	// ADMIN ROUTES (REQUIRE SHARED SECRET)
	// -------------------------------------------------------------------------
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminSecretMiddleware)

	admin.HandleFunc("/badges/grant", badgeHandler.GrantBadge).Methods("POST")
	admin.HandleFunc("/badges/migrate", badgeHandler.Migrate).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Admin-Secret", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	refreshWorker.Start()

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	refreshWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
