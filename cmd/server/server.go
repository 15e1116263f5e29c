package main

import (
	"fmt"
	"log"
	"net/http"

	"emailgame/config"
	"emailgame/db"
	"emailgame/handlers"
	"emailgame/services"
	"emailgame/services/grading"
	"emailgame/services/moderation"
	"emailgame/services/textgen"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	var attemptRepo db.AttemptRepository
	var sessionRepo db.SessionRepository

	if cfg.DatabaseURL != "" {
		pgAttempts, err := db.NewPostgresAttemptRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize attempt database: %v", err)
		}
		defer pgAttempts.Close()
		attemptRepo = pgAttempts

		pgSessions, err := db.NewPostgresSessionRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize session database: %v", err)
		}
		defer pgSessions.Close()
		sessionRepo = pgSessions
	} else {
		log.Printf("[INFO] DB_URL not set, using in-memory stores")
		attemptRepo = db.NewInMemoryAttemptRepository()
		sessionRepo = db.NewInMemorySessionRepository()
	}

	generator, err := textgen.NewService(cfg.OpenAIAPIKey, cfg.Model)
	if err != nil {
		log.Fatalf("Failed to initialize text generation service: %v", err)
	}

	scenarioService := services.NewScenarioService(cfg.PromptsDir)
	rubricProvider := grading.NewRubricProvider(generator, cfg.RubricsDir)
	evaluator := grading.NewEvaluator(generator)
	recipientService := services.NewRecipientService(generator, cfg.ReplySamples, cfg.AllowTestBypass)
	moderationService := moderation.NewService(cfg.AnthropicAPIKey)

	sessionService := services.NewSessionService(sessionRepo)
	leaderboardService := services.NewLeaderboardService(attemptRepo)

	gameService := services.NewGameService(
		scenarioService,
		rubricProvider,
		evaluator,
		recipientService,
		moderationService,
		sessionService,
		leaderboardService,
		cfg.MaxTurns,
	)

	scenarioHandler := handlers.NewScenarioHandler(scenarioService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	gameHandler := handlers.NewGameHandler(gameService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)

	router := mux.NewRouter()

	router.Use(corsMiddleware)
	router.Use(jsonMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	scenarioHandler.RegisterRoutes(router)
	sessionHandler.RegisterRoutes(router)
	gameHandler.RegisterRoutes(router)
	leaderboardHandler.RegisterRoutes(router)

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	addr := ":" + cfg.Port
	fmt.Printf("Server starting on port %s\n", cfg.Port)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
