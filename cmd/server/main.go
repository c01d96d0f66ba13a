package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"listai/internal/config"
	"listai/internal/database"
	"listai/internal/handlers"
	"listai/internal/jobs"
	"listai/internal/llm"
	"listai/internal/logging"
	"listai/internal/middleware"
	"listai/internal/preflight"
	"listai/internal/services"
	"listai/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

const planQueueCapacity = 1000

func main() {
	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting ListAI Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Env: %s, TZ: %s)", cfg.Port, cfg.Environment, cfg.Timezone)

	services.InitMetrics()

	// MongoDB is required
	mongoDB, err := database.NewMongoDB(cfg.MongoURI, database.PoolOptions{
		MaxPoolSize: uint64(cfg.MongoMaxPool),
		MinPoolSize: database.DefaultPoolOptions.MinPoolSize,
		MaxIdle:     database.DefaultPoolOptions.MaxIdle,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoDB.Initialize(initCtx); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB: %v", err)
	}
	cancelInit()
	stores := services.NewMongoStores(mongoDB)

	if results := preflight.NewChecker(mongoDB, cfg).RunAll(context.Background()); preflight.HasFailures(results) {
		log.Fatal("❌ Pre-flight checks failed, refusing to start")
	}

	// Redis is optional: without it plan jobs live in process memory
	var redisService *services.RedisService
	var queue services.JobQueue
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, using in-memory plan queue: %v", err)
			redisService = nil
		}
	}
	if redisService != nil {
		queue = services.NewRedisJobQueue(redisService, cfg.PlanJobTTL)
		log.Println("✅ Plan generation queue backed by Redis")
	} else {
		queue = services.NewMemoryJobQueue(cfg.PlanJobTTL, planQueueCapacity)
		log.Println("⚠️  Plan generation queue is in-memory; jobs are lost on restart")
	}

	// Text generation
	llmSettings := config.NewLLMSettings(cfg.LLM)
	if cfg.PlannerConfigFile != "" {
		applyPlannerConfig(cfg.PlannerConfigFile, llmSettings)
		go watchPlannerConfig(cfg.PlannerConfigFile, llmSettings)
	}
	generator := services.NewPlanGenerationService(llm.NewClient(llmSettings, nil), llmSettings)

	// Auth; preflight already refused an empty secret in production
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}
	jwtAuth, err := auth.NewLocalJWTAuth(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpiresIn, cfg.JWTRefreshIn)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
	}
	if cfg.DevAuthBypass && cfg.IsProduction() {
		log.Fatal("❌ DEV_AUTH_BYPASS cannot be enabled in production")
	}

	// Services
	loc := cfg.Location()
	tierService := services.NewTierService(stores.Users)
	planJobService := services.NewPlanJobService(stores, queue, generator, loc)
	goalPlanService := services.NewGoalPlanService(stores, generator, loc)
	messageService := services.NewMessageService(stores, tierService, generator)
	goalService := services.NewGoalService(stores, tierService, planJobService)
	taskService := services.NewTaskService(stores, tierService)
	planService := services.NewPlanService(stores)
	userService := services.NewUserService(stores.Users, jwtAuth)
	connManager := services.NewConnectionManager()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	planJobService.Start(workerCtx, cfg.PlanWorkerCount)

	// Scheduled maintenance, coordinated through Redis when present
	var locker jobs.Locker
	if redisService != nil {
		locker = redisService
	}
	scheduler, err := jobs.NewScheduler(loc, locker)
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	if err := scheduler.Register(jobs.NewStalePlanJobCleanup(planJobService, cfg.PlanJobStaleAfter), cfg.PlanJobCleanupCron); err != nil {
		log.Fatalf("❌ Failed to register stale job cleanup: %v", err)
	}
	scheduler.Start()

	app := fiber.New(fiber.Config{
		AppName:      "ListAI v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 300 * time.Second, // streaming chat replies
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("listai")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := cfg.AllowedOrigins
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	rateLimitConfig := middleware.NewRateLimitConfig(cfg)
	log.Printf("🛡️  [RATE-LIMIT] Global=%d, LLM=%d, WS=%d per %v",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.LLMMax, rateLimitConfig.WebSocketMax, rateLimitConfig.Expiration)

	var healthDB, healthRedis handlers.Pinger = mongoDB, nil
	if redisService != nil {
		healthRedis = redisService
	}
	healthHandler := handlers.NewHealthHandler(healthDB, healthRedis, connManager)
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api/v1", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	api.Get("/health", healthHandler.Handle)

	routes := &handlers.Routes{
		GoalPlan:     handlers.NewGoalPlanHandler(goalPlanService),
		Chat:         handlers.NewChatHandler(messageService),
		ChatWS:       handlers.NewChatWebSocketHandler(messageService, connManager),
		Plans:        handlers.NewPlanHandler(planService, planJobService),
		Goals:        handlers.NewGoalHandler(goalService),
		Tasks:        handlers.NewTaskHandler(taskService),
		Auth:         handlers.NewLocalAuthHandler(userService),
		Users:        handlers.NewUserHandler(userService),
		Integrations: handlers.NewIntegrationsHandler(),
		RequireAuth:  middleware.LocalAuthMiddleware(jwtAuth, cfg.DevAuthBypass),
		OptionalAuth: middleware.OptionalLocalAuthMiddleware(jwtAuth),
		LLMLimit:     middleware.LLMRateLimiter(rateLimitConfig),
		WSLimit:      middleware.WebSocketRateLimiter(rateLimitConfig),
		WSOrigins:    strings.Split(allowedOrigins, ","),
	}
	routes.Register(api)

	log.Printf("✅ Server ready on :%s", cfg.Port)
	log.Printf("💬 Chat WebSocket: ws://localhost:%s/api/v1/goals/:goalId/chat/ws", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	shutdownDone := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		steps := []shutdownStep{
			{"scheduler", scheduler.Stop},
			// Workers stop dequeuing and finish the job in hand
			{"plan workers", func() error {
				stopWorkers()
				planJobService.Wait()
				return nil
			}},
			{"http server", app.Shutdown},
			{"mongodb", func() error { return mongoDB.Close(closeCtx) }},
		}
		if redisService != nil {
			steps = append(steps, shutdownStep{"redis", redisService.Close})
		}
		runShutdown(steps)
		close(shutdownDone)
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
	<-shutdownDone
	log.Println("👋 Server stopped")
}

// shutdownStep is one resource released on SIGINT/SIGTERM
type shutdownStep struct {
	name string
	stop func() error
}

// runShutdown releases resources in order. A failing step is logged and the
// remaining steps still run.
func runShutdown(steps []shutdownStep) {
	for _, step := range steps {
		if err := step.stop(); err != nil {
			log.Printf("⚠️ Error stopping %s: %v", step.name, err)
		}
	}
}

// applyPlannerConfig loads model overrides from the planner config file
func applyPlannerConfig(filePath string, settings *config.LLMSettings) {
	overrides, err := config.LoadLLMOverrides(filePath)
	if err != nil {
		log.Printf("❌ Failed to load planner config %s: %v", filePath, err)
		return
	}
	settings.Apply(overrides)
	current := settings.Get()
	log.Printf("✅ Planner config applied (model: %s, attempts: %d)", current.Model, current.MaxPlanAttempts)
}

// watchPlannerConfig re-applies the planner config file whenever it changes
func watchPlannerConfig(filePath string, settings *config.LLMSettings) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		return
	}

	// Watch the directory containing the file (more reliable than watching the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)
	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", filePath)

	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDuration, func() {
				log.Printf("🔄 Detected changes in %s, reloading planner config...", filePath)
				applyPlannerConfig(filePath, settings)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
