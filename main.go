package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AhaanV05/Reverse-Turing/handlers"
	"github.com/AhaanV05/Reverse-Turing/services"
	"github.com/AhaanV05/Reverse-Turing/store"
	"github.com/AhaanV05/Reverse-Turing/utils"
	"github.com/AhaanV05/Reverse-Turing/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New()

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	st := store.New(db)
	if err := st.AutoMigrate(); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	provider, err := services.NewOpenRouterClient()
	if err != nil {
		log.Fatal("failed to configure completion provider:", err)
	}

	guessService := services.NewGuessService(st)
	roomService := services.NewRoomService(st, guessService)
	matchmakingService := services.NewMatchmakingService(st, time.Now().UnixNano())
	adminService := services.NewAdminService(st, jwtSecret)

	if adminUser := os.Getenv("ADMIN_USERNAME"); adminUser != "" {
		adminPass := os.Getenv("ADMIN_PASSWORD")
		if adminPass == "" {
			log.Fatal("ADMIN_USERNAME set but ADMIN_PASSWORD is empty")
		}
		if err := adminService.EnsureAdmin(context.Background(), adminUser, adminPass); err != nil {
			log.Fatal("failed to provision admin account:", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := workers.NewAIDispatchWorker(st, provider)
	go dispatcher.Start(ctx)

	archiver := workers.NewTranscriptArchiveWorker(st)
	go archiver.Start(ctx)

	services.StartMaintenanceScheduler(roomService, guessService)

	handlers.SetupAuthRoutes(app, &handlers.AuthHandler{Admin: adminService})
	handlers.SetupMatchRoutes(app, &handlers.MatchHandler{Matchmaking: matchmakingService}, jwtSecret)
	handlers.SetupChatRoutes(app, &handlers.ChatHandler{Rooms: roomService, Guesses: guessService}, jwtSecret)
	handlers.SetupAdminRoutes(app, &handlers.AdminHandler{Admin: adminService}, jwtSecret)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", port)
	log.Printf("CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
