package main

import (
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"backend-roomreq/internal/api"
	"backend-roomreq/internal/chat"
	"backend-roomreq/internal/compost"
	"backend-roomreq/internal/config"
	"backend-roomreq/internal/models"
	"backend-roomreq/internal/openrouter"
	"backend-roomreq/internal/storage"
	"backend-roomreq/internal/taskmaster"
	"backend-roomreq/internal/ws"
)

// conversationTTL is how long an idle conversation survives before the
// sweeper drops it.
const (
	conversationTTL = 24 * time.Hour
	sweepInterval   = time.Hour
)

func main() {
	// A missing .env is fine in deployed environments; the real
	// configuration comes from the process environment.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	modelTable := openrouter.DefaultModels()
	if cfg.ModelsFile != "" {
		modelTable, err = openrouter.LoadModelTable(cfg.ModelsFile)
		if err != nil {
			sugar.Fatalw("error loading model table", "path", cfg.ModelsFile, "error", err)
		}
	}

	gateway, err := openrouter.NewClient(cfg.OpenRouterAPIKey, openrouter.Options{
		Referer: cfg.Referer,
		Models:  modelTable,
		Logger:  sugar,
	})
	if err != nil {
		sugar.Fatalw("error creating OpenRouter client", "error", err)
	}

	conversations := storage.NewMemoryConversations()
	compostSessions := storage.NewMemoryCompostSessions()

	hub := ws.NewHub()
	relay := chat.NewRelay(gateway, sugar)
	chatHandler := ws.NewHandler(hub, conversations, relay, sugar)

	compostService := compost.NewService(compostSessions, compost.NewProcessor(sugar), gateway, sugar)
	tasks := taskmaster.NewStore(cfg.TaskDataPath, sugar)

	go sweepConversations(conversations, sugar)

	mux := api.NewRouter(api.Deps{
		Gateway:       gateway,
		Conversations: conversations,
		Compost:       compostService,
		Tasks:         tasks,
		Hub:           hub,
		Chat:          chatHandler,
		UploadDir:     cfg.UploadDir,
		Log:           sugar,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	})
	handler := c.Handler(mux)

	sugar.Infow("Room of Requirements backend listening",
		"port", cfg.Port,
		"corsOrigin", cfg.CORSOrigin,
		"generalModel", gateway.ModelFor(models.UseCaseGeneral).Name)
	sugar.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}

// sweepConversations drops conversations idle for longer than the TTL.
func sweepConversations(store storage.ConversationStore, log *zap.SugaredLogger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		if n := store.CleanupOlderThan(conversationTTL); n > 0 {
			log.Infow("cleaned up idle conversations", "removed", n)
		}
	}
}
