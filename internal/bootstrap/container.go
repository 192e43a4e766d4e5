package bootstrap

import (
	"log"

	"pdf-assistant-be/internal/config"
	"pdf-assistant-be/internal/handler"
	"pdf-assistant-be/internal/pkg/logger"
	"pdf-assistant-be/internal/repository/implementation"
	"pdf-assistant-be/internal/service"
	"pdf-assistant-be/pkg/chatbot"
	"pdf-assistant-be/pkg/embedding"
	"pdf-assistant-be/pkg/parser"
	"pdf-assistant-be/pkg/rag/history"
	"pdf-assistant-be/pkg/rag/retrieve"
	"pdf-assistant-be/pkg/rag/rewrite"
	"pdf-assistant-be/pkg/store"
	"pdf-assistant-be/pkg/vectorindex"
	"pdf-assistant-be/pkg/whatsapp"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	WebhookHandler *handler.WebhookHandler
	Logger         logger.ILogger
}

// NewContainer wires every collaborator explicitly; nothing is process-global,
// so tests can assemble the same graph from doubles.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Session store: Redis when reachable, in-memory otherwise.
	var kv store.KVStore
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("Invalid REDIS_URL %q, falling back to in-memory session store", cfg.App.RedisURL)
		kv = store.NewMemoryStore()
	} else {
		kv = store.NewRedisStore(redis.NewClient(opt))
	}

	// Collaborator clients
	llmProvider := chatbot.NewGeminiProvider(cfg.Keys.GoogleGemini)
	embeddingProvider := embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	docParser := parser.NewLlamaParseClient(cfg.Keys.LlamaCloud)
	waClient := whatsapp.NewClient(cfg.WhatsApp.PhoneID, cfg.WhatsApp.AccessToken)

	// Retrieval pipeline
	passageRepo := implementation.NewPassageRepository(db)
	index := vectorindex.NewPgVectorIndex(passageRepo, embeddingProvider)
	retriever := retrieve.NewRetriever(rewrite.NewRewriter(llmProvider), index)
	memory := history.NewMemory(kv)

	assistant := service.NewAssistantService(
		docParser,
		index,
		retriever,
		memory,
		llmProvider,
		waClient,
		waClient,
		appLogger,
		cfg.App.UploadsDir,
	)

	return &Container{
		WebhookHandler: handler.NewWebhookHandler(
			assistant,
			appLogger,
			cfg.WhatsApp.VerifyToken,
			cfg.WhatsApp.AppSecret,
		),
		Logger: appLogger,
	}
}
