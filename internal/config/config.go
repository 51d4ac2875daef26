package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config collects every tunable the service reads at startup. Values come
// from the environment; a .env file in the working directory is loaded first
// if present.
type Config struct {
	// Port the HTTP server listens on.
	Port string
	// DatabaseURL is the Postgres DSN used for the transcript log and the
	// flowchart description embeddings.
	DatabaseURL string
	// FlowchartDir holds the flowchart YAML files and the description
	// catalog.
	FlowchartDir string
	// CatalogFile is the description catalog inside FlowchartDir.
	CatalogFile string

	// OpenAIKey, ChatModel and EmbeddingModel configure the LLM collaborator.
	OpenAIKey      string
	ChatModel      string
	EmbeddingModel string
	Temperature    float32

	// DerailmentThreshold is how many consecutive off-topic or uncertain
	// replies at one node are tolerated before escalation.
	DerailmentThreshold int
	// TopK is how many ranked candidates the interactive selector considers.
	TopK int
	// TopKAPI is the larger candidate set used by the retrieval endpoint,
	// which must also offer alternates.
	TopKAPI int
	// MessageCap bounds patient messages per session.
	MessageCap int
	// Reindex forces re-embedding of the description catalog at startup.
	Reindex bool
	// NotifyChannel is the Postgres channel escalations are announced on.
	NotifyChannel string
}

// Load reads configuration from the environment. Only DATABASE_URL is
// mandatory; everything else has a default matching the reference deployment.
func Load() (*Config, error) {
	// Missing .env is fine, env vars may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                envOr("PORT", "8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		FlowchartDir:        envOr("FLOWCHART_DIR", "./flowcharts"),
		CatalogFile:         envOr("FLOWCHART_CATALOG", "descriptions.txt"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		ChatModel:           envOr("OPENAI_MODEL_CHAT", "gpt-4o-mini"),
		EmbeddingModel:      envOr("OPENAI_MODEL_EMBEDDING", "text-embedding-3-small"),
		Temperature:         0,
		DerailmentThreshold: envOrInt("DERAILMENT_THRESHOLD", 3),
		TopK:                envOrInt("RETRIEVAL_TOP_K", 5),
		TopKAPI:             envOrInt("RETRIEVAL_TOP_K_API", 10),
		MessageCap:          envOrInt("MESSAGE_CAP", 50),
		Reindex:             os.Getenv("REINDEX") == "1",
		NotifyChannel:       envOr("POSTGRES_NOTIFY_CHANNEL", "triage_escalations"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
