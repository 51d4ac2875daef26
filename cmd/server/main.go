package main

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"triagemd/internal/config"
	"triagemd/internal/core"
	"triagemd/internal/db"
	"triagemd/internal/flowchart"
	httpserver "triagemd/internal/http"
	"triagemd/internal/llm"
	"triagemd/internal/retrieval"
	"triagemd/internal/session"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration", zap.Error(err))
	}

	dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		logger.Fatal("ping database", zap.Error(err))
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	repo := db.NewRepository(dbConn)
	notifier := db.NewNotifier(dbConn, cfg.DatabaseURL, cfg.NotifyChannel, logger)

	chat := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.ChatModel, cfg.Temperature)
	embedder := llm.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.EmbeddingModel)
	ranker := retrieval.NewRanker(dbConn, embedder, logger)

	// Index the flowchart catalog on first run or when forced.
	catalog := filepath.Join(cfg.FlowchartDir, cfg.CatalogFile)
	if n, err := ranker.Count(context.Background()); err != nil {
		logger.Fatal("catalog count", zap.Error(err))
	} else if n == 0 || cfg.Reindex {
		if err := ranker.Reindex(context.Background(), catalog); err != nil {
			logger.Fatal("catalog index", zap.Error(err))
		}
	}

	store := flowchart.NewStore(cfg.FlowchartDir)
	navigator := core.NewNavigator(chat, repo, cfg.DerailmentThreshold, logger)
	selector := core.NewSelector(ranker, store, chat, cfg.TopK, logger)
	apiSelector := core.NewSelector(ranker, store, chat, cfg.TopKAPI, logger)
	registry := session.NewRegistry(2 * time.Hour)

	srv := httpserver.NewServer(registry, navigator, selector, apiSelector, repo, notifier, cfg.MessageCap, logger)
	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, srv); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
