package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prrgen/internal/artifact"
	"prrgen/internal/gateway/config"
	"prrgen/internal/gateway/handler"
	"prrgen/internal/gateway/server"
	"prrgen/internal/llm"
	"prrgen/internal/pipeline"
	"prrgen/internal/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx := context.Background()
	store, closeStore, err := newStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	llmCli, err := newLLM(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer llmCli.Close()

	orch := runner.New(
		&pipeline.Extractor{LLM: llmCli, Store: store, Log: logger},
		&pipeline.Planner{LLM: llmCli, Log: logger},
		&pipeline.Synthesizer{LLM: llmCli, Log: logger},
		logger,
	)

	h := handler.New(store, orch, logger)
	srv := server.New(cfg.Port, server.NewMux(h))

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func newStore(cfg *config.Config) (artifact.Store, func(), error) {
	switch cfg.Artifact.Backend {
	case config.BackendS3:
		s, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.BackendPostgres:
		s, err := artifact.NewPostgresStore(cfg.Artifact.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return artifact.NewMemoryStore(), func() {}, nil
	}
}

func newLLM(ctx context.Context, cfg *config.Config, logger *log.Logger) (llm.LLMClient, error) {
	var base llm.LLMClient
	if cfg.FakeLLM {
		logger.Println("using fake inference client")
		base = llm.NewFakeClient()
	} else {
		if cfg.APIKey == "" {
			log.Fatal("GEMINI_API_KEY is not set (set PRR_FAKE_LLM=1 to run without inference)")
		}
		cli, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		base = cli
	}
	return llm.Chain(base,
		llm.WithLogging(logger),
		llm.Retry(3, 500*time.Millisecond),
		llm.WithTimeout(60*time.Second),
	), nil
}
