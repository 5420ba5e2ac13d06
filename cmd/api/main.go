package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/fireside/backend/internal/auth"
	"github.com/zhouzirui/fireside/backend/internal/config"
	"github.com/zhouzirui/fireside/backend/internal/handler"
	"github.com/zhouzirui/fireside/backend/internal/handler/session"
	"github.com/zhouzirui/fireside/backend/internal/model/character"
	"github.com/zhouzirui/fireside/backend/internal/service/ai"
	"github.com/zhouzirui/fireside/backend/internal/service/chat"
	"github.com/zhouzirui/fireside/backend/internal/service/intelligence"
	"github.com/zhouzirui/fireside/backend/internal/storage"
	"github.com/zhouzirui/fireside/backend/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	characterStore := character.NewMemoryStore(character.Seed())
	chatService := chat.NewService()

	// Durable message log, optional. When configured, persistence failures
	// fail the write rather than silently dropping history.
	if cfg.Storage.DataDir != "" {
		messageLog, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			log.Fatalf("failed to open message log at %s: %v", cfg.Storage.DataDir, err)
		}
		defer messageLog.Close()
		chatService.WithMessageLog(messageLog)
		log.Printf("message log enabled at %s", cfg.Storage.DataDir)
	}

	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	var chatModel model.ChatModel
	if aiService != nil {
		chatModel = aiService.GetChatModel()
	}
	intelService, err := intelligence.NewService(ctx, chatModel, intelligence.Config{
		RetrieveTop: cfg.Intelligence.MemoryRetrieveTop,
	})
	if err != nil {
		log.Fatalf("failed to initialize intelligence service: %v", err)
	}

	tokenService := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	registry := ws.NewRegistry()
	rooms := ws.NewRooms(registry)
	monitor := ws.NewMonitor(registry, cfg.WS.HeartbeatInterval, cfg.WS.HeartbeatTimeout)
	go func() {
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("heartbeat monitor stopped: %v", err)
		}
	}()

	var provider ws.Provider
	if aiService != nil {
		provider = aiService
	}
	streamer := ws.NewStreamer(chatService, characterStore, provider, intelService, rooms, ws.StreamerConfig{
		HistoryLimit:       cfg.Intelligence.HistoryLimit,
		MemoryExtractEvery: cfg.Intelligence.MemoryExtractEvery,
	})
	wsHandler := ws.NewHandler(tokenService, registry, rooms, streamer)

	sessions := session.New(tokenService, cfg.Auth.AccessTokenTTL)

	router := handler.NewRouter(characterStore, chatService, aiService, intelService, tokenService, sessions, wsHandler)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Fireside backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
