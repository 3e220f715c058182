package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/4cecoder/snakeserver/config"
	"github.com/4cecoder/snakeserver/game"
	"github.com/4cecoder/snakeserver/handlers"
	"github.com/4cecoder/snakeserver/secure"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

func main() {
	// Load environment variables from .env file
	if err := config.LoadEnvFiles(); err != nil {
		log.Println(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	keys, err := secure.GenerateKeyPair(cfg.RSABits)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Server key fingerprint %s", keys.Fingerprint())

	world := game.NewWorld(game.WorldConfig{
		Rows:        cfg.Rows,
		Snacks:      cfg.Snacks,
		StartLength: game.DefaultWorldConfig().StartLength,
	}, nil)
	loop := game.NewLoop(world, cfg.TickInterval)
	chat := handlers.NewChatRelay(cfg.ChatTTL)
	srv := handlers.NewServer(keys, loop, chat, handlers.ServerConfig{
		HandshakeTimeout: cfg.HandshakeTimeout,
		IdleTimeout:      cfg.IdleTimeout,
		AcceptRate:       cfg.AcceptRate,
		AcceptBurst:      cfg.AcceptBurst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		// The world has no recovery path once a tick fails.
		if err := loop.Run(ctx); err != nil {
			log.Fatal(err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.GameAddr)
	if err != nil {
		log.Fatal(err)
	}
	go func() {
		if err := srv.Serve(ctx, ln); err != nil {
			log.Fatal(err)
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/stats", srv.HandleStats)
	r.Get("/ws", srv.HandleWebSocket)

	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("Server started on :%s, game protocol on %s", cfg.Port, cfg.GameAddr)
	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
