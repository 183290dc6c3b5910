// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"matcharena/internal/config"
	"matcharena/internal/engine"
	"matcharena/internal/logger"
	"matcharena/internal/server"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg := logger.New(cfg.LogLevel)

	eng := engine.New(lg, cfg.WaitTimeout)
	srv := server.New(eng, lg, cfg.WaitTimeout)
	if err := srv.Listen(cfg.Addr); err != nil {
		lg.Fatalf("listen on %s: %v", cfg.Addr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WSAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", server.WSHandler(eng, lg, cfg.WaitTimeout))
		go func() {
			lg.Infof("websocket transport on %s", cfg.WSAddr)
			if err := http.ListenAndServe(cfg.WSAddr, mux); err != nil {
				lg.Errorf("websocket server exited: %v", err)
			}
		}()
	}

	if err := srv.Serve(ctx); err != nil {
		lg.Fatalf("server exited: %v", err)
	}
	lg.Info("shutdown complete")
}
