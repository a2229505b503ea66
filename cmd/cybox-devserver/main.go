// Command cybox-devserver runs a local chat server speaking the cybox
// wire protocol, for developing and testing clients without a real
// deployment.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cyboxchat/cybox-client-go/internal/devserver"
	"github.com/cyboxchat/cybox-client-go/pkg/logger"
)

func main() {
	cfg := devserver.LoadConfig()
	log := logger.New(cfg.Debug)

	hub := devserver.NewHub(log)
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", devserver.ServeWS(hub, log))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	go func() {
		log.Info("dev server listening on %s (ws endpoint: /ws)", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown: %v", err)
	}
}
