package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"minigame/client/internal/cli"
	"minigame/client/internal/config"
	"minigame/client/internal/devserver"
	"minigame/client/internal/logger"
	"minigame/client/internal/store"
	"minigame/client/internal/telemetry"
)

func main() {
	serve := flag.Bool("serve", false, "run the development backend instead of the client")
	traceStdout := flag.Bool("trace-stdout", false, "additionally pretty-print spans to stdout (serve mode)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()

	shutdown, err := telemetry.InitOtel(cfg.OTLPEndpoint, *traceStdout)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	if *serve {
		runServer(cfg)
		return
	}
	runClient(ctx, cfg)
}

// runServer hosts the development backend with graceful shutdown.
func runServer(cfg *config.Config) {
	logger.Init(os.Stdout)

	srv, err := devserver.New(":memory:")
	if err != nil {
		log.Fatalf("failed to build dev server: %v", err)
	}
	defer srv.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Engine(),
	}

	go func() {
		log.Printf("dev server started on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// runClient runs the interactive terminal client. Logs go to a file so
// they do not interleave with the board rendering.
func runClient(ctx context.Context, cfg *config.Config) {
	storePath := cfg.StorePath
	if storePath == "" {
		var err error
		storePath, err = store.DefaultPath()
		if err != nil {
			log.Fatalf("failed to resolve store path: %v", err)
		}
	}

	logPath := filepath.Join(filepath.Dir(storePath), "minigame.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()
	logger.Init(logFile)

	st, err := store.Open(storePath)
	if err != nil {
		log.Fatalf("failed to open local store: %v", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := cli.New(cfg, st, os.Stdout, os.Stdin)
	if err := app.Run(ctx); err != nil {
		log.Fatalf("client exited with error: %v", err)
	}
}
