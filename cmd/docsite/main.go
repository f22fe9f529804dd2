package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/statekit/statekit/website"
)

func main() {
	var (
		addr    = flag.String("addr", ":8080", "Listen address")
		verbose = flag.Bool("verbose", false, "Enable verbose request logging to stderr")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	server := &http.Server{
		Addr:              *addr,
		Handler:           newHandler(logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("docsite listening", slog.String("addr", *addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}

func newHandler(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slug := website.SlugFromPath(r.URL.Path)
		if slug == "" {
			http.NotFound(w, r)
			logger.Debug("not found", slog.String("path", r.URL.Path))
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := website.Render(w, slug); err != nil {
			http.Error(w, fmt.Sprintf("render failed: %v", err), http.StatusInternalServerError)
			logger.Error("render failed",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
			return
		}

		logger.Debug("served page",
			slog.String("slug", slug),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
