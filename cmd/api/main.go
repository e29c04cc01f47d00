package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dealdrop/backend/internal/config"
	"github.com/dealdrop/backend/internal/database"
	"github.com/dealdrop/backend/internal/feed"
	"github.com/dealdrop/backend/internal/handlers"
	"github.com/dealdrop/backend/internal/logging"
	"github.com/dealdrop/backend/internal/metrics"
	"github.com/dealdrop/backend/internal/ranking"
	"github.com/dealdrop/backend/internal/server"
	"github.com/dealdrop/backend/internal/votes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("error loading configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)
	slog.SetDefault(log)

	db, err := database.New(cfg.Database, log)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.SeedCategories(ctx, db.GetDB(), database.DefaultCategories); err != nil {
		log.Error("seeding categories failed", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	scorer := ranking.NewScorer(cfg.Ranking.Gravity)
	feedService := feed.NewService(db.GetDB(), cfg.Feed, m, log)
	engine := votes.NewEngine(db.GetDB(),
		votes.WithScorer(scorer),
		votes.WithInvalidator(feedService),
		votes.WithMetrics(m),
		votes.WithLogger(log),
	)
	rescorer := ranking.NewRescorer(db.GetDB(), ranking.RescorerConfig{
		Scorer:      scorer,
		Interval:    cfg.Ranking.RescoreInterval,
		BatchSize:   cfg.Ranking.RescoreBatch,
		Invalidator: feedService,
		Metrics:     m,
		Logger:      log,
	})

	handler := handlers.NewHandler(handlers.Deps{
		DB:     db.GetDB(),
		Votes:  engine,
		Feed:   feedService,
		Scorer: scorer,
		Logger: log,
	})
	httpServer := server.New(cfg, db, handler, registry, log).HTTPServer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rescorer.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", httpServer.Addr)
	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server closed", "error", err)
		stop()
		wg.Wait()
		os.Exit(1)
	}

	wg.Wait()
	log.Info("server stopped")
}
