package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thalia-health/thalia/internal/agent"
	"github.com/thalia-health/thalia/internal/api"
	"github.com/thalia-health/thalia/internal/config"
	dbstore "github.com/thalia-health/thalia/internal/db"
	"github.com/thalia-health/thalia/internal/logger"
	"github.com/thalia-health/thalia/internal/metrics"
	"github.com/thalia-health/thalia/internal/middleware"
)

func main() {
	cfg := config.Load()
	log := logger.SetupDefault(os.Stdout)

	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatal(log, "create db dir", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(cfg.DBPath))
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		fatal(log, "open sqlite", err)
	}
	defer sqlDB.Close()

	if err := dbstore.RunMigrations(sqlDB); err != nil {
		fatal(log, "run migrations", err)
	}
	store, err := dbstore.NewStore(sqlDB)
	if err != nil {
		fatal(log, "init store", err)
	}

	if cfg.LegacyUsers != "" {
		if err := importLegacyUsers(store, cfg.LegacyUsers, log); err != nil {
			log.Warn("legacy user import failed", slog.String("error", err.Error()))
		}
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	chatClient := agent.NewClient(cfg.AgentBaseURL, cfg.AgentAPIKey)

	r := chi.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.WithAuth)
	r.Use(middleware.RequestLogger(log))
	api.NewRouter(store, chatClient, collector).Register(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))

	log.Info("thalia server listening", slog.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		fatal(log, "server error", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}
