package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/warehouse-sla-monitor/internal/api"
	"github.com/ignite/warehouse-sla-monitor/internal/config"
	"github.com/ignite/warehouse-sla-monitor/internal/dataset"
	"github.com/ignite/warehouse-sla-monitor/internal/pkg/logger"
	"github.com/ignite/warehouse-sla-monitor/internal/sla"
)

// checkPortAvailable verifies that the target port is not already in use
// before the rest of the stack spins up.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		logger.Error("pre-flight check failed", "error", err)
		os.Exit(1)
	}

	windows := sla.Windows{
		ShipHours:   cfg.Thresholds.ShipWindowHours,
		OnlineHours: cfg.Thresholds.OnlineWindowHours,
		TransitMin:  cfg.Thresholds.TransitMinDays,
		TransitMax:  cfg.Thresholds.TransitMaxDays,
	}
	thresholds := sla.Thresholds{
		ShipRateBar:         cfg.Thresholds.ShipRateBar,
		ShipRateTarget:      cfg.Thresholds.ShipRateTarget,
		OnlineRateBar:       cfg.Thresholds.OnlineRateBar,
		OnlineRateTarget:    cfg.Thresholds.OnlineRateTarget,
		HandoverHoursBar:    cfg.Thresholds.HandoverHoursBar,
		HandoverHoursTarget: cfg.Thresholds.HandoverHoursTarget,
		TransitDaysBar:      cfg.Thresholds.TransitDaysBar,
		TransitDaysTarget:   cfg.Thresholds.TransitDaysTarget,
	}

	store := dataset.NewStore(windows)
	metrics := sla.NewMetricSet(windows, thresholds)
	handlers := api.NewHandlers(store, metrics, cfg.Upload.MaxBytes)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			logger.Warn("redis unreachable, result cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			handlers.SetResultCache(dataset.NewResultCache(client, cfg.Redis.TTL()))
			logger.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL())
		}
		defer client.Close()
	}

	if cfg.Postgres.Enabled && cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			logger.Error("open postgres failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		loadCtx, loadCancel := context.WithTimeout(ctx, 2*time.Minute)
		ds, err := dataset.NewPostgresSource(db, cfg.Postgres.Table).Load(loadCtx, windows)
		loadCancel()
		if err != nil {
			logger.Error("load shipment events from postgres failed", "table", cfg.Postgres.Table, "error", err)
			os.Exit(1)
		}
		store.Add(ds)
		logger.Info("postgres dataset loaded", "dataset_id", ds.ID, "table", cfg.Postgres.Table, "rows", ds.Rows)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, cfg.Server.Port),
		Handler: api.SetupRoutes(handlers),
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
