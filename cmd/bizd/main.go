package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bizchain/config"
	"bizchain/core/state"
	"bizchain/native/business"
	"bizchain/observability/logging"
	"bizchain/observability/metrics"
	"bizchain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	metricsFlag := flag.String("metrics", "", "Metrics listen address (overrides config MetricsAddress)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	logger := logging.Setup("bizd", cfg.NetworkName)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)

	engine := business.NewEngine(engineParams(cfg))
	engine.SetState(manager)
	engine.SetMetrics(metrics.Engine())
	if authority, ok, err := cfg.Authority(); err != nil {
		logger.Error("Failed to decode authority address", slog.Any("error", err))
		os.Exit(1)
	} else if ok {
		engine.SetAuthority(authority)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsAddr := cfg.MetricsAddress
	if *metricsFlag != "" {
		metricsAddr = *metricsFlag
	}
	var server *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			logger.Info("Serving metrics", slog.String("address", metricsAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", slog.Any("error", err))
				stop()
			}
		}()
	}

	agg, err := manager.GetTreasury()
	if err != nil {
		logger.Error("Failed to load treasury", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.Engine().SetTreasury(agg)
	logger.Info("Ledger online",
		slog.String("dataDir", cfg.DataDir),
		slog.Uint64("totalPlayers", agg.TotalPlayers),
		slog.Uint64("totalInvested", agg.TotalInvested),
		slog.Uint64("reserve", agg.Reserve),
		slog.Bool("paused", agg.Paused),
	)

	// Keep the treasury gauges current while external callers mutate state
	// through the shared database.
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("Metrics shutdown failed", slog.Any("error", err))
				}
				cancel()
			}
			return
		case <-ticker.C:
			agg, err := manager.GetTreasury()
			if err != nil {
				logger.Error("Failed to refresh treasury gauges", slog.Any("error", err))
				continue
			}
			metrics.Engine().SetTreasury(agg)
		}
	}
}

func engineParams(cfg *config.Config) business.Params {
	params := business.DefaultParams()
	if cfg.Economics.UpdateCooldownSeconds > 0 {
		params.UpdateCooldown = cfg.Economics.UpdateCooldownSeconds
	}
	params.SettlementWindow = cfg.Economics.SettlementWindowSeconds
	if cfg.Economics.MaxClaimBps > 0 {
		params.MaxClaimBps = cfg.Economics.MaxClaimBps
	}
	if cfg.Economics.ClaimEpochSeconds > 0 {
		params.ClaimEpoch = cfg.Economics.ClaimEpochSeconds
	}
	params.DepositFeeBps = cfg.Economics.DepositFeeBps
	return params
}
