package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"lendboard/config"
	"lendboard/engine"
	"lendboard/engine/cache"
	"lendboard/ledger"
	"lendboard/observability/logging"
	"lendboard/observability/metrics"
	telemetry "lendboard/observability/otel"
	"lendboard/server"
	"lendboard/signer"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "lendboard.yaml", "path to lendboard config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LENDBOARD_ENV"))
	log := logging.Setup("lendboardd", env)

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if otlpEndpoint != "" {
		insecure := true
		if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
			if parsed, err := strconv.ParseBool(value); err == nil {
				insecure = parsed
			}
		}
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "lendboardd",
			Environment: env,
			Endpoint:    otlpEndpoint,
			Insecure:    insecure,
			Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		})
		if err != nil {
			log.Error("init telemetry", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = shutdownTelemetry(context.Background())
		}()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ledgerClient, err := ledger.NewClient(ledger.Config{
		BaseURL:       cfg.LedgerRPCURL,
		Timeout:       cfg.RPCTimeout,
		AllowInsecure: cfg.AllowInsecure,
	})
	if err != nil {
		log.Error("build ledger client", "error", err)
		os.Exit(1)
	}
	walletBridge, err := signer.NewRemote(signer.Config{BaseURL: cfg.WalletBridgeURL})
	if err != nil {
		log.Error("build wallet bridge signer", "error", err)
		os.Exit(1)
	}

	store := cache.NewStore()
	engineMetrics := metrics.Engine()
	invalidator := cache.NewInvalidator(store, ledgerClient, nil, cfg.IndexerDelay, log)
	invalidator.SetObserver(engineMetrics.ObserveCacheRefresh)

	eng := engine.New(ledgerClient, walletBridge, invalidator, engineMetrics, log)

	pools := make([]engine.Pool, 0, len(cfg.Pools))
	for _, pool := range cfg.Pools {
		p := engine.Pool{
			Name:       pool.Name,
			CoinType:   pool.CoinType,
			Decimals:   pool.Decimals,
			PoolID:     ledger.ObjectID(pool.PoolID),
			RegistryID: ledger.ObjectID(pool.RegistryID),
		}
		if pool.Referral != "" {
			referral := ledger.ObjectID(pool.Referral)
			p.Referral = &referral
		}
		pools = append(pools, p)
	}

	srv := server.New(eng, pools, cfg.Network, log)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(srv.Router(), "lendboardd"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", "addr", cfg.ListenAddress, "network", cfg.Network)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	invalidator.Flush()
}
