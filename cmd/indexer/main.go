package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lending-risk-lab/internal/aggregate"
	"lending-risk-lab/internal/engine"
	"lending-risk-lab/internal/feed"
	"lending-risk-lab/internal/ledger"
	"lending-risk-lab/internal/observability"
	"lending-risk-lab/internal/registry"
	"lending-risk-lab/internal/reserves"
	"lending-risk-lab/internal/risk"
	"lending-risk-lab/internal/storage"
	chstore "lending-risk-lab/internal/storage/clickhouse"
	"lending-risk-lab/internal/storage/memory"
	"lending-risk-lab/internal/storage/migrations"
	pgstore "lending-risk-lab/internal/storage/postgres"
)

// stores bundles every entity store the engine writes through.
type stores struct {
	tokens       storage.TokenStore
	mappings     storage.OracleMappingStore
	priceSnaps   storage.PriceSnapshotStore
	positions    storage.PositionStore
	collateral   storage.CollateralStore
	debt         storage.DebtStore
	aggregates   storage.ReserveAggregateStore
	posSnaps     storage.PositionSnapshotStore
	users        storage.UserStore
	metrics      storage.ProtocolMetricsStore
	configs      storage.AssetConfigStore
	history      storage.ConfigChangeStore
	transactions storage.TransactionStore
	executions   storage.OrderExecutionStore
}

func main() {
	wsEndpoint := flag.String("ws-endpoint", "", "Event feed WebSocket endpoint")
	eventsFile := flag.String("events-file", "", "JSONL event file to process instead of a live feed")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for snapshot history")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[indexer] ", log.LstdFlags|log.Lshortfile)

	if *wsEndpoint == "" && *eventsFile == "" {
		logger.Fatal("No event source specified. Use --ws-endpoint or --events-file")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, logger, *wsEndpoint, *eventsFile, *postgresDSN, *clickhouseDSN, *useMemory)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, wsEndpoint, eventsFile, postgresDSN, clickhouseDSN string, useMemory bool) error {
	st, cleanup, err := buildStores(ctx, logger, postgresDSN, clickhouseDSN, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	src, closeSrc, err := buildSource(ctx, logger, wsEndpoint, eventsFile)
	if err != nil {
		return err
	}
	defer closeSrc()

	eng := buildEngine(logger, st, observability.NewMetrics(""))

	logger.Println("Processing events...")
	if err := eng.Run(ctx, src); err != nil {
		return err
	}
	logger.Println("Event stream drained")
	return nil
}

// buildStores selects the storage backends. With databases configured, the
// mutable entities go to PostgreSQL and the two snapshot streams go to
// ClickHouse; the provenance records stay in memory.
func buildStores(ctx context.Context, logger *log.Logger, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	st := &stores{
		tokens:       memory.NewTokenStore(),
		mappings:     memory.NewOracleMappingStore(),
		priceSnaps:   memory.NewPriceSnapshotStore(),
		positions:    memory.NewPositionStore(),
		collateral:   memory.NewCollateralStore(),
		debt:         memory.NewDebtStore(),
		aggregates:   memory.NewReserveAggregateStore(),
		posSnaps:     memory.NewPositionSnapshotStore(),
		users:        memory.NewUserStore(),
		metrics:      memory.NewProtocolMetricsStore(),
		configs:      memory.NewAssetConfigStore(),
		history:      memory.NewConfigChangeStore(),
		transactions: memory.NewTransactionStore(),
		executions:   memory.NewOrderExecutionStore(),
	}
	cleanup := func() {}

	if useMemory || (postgresDSN == "" && clickhouseDSN == "") {
		logger.Println("Using in-memory storage")
		return st, cleanup, nil
	}

	var closers []func()

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)

		st.tokens = pgstore.NewTokenStore(pool)
		st.mappings = pgstore.NewOracleMappingStore(pool)
		st.positions = pgstore.NewPositionStore(pool)
		st.collateral = pgstore.NewCollateralStore(pool)
		st.debt = pgstore.NewDebtStore(pool)
		st.aggregates = pgstore.NewReserveAggregateStore(pool)
		st.users = pgstore.NewUserStore(pool)
		st.metrics = pgstore.NewProtocolMetricsStore(pool)
		st.configs = pgstore.NewAssetConfigStore(pool)
		logger.Println("Using PostgreSQL for entity storage")
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		closers = append(closers, func() { conn.Close() })

		st.priceSnaps = chstore.NewPriceSnapshotStore(conn)
		st.posSnaps = chstore.NewPositionSnapshotStore(conn)
		logger.Println("Using ClickHouse for snapshot history")
	}

	cleanup = func() {
		for _, c := range closers {
			c()
		}
	}
	return st, cleanup, nil
}

func buildSource(ctx context.Context, logger *log.Logger, wsEndpoint, eventsFile string) (feed.Source, func(), error) {
	if eventsFile != "" {
		src, err := feed.NewFileSource(eventsFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("Reading events from %s", eventsFile)
		return src, func() { src.Close() }, nil
	}

	src, err := feed.NewWSSource(ctx, wsEndpoint, nil)
	if err != nil {
		return nil, nil, err
	}
	logger.Printf("Connected to feed at %s", wsEndpoint)
	return src, func() { src.Close() }, nil
}

func buildEngine(logger *log.Logger, st *stores, metrics *observability.Metrics) *engine.Engine {
	reg := registry.New(st.tokens, st.mappings, st.priceSnaps)

	return engine.New(engine.Config{
		Logger:       logger,
		Registry:     reg,
		Ledger:       ledger.New(st.positions, st.collateral, st.debt, st.aggregates, reg),
		Risk:         risk.New(st.positions, st.collateral, st.debt, st.posSnaps, reg),
		Aggregator:   aggregate.New(st.users, st.metrics),
		Reserves:     reserves.New(st.configs, st.history, reg),
		Positions:    st.positions,
		Transactions: st.transactions,
		Executions:   st.executions,
		Metrics:      metrics,
	})
}
