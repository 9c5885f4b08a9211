// Package main runs the token analysis server: an HTTP/WebSocket API
// backed by the analysis orchestrator, live transaction monitoring and
// optional PostgreSQL/ClickHouse persistence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-sentinel/internal/analyzer"
	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/eventbus"
	"solana-sentinel/internal/facts"
	"solana-sentinel/internal/helius"
	"solana-sentinel/internal/llm"
	"solana-sentinel/internal/monitor"
	"solana-sentinel/internal/risk"
	"solana-sentinel/internal/solana"
	"solana-sentinel/internal/storage"
	chstore "solana-sentinel/internal/storage/clickhouse"
	"solana-sentinel/internal/storage/memory"
	"solana-sentinel/internal/storage/migrations"
	pgstore "solana-sentinel/internal/storage/postgres"
	"solana-sentinel/internal/tokenlist"
	"solana-sentinel/internal/transport"
	"solana-sentinel/internal/wallet"
)

// stores holds the persistence backends used by the orchestrator.
type stores struct {
	analysisStore storage.AnalysisStore
	eventStore    storage.TransactionEventStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", envOr("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", envOr("SOLANA_WS_ENDPOINT", "wss://api.mainnet-beta.solana.com"), "Solana WebSocket endpoint")
	heliusKey := flag.String("helius-api-key", os.Getenv("HELIUS_API_KEY"), "Helius API key")
	openrouterKey := flag.String("openrouter-api-key", os.Getenv("OPENROUTER_API_KEY"), "OpenRouter API key")
	llmModel := flag.String("llm-model", envOr("LLM_MODEL", llm.DefaultModel), "Model identifier for risk judgments")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	analysisTTL := flag.Duration("analysis-ttl", analyzer.DefaultAnalysisTTL, "How long a composite analysis stays fresh")
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *heliusKey == "" {
		logger.Fatal("--helius-api-key is required (or HELIUS_API_KEY)")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Solana clients
	rpcClient := solana.NewHTTPClient(*rpcEndpoint)
	wsConfig := solana.DefaultWSConfig()
	wsClient, err := solana.NewWSClient(ctx, *wsEndpoint, &wsConfig)
	if err != nil {
		logger.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer wsClient.Close()

	// External services
	heliusClient := helius.NewClient(*heliusKey)
	verifier := tokenlist.NewProvider()
	llmClient := llm.NewClient(*openrouterKey, llm.WithModel(*llmModel))
	if *openrouterKey == "" {
		logger.Println("OPENROUTER_API_KEY not set, model judgments will fall back to heuristics")
	}

	// Analysis pipeline
	factsService := facts.NewService(rpcClient, heliusClient, verifier)
	profiler := wallet.NewAnalyzer(heliusClient)
	engine := risk.NewEngine(verifier)
	judge := llm.NewJudge(llmClient, verifier)
	bus := eventbus.NewBus()

	// The monitor delivers transactions to the orchestrator, which in
	// turn controls the monitor. Late-bind the handler to break the
	// construction cycle.
	var orch *analyzer.Orchestrator
	source := monitor.NewSource(wsClient, heliusClient, func(address string, tx domain.TokenTransaction) {
		orch.HandleTransaction(address, tx)
	})
	defer source.Close(context.Background())

	orch = analyzer.NewOrchestrator(analyzer.Options{
		Facts:         factsService,
		Profiler:      profiler,
		Scorer:        engine,
		Judge:         judge,
		Transactions:  heliusClient,
		Monitor:       source,
		Bus:           bus,
		AnalysisStore: st.analysisStore,
		EventStore:    st.eventStore,
		AnalysisTTL:   *analysisTTL,
	})

	// HTTP + WebSocket API
	hub := transport.NewWSHub(orch, bus)
	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: transport.NewMux(orch, hub),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		logger.Printf("HTTP server error: %v", err)
	}
	cancel()

	go func() {
		// Second signal forces immediate shutdown
		sig := <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the persistence backends and their cleanup.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		st := &stores{
			analysisStore: memory.NewAnalysisStore(),
			eventStore:    memory.NewTransactionEventStore(),
		}
		return st, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	st := &stores{
		analysisStore: pgstore.NewAnalysisStore(pool),
		eventStore:    chstore.NewTransactionEventStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return st, cleanup, nil
}

// envOr returns the env var's value, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
