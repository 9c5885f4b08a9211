// Package main runs a single token analysis and prints the result as
// JSON. Useful for spot checks without running the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"solana-sentinel/internal/analyzer"
	"solana-sentinel/internal/eventbus"
	"solana-sentinel/internal/facts"
	"solana-sentinel/internal/helius"
	"solana-sentinel/internal/llm"
	"solana-sentinel/internal/risk"
	"solana-sentinel/internal/solana"
	"solana-sentinel/internal/tokenlist"
	"solana-sentinel/internal/wallet"
)

func main() {
	loadEnvFile()

	rpcEndpoint := flag.String("rpc-endpoint", envOr("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"), "Solana RPC HTTP endpoint")
	heliusKey := flag.String("helius-api-key", os.Getenv("HELIUS_API_KEY"), "Helius API key")
	openrouterKey := flag.String("openrouter-api-key", os.Getenv("OPENROUTER_API_KEY"), "OpenRouter API key")
	llmModel := flag.String("llm-model", envOr("LLM_MODEL", llm.DefaultModel), "Model identifier for risk judgments")
	timeout := flag.Duration("timeout", 2*time.Minute, "Analysis timeout")

	flag.Parse()

	logger := log.New(os.Stderr, "[analyze] ", log.LstdFlags)

	address := flag.Arg(0)
	if address == "" {
		logger.Fatal("usage: analyze [flags] <token-address>")
	}
	if *heliusKey == "" {
		logger.Fatal("--helius-api-key is required (or HELIUS_API_KEY)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rpcClient := solana.NewHTTPClient(*rpcEndpoint)
	heliusClient := helius.NewClient(*heliusKey)
	verifier := tokenlist.NewProvider()
	llmClient := llm.NewClient(*openrouterKey, llm.WithModel(*llmModel))

	orch := analyzer.NewOrchestrator(analyzer.Options{
		Facts:        facts.NewService(rpcClient, heliusClient, verifier),
		Profiler:     wallet.NewAnalyzer(heliusClient),
		Scorer:       risk.NewEngine(verifier),
		Judge:        llm.NewJudge(llmClient, verifier),
		Transactions: heliusClient,
		Monitor:      noopMonitor{},
		Bus:          eventbus.NewBus(),
	})

	analysis, err := orch.Analyze(ctx, address, true)
	if err != nil {
		logger.Fatalf("Analysis failed: %v", err)
	}

	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		logger.Fatalf("Encode result: %v", err)
	}
	fmt.Println(string(out))
}

// noopMonitor satisfies the orchestrator's monitor dependency for
// one-shot runs, where live monitoring makes no sense.
type noopMonitor struct{}

func (noopMonitor) Start(context.Context, string) error { return nil }
func (noopMonitor) Stop(context.Context, string) error  { return nil }
func (noopMonitor) IsActive(string) bool                { return false }
func (noopMonitor) Active() []string                    { return nil }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
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
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
