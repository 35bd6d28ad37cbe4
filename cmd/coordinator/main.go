// Command coordinator is the CLI entrypoint that wires configuration, the
// graph/vector/LLM clients, and the cache subsystem into a
// coordinator.Coordinator and runs one query, mirroring the teacher's
// cmd/<service>/main.go + cobra root-command layout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/developer-mesh/graphrag-coordinator/internal/cachemanager"
	"github.com/developer-mesh/graphrag-coordinator/internal/cachestore"
	"github.com/developer-mesh/graphrag-coordinator/internal/config"
	"github.com/developer-mesh/graphrag-coordinator/internal/coordinator"
	"github.com/developer-mesh/graphrag-coordinator/internal/graphstore"
	"github.com/developer-mesh/graphrag-coordinator/internal/llm"
	"github.com/developer-mesh/graphrag-coordinator/internal/observability"
	"github.com/developer-mesh/graphrag-coordinator/internal/planner"
	"github.com/developer-mesh/graphrag-coordinator/internal/resilience"
	"github.com/developer-mesh/graphrag-coordinator/internal/retriever"
	"github.com/developer-mesh/graphrag-coordinator/internal/synthesizer"
	"github.com/developer-mesh/graphrag-coordinator/internal/vectorstore"
)

var (
	configDir   string
	environment string
	threadID    string
	stream      bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coordinator",
		Short: "Retrieval-reasoning coordinator for a GraphRAG question-answering system",
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "directory holding config.base.yaml and overlays")
	root.PersistentFlags().StringVar(&environment, "environment", "", "deployment environment layer (defaults to CO_ENVIRONMENT, then dev)")

	query := &cobra.Command{
		Use:   "query [question]",
		Short: "Answer one question through the full retrieval-reasoning pipeline",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	query.Flags().StringVar(&threadID, "thread-id", "cli", "conversation thread id, scopes the session cache")
	query.Flags().BoolVar(&stream, "stream", false, "emit progress markers as the pipeline advances")
	root.AddCommand(query)

	return root
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configDir, environment)
	if err != nil {
		return fmt.Errorf("coordinator: load config: %w", err)
	}

	shutdownTracing, err := observability.InstallTracerProvider(observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    "graphrag-coordinator",
		ServiceVersion: "dev",
		Environment:    cfg.Environment,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("coordinator: install tracer provider: %w", err)
	}
	defer func() { _ = shutdownTracing(ctx) }()

	logger := observability.NewLogger("coordinator")
	metrics := observability.NewPrometheusMetricsClient("graphrag", "coordinator")

	coord, closeFn, err := buildCoordinator(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeFn()

	if stream {
		return runStreamed(ctx, coord, question)
	}

	resp, err := coord.ProcessQuery(ctx, question, threadID)
	if err != nil && resp == nil {
		return err
	}
	fmt.Println(resp.Answer)
	return err
}

func runStreamed(ctx context.Context, coord *coordinator.Coordinator, question string) error {
	markers, err := coord.ProcessQueryStream(ctx, question, threadID)
	if err != nil {
		return err
	}
	for m := range markers {
		line, _ := json.Marshal(m)
		fmt.Fprintln(os.Stderr, string(line))
		if m.Final && m.Answer != "" {
			fmt.Println(m.Answer)
		}
	}
	return nil
}

// buildCoordinator wires every collaborator named in spec.md §6's external
// interfaces into one coordinator.Coordinator. The returned func closes the
// graph driver and database pool.
func buildCoordinator(ctx context.Context, cfg *config.Config, logger observability.Logger, metrics observability.MetricsClient) (*coordinator.Coordinator, func(), error) {
	graph, err := graphstore.NewNeo4jStore(ctx, graphstore.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("coordinator: connect graph store: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Vector.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("coordinator: connect vector store: %w", err)
	}
	vectors := vectorstore.NewPGVectorStore(db, cfg.Vector.Table)

	chatClient := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.ChatModel)
	embedder := llm.NewOpenAIEmbedder(cfg.LLM.APIKey, cfg.LLM.EmbeddingModel, cfg.LLM.EmbeddingDims)

	local := retriever.NewLocalSearch(graph, vectors, embedder, logger)
	global := retriever.NewGlobalSearch(graph)
	exploration := retriever.NewExploration(chatClient, local, logger)
	chain := retriever.NewChainExploration(graph, embedder)
	chain.MaxSteps = cfg.ChainExploration.MaxSteps
	chain.SeedEntityLimit = cfg.ChainExploration.SeedEntityLimit

	sessionBackend := cachestore.NewThreadSafe(cachestore.NewMemory(cachestore.MemoryConfig{
		Capacity: cfg.Cache.MemoryCapacity,
		TTL:      cfg.Cache.TTL,
	}))
	globalBackend := cachestore.NewThreadSafe(cachestore.NewMemory(cachestore.MemoryConfig{
		Capacity: cfg.Cache.MemoryCapacity,
		TTL:      cfg.Cache.TTL,
	}))
	sessionKey := cachemanager.SessionKeyStrategyByName(cfg.Cache.KeyStrategy)
	cache := cachemanager.NewWithKeyStrategy(sessionBackend, globalBackend, sessionKey, logger, metrics)

	p := planner.New(chatClient, logger)
	synth := synthesizer.New(chatClient)

	retrievers := coordinator.Retrievers{Local: local, Global: global, Exploration: exploration, Chain: chain}
	coord := coordinator.New(p, retrievers, synth, cache, chatClient, logger, metrics)
	coord.Config.ComplexityThreshold = cfg.Plan.ComplexityThreshold
	coord.Config.WorkerPoolSize = cfg.Coordinator.WorkerPoolSize
	coord.Config.TotalTimeout = time.Duration(cfg.Coordinator.TotalTimeoutSeconds) * time.Second
	coord.Config.RetrieverTimeout = resilience.TimeoutConfig{
		Timeout:     time.Duration(cfg.Retriever.TimeoutSeconds) * time.Second,
		GracePeriod: resilience.DefaultRetrieverTimeout().GracePeriod,
	}
	coord.Config.MaxSearchIterations = cfg.Thinking.MaxSearchIterations

	closeFn := func() {
		_ = graph.Close(ctx)
		_ = db.Close()
	}
	return coord, closeFn, nil
}
