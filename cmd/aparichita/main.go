// Package main is the aparichita CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/banglatutor/aparichita/internal/cli"
	"github.com/banglatutor/aparichita/internal/config"
	"github.com/banglatutor/aparichita/internal/embedding"
	"github.com/banglatutor/aparichita/internal/index"
	"github.com/banglatutor/aparichita/internal/memory"
	"github.com/banglatutor/aparichita/internal/rag"
	"github.com/banglatutor/aparichita/internal/server"
	"github.com/banglatutor/aparichita/internal/store"
	"github.com/banglatutor/aparichita/internal/watcher"
	"github.com/banglatutor/aparichita/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	// .env is optional; the API key may come from the environment directly.
	_ = godotenv.Load()

	switch command := os.Args[1]; command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "ask":
		runAsk()
	case "character":
		runCharacter()
	case "word":
		runWord()
	case "stats":
		runStats()
	case "version", "--version", "-v":
		fmt.Printf("aparichita version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: aparichita <command> [flags]

Commands:
  server     start the HTTP API server
  index      build the knowledge base from the corpus file
  ask        ask a question (Bengali or English)
  character  look up a character by name
  word       look up a word meaning
  stats      show index and memory statistics
  version    print version
  help       show this help

Flags common to all commands:
  -config path   config file (default config.yaml)
`)
}

// components holds everything a command needs, with a single Close.
type components struct {
	Store    *store.SQLiteStore
	Embedder embedding.Embedder
	Engine   *index.Engine
	Memory   *memory.Manager
	System   *rag.System
}

// Close releases held resources.
func (c *components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	embedder, err := embedding.NewOpenAIEmbedder(apiKey, cfg.OpenAI.BaseURL, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	generator, err := rag.NewOpenAIGenerator(apiKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	engine, err := index.NewEngine(embedder, st, cfg.Storage.Collection, index.WithLogger(logger))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create index engine: %w", err)
	}
	mem := memory.NewManager(cfg.Memory.Dir, cfg.Memory.ShortTermSize, memory.WithLogger(logger))
	system := rag.NewSystem(engine, generator, mem, cfg.Retrieval.MaxChunks, rag.WithSystemLogger(logger))
	return &components{
		Store:    st,
		Embedder: embedder,
		Engine:   engine,
		Memory:   mem,
		System:   system,
	}, nil
}

// setup parses the common flags of a subcommand and builds config and logger.
func setup(name string, args []string, extra func(fs *flag.FlagSet)) (*config.Config, *zap.Logger, []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	if extra != nil {
		extra(fs)
	}
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, fs.Args()
}

func runServer() {
	cfg, logger, _ := setup("server", os.Args[2:], nil)
	defer func() { _ = logger.Sync() }()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	srv := server.NewServer(comps.System, &cfg.Server, cfg.Corpus.Path, cfg.Storage.SnapshotPath, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Corpus.Watch {
		w := watcher.NewWatcher(cfg.Corpus.Path, func(path string) {
			if _, err := srv.Rebuild(context.Background()); err != nil {
				logger.Warn("corpus rebuild failed", zap.String("path", path), zap.Error(err))
			}
		}, watcher.WithLogger(logger))
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start corpus watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if err := comps.Memory.SaveAll(); err != nil {
		logger.Warn("memory save failed", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIndex() {
	cfg, logger, _ := setup("index", os.Args[2:], nil)
	defer func() { _ = logger.Sync() }()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	count, err := comps.System.BuildKnowledgeBase(context.Background(), cfg.Corpus.Path, cfg.Storage.SnapshotPath)
	if err != nil {
		logger.Fatal("Failed to build knowledge base", zap.Error(err))
	}
	fmt.Printf("Indexed %d chunks from %s\n", count, cfg.Corpus.Path)
}

func runAsk() {
	var jsonOut *bool
	var noContext *bool
	cfg, logger, args := setup("ask", os.Args[2:], func(fs *flag.FlagSet) {
		jsonOut = fs.Bool("json", false, "output JSON")
		noContext = fs.Bool("no-context", false, "ignore conversation history")
	})
	defer func() { _ = logger.Sync() }()

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		fmt.Println("Usage: aparichita ask [flags] <question>")
		os.Exit(1)
	}
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	resp, err := comps.System.ProcessQuery(context.Background(), query, !*noContext)
	if err != nil {
		logger.Fatal("Query failed", zap.Error(err))
	}
	format := cli.OutputText
	if *jsonOut {
		format = cli.OutputJSON
	}
	if err := cli.WriteQueryResponse(os.Stdout, resp, format); err != nil {
		logger.Fatal("Failed to write response", zap.Error(err))
	}
	if err := comps.Memory.SaveAll(); err != nil {
		logger.Warn("memory save failed", zap.Error(err))
	}
}

func runCharacter() {
	cfg, logger, args := setup("character", os.Args[2:], nil)
	defer func() { _ = logger.Sync() }()

	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Println("Usage: aparichita character <name>")
		os.Exit(1)
	}
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	resp, err := comps.System.CharacterInfo(context.Background(), name)
	if err != nil {
		logger.Fatal("Character lookup failed", zap.Error(err))
	}
	fmt.Printf("\n%s\n", resp.Response)
	_ = cli.WriteChunks(os.Stdout, resp.RetrievedChunks, cli.OutputText)
}

func runWord() {
	cfg, logger, args := setup("word", os.Args[2:], nil)
	defer func() { _ = logger.Sync() }()

	word := strings.TrimSpace(strings.Join(args, " "))
	if word == "" {
		fmt.Println("Usage: aparichita word <word>")
		os.Exit(1)
	}
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	resp, err := comps.System.WordMeaning(context.Background(), word)
	if err != nil {
		logger.Fatal("Word lookup failed", zap.Error(err))
	}
	fmt.Printf("\n%s\n", resp.Response)
}

func runStats() {
	cfg, logger, _ := setup("stats", os.Args[2:], nil)
	defer func() { _ = logger.Sync() }()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	stats, err := comps.System.Stats(context.Background())
	if err != nil {
		logger.Fatal("Stats failed", zap.Error(err))
	}
	fmt.Printf("Collection: %s\n", stats.VectorStore.Collection)
	fmt.Printf("Indexed chunks: %d\n", stats.VectorStore.TotalCount)
	for t, n := range stats.VectorStore.CountsByType {
		fmt.Printf("  %s: %d\n", t, n)
	}
	fmt.Printf("Session: %s\n", stats.Memory.SessionID)
	fmt.Printf("Conversations: %d\n", stats.Memory.ConversationCount)
	fmt.Printf("Query patterns: %d\n", stats.Memory.QueryPatternCount)
	fmt.Printf("Preferred language: %s\n", stats.Memory.PreferredLanguage)
}
