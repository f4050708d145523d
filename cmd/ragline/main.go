// Command ragline runs the retrieval-augmented chatbot backend.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ragline/ragline/pkg/agent"
	"github.com/ragline/ragline/pkg/config"
	"github.com/ragline/ragline/pkg/embedder"
	"github.com/ragline/ragline/pkg/history"
	"github.com/ragline/ragline/pkg/indexer"
	"github.com/ragline/ragline/pkg/llm"
	"github.com/ragline/ragline/pkg/logger"
	"github.com/ragline/ragline/pkg/prompt"
	"github.com/ragline/ragline/pkg/retriever"
	"github.com/ragline/ragline/pkg/server"
	"github.com/ragline/ragline/pkg/tool"
	"github.com/ragline/ragline/pkg/tool/doctool"
	"github.com/ragline/ragline/pkg/tool/webtool"
	"github.com/ragline/ragline/pkg/vector"
	"github.com/ragline/ragline/pkg/websearch"
)

var version = "dev"

type cli struct {
	Config    string `short:"c" type:"path" help:"Path to the YAML config file."`
	LogLevel  string `default:"info" enum:"debug,info,warn,error" help:"Log level."`
	LogFormat string `default:"text" enum:"text,json" help:"Log format."`
	LogFile   string `type:"path" help:"Append logs to a file instead of stderr."`

	Serve   serveCmd   `cmd:"" default:"1" help:"Run the API server."`
	Index   indexCmd   `cmd:"" help:"Index a CSV corpus into the vector store."`
	Version versionCmd `cmd:"" help:"Print the version."`
}

type serveCmd struct {
	Port int `short:"p" help:"Override the configured server port."`
}

type indexCmd struct {
	CSV   string `arg:"" type:"path" help:"CSV corpus with a 'context' column."`
	Reset bool   `help:"Drop the collection before indexing."`
}

type versionCmd struct{}

func main() {
	cliCtx := &cli{}
	kctx := kong.Parse(cliCtx,
		kong.Name("ragline"),
		kong.Description("Retrieval-augmented chatbot backend."),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cliCtx.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var output io.Writer = os.Stderr
	if cliCtx.LogFile != "" {
		f, err := logger.OpenLogFile(cliCtx.LogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		output = f
	}
	logger.Init(level, cliCtx.LogFormat, output)
	config.LoadEnvFiles()

	if err := kctx.Run(cliCtx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func (v *versionCmd) Run(c *cli) error {
	fmt.Println("ragline", version)
	return nil
}

func (s *serveCmd) Run(c *cli) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if s.Port != 0 {
		cfg.Server.Port = s.Port
	}

	model, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer model.Close()

	emb, store, err := buildRetrievalStack(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()
	defer store.Close()

	ret := retriever.New(emb, store, retriever.Config{
		TopK:      cfg.Retrieval.TopK,
		Threshold: *cfg.Retrieval.Threshold,
	})

	registry := tool.NewRegistry()
	if err := registry.Register(doctool.New(ret)); err != nil {
		return err
	}
	if cfg.WebSearch.Enabled {
		ws, err := websearch.New(websearch.Config{
			APIKey:     cfg.WebSearch.APIKey,
			BaseURL:    cfg.WebSearch.BaseURL,
			MaxResults: cfg.WebSearch.MaxResults,
		})
		if err != nil {
			return fmt.Errorf("failed to create web search client: %w", err)
		}
		if err := registry.Register(webtool.New(ws)); err != nil {
			return err
		}
	}

	bot := agent.New(model, registry, agent.Config{
		SystemPrompt:  prompt.System + "\n\n" + prompt.Contextualize,
		MaxToolRounds: cfg.Agent.MaxToolRounds,
	})

	turns := history.NewStore(cfg.History.Path)
	counter := history.NewTokenCounter(cfg.LLM.Model)
	srv := server.New(cfg.Server, bot, turns, cfg.History, counter)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting ragline",
		"version", version,
		"model", cfg.LLM.Model,
		"vector_provider", cfg.Vector.Provider)
	return srv.Start(ctx)
}

func (i *indexCmd) Run(c *cli) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	emb, store, err := buildRetrievalStack(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if i.Reset {
		if err := store.Reset(ctx); err != nil {
			return err
		}
		slog.Info("collection reset", "collection", cfg.Vector.Collection)
	}

	ix := indexer.New(emb, store, 0)
	n, err := ix.IndexFile(ctx, i.CSV)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d documents into %s\n", n, cfg.Vector.Collection)
	return nil
}

func buildRetrievalStack(cfg *config.Config) (embedder.Embedder, vector.Store, error) {
	emb, err := embedder.NewOpenAI(embedder.OpenAIConfig{
		APIKey:    cfg.Embedder.APIKey,
		BaseURL:   cfg.Embedder.BaseURL,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		Timeout:   cfg.Embedder.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := vector.New(cfg.Vector)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	return emb, store, nil
}
