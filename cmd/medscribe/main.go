// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/medscribe"
	"github.com/poiesic/medscribe/ai"
	aibackend "github.com/poiesic/medscribe/ai/backend"
	"github.com/poiesic/medscribe/api"
	"github.com/poiesic/medscribe/config"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/knowledge"
	medmcp "github.com/poiesic/medscribe/mcp"
	"github.com/poiesic/medscribe/pipeline"
	"github.com/poiesic/medscribe/storage/badger"
)

const version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "medscribe",
		Usage:   "Turn doctor-patient conversations into clinical reports",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"MEDSCRIBE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "BadgerDB directory; overrides the config file. Empty keeps data in memory",
			},
		},
		Before: before,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address; overrides the config file",
					},
					&cli.StringFlag{
						Name:  "base-url",
						Usage: "Prefix for report download links",
					},
					&cli.DurationFlag{
						Name:  "shutdown-timeout",
						Usage: "Time allowed for in-flight requests on shutdown",
						Value: 15 * time.Second,
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcpCommand,
			},
			{
				Name:   "process",
				Usage:  "Run a transcript or recording through the pipeline and print the report",
				Action: processCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "text",
						Usage: "Transcript text",
					},
					&cli.StringFlag{
						Name:  "text-file",
						Usage: "File holding the transcript text",
					},
					&cli.StringFlag{
						Name:  "audio",
						Usage: "Audio recording to transcribe",
					},
					&cli.StringFlag{
						Name:  "patient-name",
						Usage: "Patient name for the report header",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report here instead of stdout",
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Load knowledge snippets from a file, one per line",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Source file",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "document",
						Usage: "Treat the file as one document and split it into overlapping chunks",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of snippets per embedding request",
						Value: knowledge.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N snippets",
						Value: 100,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute every stored knowledge embedding after changing embedding models",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "embedding-backend",
						Usage: "Embedding backend (local, openai); overrides the config file",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL; overrides the config file",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name; overrides the config file",
					},
					&cli.IntFlag{
						Name:  "embedding-dimensions",
						Usage: "Embedding vector length; overrides the config file",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts when the embedder is unreachable",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Search the knowledge base",
				ArgsUsage: "<query text>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "k",
						Usage: "Maximum number of results",
						Value: pipeline.DefaultTopK,
					},
				},
			},
			{
				Name:      "explain",
				Usage:     "Explain medical terms in plain language",
				ArgsUsage: "<term>...",
				Action:    explainCommand,
			},
		},
	}
}

func before(c *cli.Context) error {
	// A missing .env is normal.
	_ = godotenv.Load()
	return setupLogger(c)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Logs go to stderr so stdout stays clean for reports and MCP traffic.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	return cfg, nil
}

func openService(c *cli.Context, cfg *config.Config) (*medscribe.Service, error) {
	if aiCfg := cfg.AIConfig(); aiCfg.UsesOpenAI() && aiCfg.APIKey == "" {
		slog.Warn("an OpenAI backend is selected but no API key is set; set OPENAI_API_KEY or ai.api_key")
	}
	svc, err := medscribe.NewService(c.Context, cfg.DataDir, cfg.ServiceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("base-url") {
		cfg.Server.BaseURL = c.String("base-url")
	}

	svc, err := openService(c, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	handler := api.New(svc,
		api.WithBaseURL(cfg.Server.BaseURL),
		api.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		api.WithDefaultTopK(cfg.Pipeline.TopK),
		api.WithSummaryDefaults(cfg.Pipeline.SummaryMaxLength, cfg.Pipeline.SummaryMinLength),
		api.WithLogger(slog.Default()),
	)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("HTTP server listening", "addr", cfg.Server.Addr, "data_dir", cfg.DataDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
		defer cancel()
		slog.Info("shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func mcpCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(c, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := medmcp.NewServer(svc, version, slog.Default())
	slog.Info("MCP server starting on stdio")
	return mcpserver.ServeStdio(server)
}

func processCommand(c *cli.Context) error {
	in, err := processInput(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(c, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Process(c.Context, in)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			slog.Error("pipeline failed", "stage", stageErr.Stage, "attempts", stageErr.Attempts, "err", stageErr.Err)
		}
		return err
	}

	report := result.Report
	slog.Info("report generated", "id", report.ID, "entities", len(report.Entities), "degraded", report.Degraded)

	if out := c.String("output"); out != "" {
		return os.WriteFile(out, []byte(report.Document()), 0644)
	}
	_, err = fmt.Fprint(c.App.Writer, report.Document())
	return err
}

func processInput(c *cli.Context) (pipeline.Input, error) {
	var in pipeline.Input
	if name := c.String("patient-name"); name != "" {
		in.Patient = &core.PatientContext{Name: name}
	}
	in.Text = c.String("text")
	if path := c.String("text-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("failed to read transcript: %w", err)
		}
		in.Text = string(data)
	}
	if path := c.String("audio"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("failed to read audio: %w", err)
		}
		in.Audio = &core.Audio{Data: data, Filename: filepath.Base(path)}
	}
	return in, nil
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(c, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	path := c.String("file")
	if c.Bool("document") {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		ids, err := svc.AddKnowledge(c.Context, string(data), true)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "indexed %d chunks\n", len(ids))
		return nil
	}

	lines, err := readLines(path)
	if err != nil {
		return err
	}
	progress := knowledge.NewProgressTracker(c.App.ErrWriter, len(lines), c.Int("report-interval"))
	ids, err := svc.IngestKnowledge(c.Context, lines, &knowledge.IngestOptions{
		BatchSize: c.Int("batch-size"),
		Progress:  progress,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "ingested %d snippets\n", len(ids))
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.DataDir == "" {
		return errors.New("reembed needs a data directory; set --data-dir or data_dir")
	}
	if c.Int("batch-size") <= 0 {
		return errors.New("batch-size must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return errors.New("report-interval must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return errors.New("max-retries must be greater than 0")
	}

	aiCfg := cfg.AIConfig()
	if c.IsSet("embedding-backend") {
		aiCfg.EmbeddingBackend = ai.Backend(c.String("embedding-backend"))
	}
	if c.IsSet("embedding-host") {
		aiCfg.EmbeddingHost = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		aiCfg.EmbeddingModel = c.String("embedding-model")
	}
	if c.IsSet("embedding-dimensions") {
		aiCfg.EmbeddingDimensions = c.Int("embedding-dimensions")
	}
	if err := aiCfg.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	provider, err := aibackend.New(aiCfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer provider.Close()

	backend, err := badger.OpenBackend(cfg.DataDir, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewKnowledgeRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	errw := c.App.ErrWriter
	fmt.Fprintf(errw, "Database: %s\n", cfg.DataDir)
	fmt.Fprintf(errw, "Embedding backend: %s\n", aiCfg.EmbeddingBackend)
	fmt.Fprintf(errw, "Embedding model: %s (%d dimensions)\n", aiCfg.EmbeddingModel, aiCfg.EmbeddingDimensions)
	fmt.Fprintln(errw)

	n, err := knowledge.Reembed(c.Context, repo, provider.Embedder(), &knowledge.ReembedOptions{
		BatchSize:      c.Int("batch-size"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Progress:       errw,
		ReportInterval: c.Int("report-interval"),
	})
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "reembedded %d records\n", n)
	return nil
}

func queryCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("query text is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(c, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	matches, err := svc.QueryKnowledge(c.Context, query, c.Int("k"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, core.FormatMatches(matches))
	for _, m := range matches {
		slog.Debug("match", "id", m.RecordID, "score", m.Score)
	}
	return nil
}

func explainCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one term is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(c, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	explanations, err := svc.ExplainTerms(c.Context, c.Args().Slice())
	if err != nil {
		return err
	}
	for _, e := range explanations {
		fmt.Fprintf(c.App.Writer, "%s: %s\n", e.Term, e.Explanation)
	}
	return nil
}
