package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shahidattar7777/pharma-doc-agent/internal/agent"
	"github.com/shahidattar7777/pharma-doc-agent/internal/chunker"
	"github.com/shahidattar7777/pharma-doc-agent/internal/config"
	"github.com/shahidattar7777/pharma-doc-agent/internal/embedding"
	"github.com/shahidattar7777/pharma-doc-agent/internal/generate"
	"github.com/shahidattar7777/pharma-doc-agent/internal/helper"
	"github.com/shahidattar7777/pharma-doc-agent/internal/ingest"
	"github.com/shahidattar7777/pharma-doc-agent/internal/retriever"
	"github.com/shahidattar7777/pharma-doc-agent/internal/store"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// secrets may come from a .env file instead of the config
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	ingestDir := flag.String("ingest", "", "Directory of FDA review documents to ingest")
	reset := flag.Bool("reset", false, "Clear the vector store before ingesting")
	query := flag.String("query", "", "Regulatory question to answer")
	topK := flag.Int("k", 0, "Number of chunks to retrieve (default from config)")
	timeout := flag.Duration("timeout", 120*time.Second, "Timeout for the whole query")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if (*ingestDir == "") == (*query == "") {
		log.Fatal().Msg("Provide either a document directory with -ingest or a question with -query, but not both")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	if *ingestDir != "" {
		ingestDocuments(context.Background(), cfg, *ingestDir, *reset)
		return
	}

	// the timeout covers the embedding and LLM round trips
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	k := *topK
	if k <= 0 {
		k = cfg.RAG.TopK
	}
	answerQuestion(ctx, cfg, *query, k)
}

func ingestDocuments(ctx context.Context, cfg *config.Config, dir string, reset bool) {
	if err := helper.CreateFolder(cfg.Store.Path); err != nil {
		log.Fatal().Err(err).Msg("Error creating store folder")
	}

	s, err := store.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer s.Close()

	if reset {
		log.Info().Msg("Resetting existing vector store")
		if err := s.Reset(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error resetting vector store")
		}
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	ing := ingest.New(chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap), embedder, s)
	report, err := ing.Run(ctx, dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting documents")
	}

	helper.PrettyPrint(report)
	for _, failure := range report.Failures {
		log.Warn().Err(failure).Msg("Document skipped")
	}
}

func answerQuestion(ctx context.Context, cfg *config.Config, question string, k int) {
	s, err := store.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer s.Close()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	model, err := generate.NewModel(&cfg.InferenceLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing inference model")
	}

	a := agent.New(retriever.New(embedder, s), generate.New(model))
	run, err := a.Ask(ctx, question, k)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering question")
	}

	fmt.Printf("Question:\n%s\n\n", question)
	fmt.Printf("Answer:\n%s\n\n", run.Answer.Text)
	if len(run.Answer.Citations) > 0 {
		fmt.Println("Sources:")
		for _, c := range run.Answer.Citations {
			fmt.Printf("  - %s\n", c)
		}
	}
}
