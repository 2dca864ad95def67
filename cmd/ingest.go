package main

import (
	"context"

	"oncology-assist-backend/internal/config"
	llmHandlers "oncology-assist-backend/internal/llm_handlers"
	"oncology-assist-backend/internal/logger"
	"oncology-assist-backend/internal/oncology/knowledge"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Add reference documents to the knowledge store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			_, store, err := openKnowledge(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("GEMINI_API_KEY is required to embed documents")
			}

			for _, path := range args {
				n, err := store.Ingest(cmd.Context(), path)
				if err != nil {
					return err
				}
				log.WithFields(logrus.Fields{"file": path, "chunks": n}).Info("ingested")
			}
			log.WithField("total", store.Count()).Info("knowledge store updated")
			return nil
		},
	}
}

// openKnowledge builds the Gemini client used for embeddings and image
// transcription, and the knowledge store on top of it. Both are nil when no
// Gemini key is configured.
func openKnowledge(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*llmHandlers.GenaiGeminiClient, *knowledge.Store, error) {
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY is not set, retrieval and image transcription are disabled")
		return nil, nil, nil
	}

	gemini, err := llmHandlers.NewGenaiGeminiClient(ctx, llmHandlers.GeminiConfig{
		APIKey:         cfg.GeminiAPIKey,
		ModelID:        cfg.GeminiModelID,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "init gemini client")
	}

	store, err := knowledge.NewStore(cfg.KnowledgeDir, gemini.Embed, cfg.MinSimilarity, log)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("documents", store.Count()).Info("knowledge store opened")
	return gemini, store, nil
}
