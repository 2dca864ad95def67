package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oncology-assist-backend/internal/api"
	"oncology-assist-backend/internal/api/routes"
	v1 "oncology-assist-backend/internal/api/routes/v1"
	"oncology-assist-backend/internal/auth"
	"oncology-assist-backend/internal/config"
	"oncology-assist-backend/internal/extractor"
	"oncology-assist-backend/internal/handlers"
	"oncology-assist-backend/internal/inference"
	"oncology-assist-backend/internal/libraries"
	llmHandlers "oncology-assist-backend/internal/llm_handlers"
	"oncology-assist-backend/internal/logger"
	"oncology-assist-backend/internal/oncology/agents"
	"oncology-assist-backend/internal/oncology/classifier"
	"oncology-assist-backend/internal/oncology/supervisor"
	"oncology-assist-backend/internal/oncology/tools"
	"oncology-assist-backend/internal/reports"
	"oncology-assist-backend/internal/repo"
	"oncology-assist-backend/internal/worker"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	shutdownGrace = 10 * time.Second
	drainTimeout  = 2 * time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Connect to database
	db, err := config.ConnectDB(cfg.DBURL, log)
	if err != nil {
		return err
	}
	defer config.CloseDB(db)

	if err := config.MigrateAllModels(db, cfg.DBMigrate, log); err != nil {
		return err
	}

	gcp, err := libraries.NewGCPClients(ctx, libraries.GCPOptions{
		CredentialsB64: cfg.GCPCredentialsB64,
		ProjectID:      cfg.GCPProjectID,
		VertexRegion:   cfg.GCPVertexLocation,
		WithGCS:        cfg.UploadBackend == config.UploadBackendGCS,
		WithVertex:     cfg.PredictEndpointID != "" || cfg.ImagingEndpointID != "",
	})
	if err != nil {
		return errors.Wrap(err, "init gcp clients")
	}
	defer gcp.Close()

	store, err := libraries.NewFileStore(ctx, cfg, gcp)
	if err != nil {
		return errors.Wrap(err, "init file store")
	}

	llmClient, err := llmHandlers.NewLLMClient(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "init llm client")
	}

	gemini, knowledgeStore, err := openKnowledge(ctx, cfg, log)
	if err != nil {
		return err
	}
	var retriever agents.Retriever
	if knowledgeStore != nil {
		retriever = knowledgeStore
	}
	var transcriber extractor.Transcriber
	if gemini != nil {
		transcriber = gemini
	}

	registry := llmHandlers.NewToolRegistry()
	if err := tools.RegisterAllTools(registry, 0); err != nil {
		return err
	}
	log.WithField("tools", registry.Names()).Info("tools registered")

	queryClassifier, err := classifier.New(cfg.DiagnosticRule, cfg.DiagnosticKeywords, log)
	if err != nil {
		return errors.Wrap(err, "init classifier")
	}

	predictFn := inference.FromPredictionClient(gcp.Vertex)
	endpoint := func(id string) inference.Endpoint {
		return inference.Endpoint{ProjectID: gcp.ProjectID, Location: cfg.GCPVertexLocation, EndpointID: id}
	}

	caseAnalyzer := agents.NewCaseAnalyzer(llmClient, retriever, cfg.RetrievalTopK, log)
	sup := supervisor.New(supervisor.Deps{
		Classifier:   queryClassifier,
		CaseAnalyzer: caseAnalyzer,
		Team: agents.NewTeam(
			agents.NewWebSearchAgent(llmClient, registry, log),
			agents.NewKnowledgeAgent(llmClient),
		),
		Imaging:        inference.NewImagingModel(predictFn, endpoint(cfg.ImagingEndpointID)),
		ImagingMarkers: cfg.ImagingMarkers,
		Log:            log,
	})

	queue := worker.NewQueue(cfg.AnalysisQueueSize, log)
	reportService := reports.NewService(reports.Deps{
		Repo:       repo.NewReportRepository(db),
		Store:      store,
		Extractor:  extractor.New(transcriber),
		Analyzer:   caseAnalyzer,
		Queue:      queue,
		MaxBytes:   cfg.MaxUploadBytes,
		MockUserID: cfg.MockUserID,
		Log:        log,
	})

	verifier, err := auth.NewVerifier(cfg, log)
	if err != nil {
		return err
	}
	var login handlers.LoginService
	if cfg.SupabaseURL != "" {
		login = libraries.NewSupabaseAuth(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseServiceRoleKey)
	} else {
		log.Warn("SUPABASE_URL is not set, /login is disabled")
	}

	// Create and configure Fiber app
	app := api.NewServer(cfg, log)

	// Register routes
	routes.Register(app, &v1.Handlers{
		Chat:        handlers.NewChatHandler(sup, repo.NewChatHistoryRepository(db), log),
		Reports:     handlers.NewReportHandler(reportService, log),
		Predict:     handlers.NewPredictHandler(inference.NewTabularPredictor(predictFn, endpoint(cfg.PredictEndpointID)), log),
		Auth:        handlers.NewAuthHandler(login, log),
		RequireAuth: auth.RequireAuth(verifier, log),
	})

	serveErr := api.StartServer(ctx, app, cfg.Port, shutdownGrace, log)

	// accepted analyses still run to completion
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	log.WithField("pending", queue.Pending()).Info("draining analysis queue")
	if err := queue.Close(drainCtx); err != nil {
		log.WithError(err).Error("analysis queue did not drain")
	}

	return serveErr
}
