// Package server is the composition root for the Fabric Insights service.
// It builds every collaborator once at process start and wires them into
// the handlers by reference; nothing is looked up ambiently afterwards.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/insightforge/fabric-analytics/internal/ai"
	"github.com/insightforge/fabric-analytics/internal/analytics"
	"github.com/insightforge/fabric-analytics/internal/api"
	"github.com/insightforge/fabric-analytics/internal/api/handlers"
	"github.com/insightforge/fabric-analytics/internal/config"
	"github.com/insightforge/fabric-analytics/internal/notify"
	"github.com/insightforge/fabric-analytics/internal/report"
	"github.com/insightforge/fabric-analytics/internal/storage"
	"github.com/insightforge/fabric-analytics/internal/tasks"
	"github.com/insightforge/fabric-analytics/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized Fabric Insights service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Tasks is the background task runner; drained on shutdown.
	Tasks *tasks.Runner

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration and
// returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(_ context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	aiMgr := ai.NewManager(cfg)
	email := notify.NewEmailClient(cfg)
	uploader := storage.FromConfig(cfg)
	runner := tasks.NewRunner()

	// Interface-typed fields stay nil unless the concrete client exists,
	// so availability checks see a true nil.
	var engine analytics.Engine
	if fe := analytics.NewFabricEngine(cfg, aiMgr); fe != nil {
		engine = fe
		log.Info().Str("url", cfg.Engine.URL).Msg("Analytics engine client initialized")
	} else {
		log.Warn().Msg("FABRIC_ENGINE_URL not set, analyze endpoints will report service unavailable")
	}

	var generator report.Generator
	if rc := report.NewRendererClient(cfg); rc != nil {
		generator = rc
		log.Info().Str("url", cfg.Report.URL).Msg("Report renderer client initialized")
	} else {
		log.Warn().Msg("REPORT_RENDERER_URL not set, workflow endpoint will report service unavailable")
	}

	h := handlers.New(engine, aiMgr, email, generator, uploader, runner)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Tasks:        runner,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
