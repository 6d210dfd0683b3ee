// Package workflow runs the background report pipeline:
// analyze → generate PDF → upload. Every stage emits structured log
// events and every failure is terminal for that run — the caller already
// received its acknowledgment, so there is nobody left to tell.
package workflow

import (
	"context"

	"github.com/insightforge/fabric-analytics/internal/analytics"
	"github.com/insightforge/fabric-analytics/internal/report"
	"github.com/insightforge/fabric-analytics/internal/storage"
	"github.com/insightforge/fabric-analytics/pkg/models"
	"github.com/rs/zerolog/log"
)

// fallbackAnalysis is used when the engine supplied no analysis text.
const fallbackAnalysis = "Analysis not available"

// Pipeline holds the collaborators the background run needs. All handles
// are read-only after construction and shared across concurrent runs.
type Pipeline struct {
	Engine    analytics.Engine
	Generator report.Generator
	Uploader  storage.Uploader
}

// Run executes one workflow end to end. Stages run strictly in order; no
// stage is retried. Failures are logged and end the run.
func (p *Pipeline) Run(ctx context.Context, workflowID string, req models.ReportRequest, filename string) {
	wlog := log.With().Str("workflow_id", workflowID).Logger()
	wlog.Info().Str("query", req.DataQuery).Msg("Starting workflow")

	result, err := p.Engine.AnalyzeForReport(ctx, req.DataQuery, req.AIAnalysis())
	if err != nil {
		wlog.Error().Err(err).Msg("Data analysis failed")
		return
	}
	if msg, failed := result.Err(); failed {
		wlog.Error().Str("error", msg).Msg("Data analysis failed")
		return
	}

	rows := result.SampleData()
	wlog.Info().Int("records", len(rows)).Msg("Data analysis completed")
	if len(rows) == 0 {
		wlog.Warn().Msg("No data found, skipping report generation")
		return
	}

	analysisText := fallbackAnalysis
	if enhanced, ok := result.EnhancedAnalysis(); req.AIAnalysis() && ok {
		analysisText = enhanced
	} else if a := result.Analysis(); a != "" {
		analysisText = a
	}

	if req.ReportFormat != "pdf" {
		wlog.Warn().Str("format", req.ReportFormat).Msg("Unsupported report format, nothing generated")
		return
	}

	wlog.Info().Msg("Starting PDF generation")
	doc, err := p.Generator.GeneratePDF(ctx, req.DataQuery, rows, analysisText, req.ReportTitle(), req.EmailRecipients)
	if err != nil {
		wlog.Error().Err(err).Msg("PDF generation failed")
		return
	}
	if len(doc) == 0 {
		wlog.Error().Msg("PDF generation returned no data")
		return
	}
	wlog.Info().Int("size", len(doc)).Msg("PDF generated")

	if p.Uploader == nil {
		wlog.Error().Str("filename", filename).Msg("No upload target configured, report discarded")
		return
	}

	wlog.Info().Str("target", p.Uploader.Name()).Str("filename", filename).Msg("Starting report upload")
	if err := p.Uploader.Upload(ctx, doc, filename); err != nil {
		wlog.Error().Err(err).Str("target", p.Uploader.Name()).Str("filename", filename).Msg("Report upload failed")
		return
	}

	wlog.Info().Str("filename", filename).Msg("Report upload successful")
	// Hand-off point: the automation flow watching the upload target
	// takes over email delivery from here.
	wlog.Info().Msg("Automation flow will now handle email delivery")
	wlog.Info().Msg("Workflow completed")
}
