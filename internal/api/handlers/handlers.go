// Package handlers implements the HTTP handlers for the Fabric Insights
// orchestration layer: intelligent analysis, the background report
// workflow, and the static capability description.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/insightforge/fabric-analytics/internal/ai"
	"github.com/insightforge/fabric-analytics/internal/analytics"
	"github.com/insightforge/fabric-analytics/internal/report"
	"github.com/insightforge/fabric-analytics/internal/session"
	"github.com/insightforge/fabric-analytics/internal/storage"
	"github.com/insightforge/fabric-analytics/internal/tasks"
	"github.com/insightforge/fabric-analytics/internal/workflow"
	"github.com/insightforge/fabric-analytics/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// previewLen bounds the analysis and insight excerpts embedded in
// notification emails.
const previewLen = 500

// EmailSender is the consumed email contract. *notify.EmailClient is the
// production implementation.
type EmailSender interface {
	Available() bool
	SendNotification(ctx context.Context, recipients []string, subject, htmlBody string) error
}

// Handlers holds all handler dependencies. Optional collaborators are nil
// when not configured; every conditional feature path checks first.
type Handlers struct {
	Engine    analytics.Engine
	AI        *ai.Manager
	Email     EmailSender
	Generator report.Generator
	Uploader  storage.Uploader
	Tasks     *tasks.Runner
}

// New creates a Handlers instance with all dependencies.
func New(engine analytics.Engine, aiMgr *ai.Manager, email EmailSender, gen report.Generator, up storage.Uploader, runner *tasks.Runner) *Handlers {
	return &Handlers{
		Engine:    engine,
		AI:        aiMgr,
		Email:     email,
		Generator: gen,
		Uploader:  up,
		Tasks:     runner,
	}
}

// ── Intelligent Analyze ──────────────────────────────────────

// IntelligentAnalyze handles POST /api/fabric/intelligent: validate,
// resolve the session, call the engine, optionally schedule a background
// notification email, and return the augmented engine result.
func (h *Handlers) IntelligentAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.IntelligentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.Engine == nil {
		respondError(w, http.StatusServiceUnavailable, "Analytics engine not configured")
		return
	}

	sessionID := session.FromRequest(r)

	result, err := h.Engine.Analyze(r.Context(), req.Question, sessionID, req.AIInsights())
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("Analysis request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		result = models.Result{}
	}

	// A conversational answer carrying an error marker is still an
	// answer; only failed data/report results are rejected.
	if msg, failed := result.Err(); failed && !result.Conversational() {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	notified := h.scheduleNotification(&req, result)
	if notified {
		result["email_notification_sent"] = true
	}

	result["session_id"] = sessionID
	result["features_enabled"] = models.FeaturesEnabled{
		AIInsights:         req.AIInsights() && h.AI.FoundryAvailable(),
		EmailNotification:  req.EnableEmailNotification && h.AI.GraphAvailable(),
		AIFoundryAvailable: h.AI.FoundryAvailable(),
		GraphAPIAvailable:  h.AI.GraphAvailable(),
		ChatContext:        true,
	}

	respondJSON(w, http.StatusOK, result)
}

// scheduleNotification submits the best-effort notification email when
// requested and when both the email and graph capabilities are up.
// Returns whether a task was scheduled.
func (h *Handlers) scheduleNotification(req *models.IntelligentRequest, result models.Result) bool {
	if !req.EnableEmailNotification || len(req.EmailRecipients) == 0 {
		return false
	}
	if !h.emailAvailable() || !h.AI.GraphAvailable() {
		return false
	}

	// Snapshot everything the detached task needs; the request and
	// result are dead once the handler returns.
	recipients := append([]string(nil), req.EmailRecipients...)
	subject := fmt.Sprintf("Analytics Result: %s...", preview(req.Question, 50))
	body := notificationBody(req.Question, result)

	h.Tasks.Submit("notification-email", func(ctx context.Context) {
		if err := h.Email.SendNotification(ctx, recipients, subject, body); err != nil {
			log.Warn().Err(err).Int("recipients", len(recipients)).Msg("Notification email failed")
		}
	})
	return true
}

// notificationBody renders the HTML summary email for an analyze result.
func notificationBody(question string, result models.Result) string {
	body := fmt.Sprintf(
		"<h2>Analytics Notification</h2>"+
			"<p><strong>Question:</strong> %s</p>"+
			"<p><strong>Results:</strong> %d records found</p>",
		question, result.ResultCount(),
	)
	if analysis := result.Analysis(); analysis != "" {
		body += fmt.Sprintf("<p><strong>Analysis:</strong></p><p>%s...</p>", preview(analysis, previewLen))
	}
	if insights := result.AIInsights(); insights != "" {
		body += fmt.Sprintf("<p><strong>AI Insights:</strong></p><p>%s...</p>", preview(insights, previewLen))
	}
	body += "<p>For full details, please check the analytics dashboard.</p>"
	body += fmt.Sprintf("<p>Generated on: %s</p>", time.Now().Format("2006-01-02 15:04:05"))
	return body
}

// ── Intelligent Workflow ─────────────────────────────────────

// IntelligentWorkflow handles POST /api/intelligent-workflow: validate,
// schedule the analyze→render→upload pipeline in the background, and
// acknowledge immediately.
func (h *Handlers) IntelligentWorkflow(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.Engine == nil || h.Generator == nil {
		respondError(w, http.StatusServiceUnavailable, "Required services not configured")
		return
	}

	workflowID := uuid.New().String()[:8]
	filename := fmt.Sprintf("analytics_report_%s.%s", time.Now().Format("20060102_150405"), req.ReportFormat)

	pipeline := &workflow.Pipeline{
		Engine:    h.Engine,
		Generator: h.Generator,
		Uploader:  h.Uploader,
	}
	// req is passed by value: the background run owns its own copy for
	// however long it takes, independent of this handler's lifetime.
	h.Tasks.Submit("workflow-"+workflowID, func(ctx context.Context) {
		pipeline.Run(ctx, workflowID, req, filename)
	})

	log.Info().Str("workflow_id", workflowID).Str("filename", filename).Msg("Workflow accepted")

	respondJSON(w, http.StatusOK, models.WorkflowStarted{
		Status:           models.WorkflowStatusStarted,
		Message:          "Intelligent workflow initiated. Report will be generated and uploaded if configured.",
		WorkflowID:       workflowID,
		ExpectedFilename: filename,
		Timestamp:        time.Now().UTC(),
		DebugInfo: models.WorkflowDebugInfo{
			HasAnalyticsEngine: h.Engine != nil,
			HasReportGenerator: h.Generator != nil,
			HasEmailService:    h.emailAvailable(),
			HasAIServices:      h.AI.FoundryAvailable(),
			HasGraphClient:     h.AI.GraphAvailable(),
			EmailRecipients:    len(req.EmailRecipients),
		},
	})
}

// ── Capabilities ─────────────────────────────────────────────

// Capabilities handles GET /api/fabric/capabilities with a static
// description of what the analytics surface can do.
func (h *Handlers) Capabilities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"capabilities": "Natural language query analysis with KQL persistence",
		"example_questions": []string{
			"What is the average cyber risk score?",
			"Show critical vulnerabilities (CVSS >= 7.0)",
			"Count unpatched devices by type",
			"Show login failure trends over time",
			"What are their departments?",
		},
		"calculation_features": []string{
			"SQL-based stats",
			"Aggregations and percentages",
			"Dynamic risk scores",
			"Trend analysis",
			"Group-based comparisons",
			"Real-time metrics",
		},
		"intelligence_features": []string{
			"Natural language understanding",
			"Context-aware answers",
			"Proactive suggestions",
			"Detailed explanations",
			"Business insights",
		},
		"visualization_features": []string{
			"Smart chart generation",
			"Bar charts for comparisons",
			"Line charts for trends",
			"Pie charts for distributions",
			"Stacked bars for grouped data",
		},
	})
}

// ── Health ───────────────────────────────────────────────────

// Health handles GET /health, reporting collaborator availability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"services": map[string]bool{
			"analytics_engine": h.Engine != nil,
			"report_generator": h.Generator != nil,
			"email_service":    h.emailAvailable(),
			"ai_foundry":       h.AI.FoundryAvailable(),
			"graph_api":        h.AI.GraphAvailable(),
			"upload_target":    h.Uploader != nil,
		},
		"features": []string{
			"Natural language processing",
			"AI-powered analysis",
			"Email notifications",
			"Professional report generation",
		},
	})
}

// ── Helpers ──────────────────────────────────────────────────

// emailAvailable tolerates a nil interface as well as a nil client.
func (h *Handlers) emailAvailable() bool {
	return h.Email != nil && h.Email.Available()
}

// preview truncates to n characters, never mid-rune.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
