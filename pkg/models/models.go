// Package models defines the request and response shapes exchanged over
// the Fabric Insights HTTP API, plus the open-shaped analytics engine
// result that flows through the orchestration layer.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ── Request Models ───────────────────────────────────────────

// emailPattern matches a standard local@domain.tld address. The final
// domain label must be at least two letters.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IntelligentRequest is the body of POST /api/fabric/intelligent.
type IntelligentRequest struct {
	Question                string   `json:"question"`
	EnableAIInsights        *bool    `json:"enable_ai_insights,omitempty"`
	EnableEmailNotification bool     `json:"enable_email_notification,omitempty"`
	EmailRecipients         []string `json:"email_recipients,omitempty"`
}

// Validate checks the request and normalizes it in place. The question is
// trimmed before storage; after a successful Validate the question is
// always non-empty.
func (r *IntelligentRequest) Validate() error {
	r.Question = strings.TrimSpace(r.Question)
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if len(r.Question) < 2 {
		return fmt.Errorf("question is too short; please provide more details")
	}
	return nil
}

// AIInsights reports whether AI insights were requested. Defaults to true
// when the field is absent from the request body.
func (r *IntelligentRequest) AIInsights() bool {
	if r.EnableAIInsights == nil {
		return true
	}
	return *r.EnableAIInsights
}

// ReportRequest is the body of POST /api/intelligent-workflow.
type ReportRequest struct {
	DataQuery         string   `json:"data_query"`
	ReportType        string   `json:"report_type,omitempty"`   // executive, detailed, summary
	ReportFormat      string   `json:"report_format,omitempty"` // pdf, excel
	EmailRecipients   []string `json:"email_recipients"`
	SubjectHint       string   `json:"subject_hint,omitempty"`
	IncludeAIAnalysis *bool    `json:"include_ai_analysis,omitempty"`
}

// Validate checks the request and applies defaults. Every recipient must
// be a well-formed address; the first invalid one is named in the error.
func (r *ReportRequest) Validate() error {
	r.DataQuery = strings.TrimSpace(r.DataQuery)
	if r.DataQuery == "" {
		return fmt.Errorf("data_query cannot be empty")
	}
	if len(r.EmailRecipients) == 0 {
		return fmt.Errorf("at least one email recipient is required")
	}
	for _, email := range r.EmailRecipients {
		if !emailPattern.MatchString(email) {
			return fmt.Errorf("invalid email address: %s", email)
		}
	}
	if r.ReportType == "" {
		r.ReportType = "executive"
	}
	if r.ReportFormat == "" {
		r.ReportFormat = "pdf"
	}
	return nil
}

// AIAnalysis reports whether AI-enhanced analysis was requested.
// Defaults to true when the field is absent.
func (r *ReportRequest) AIAnalysis() bool {
	if r.IncludeAIAnalysis == nil {
		return true
	}
	return *r.IncludeAIAnalysis
}

// ReportTitle derives the report title from the report type,
// e.g. "executive" → "Executive Report".
func (r *ReportRequest) ReportTitle() string {
	t := r.ReportType
	if t == "" {
		t = "executive"
	}
	return strings.ToUpper(t[:1]) + t[1:] + " Report"
}

// ── Engine Result ────────────────────────────────────────────

// ResponseTypeConversational marks a free-text chat answer from the
// engine, as opposed to a structured data/report result.
const ResponseTypeConversational = "conversational"

// Result is the open-shaped analytics engine result. The engine owns the
// schema; this layer only reads a handful of well-known keys and passes
// the rest through to the caller untouched.
type Result map[string]interface{}

// Err returns the engine's embedded error text, if any.
func (r Result) Err() (string, bool) {
	v, ok := r["error"]
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// ResponseType returns the engine's response kind ("conversational",
// "data", ...). Empty when the engine did not set one.
func (r Result) ResponseType() string {
	s, _ := r["response_type"].(string)
	return s
}

// Conversational reports whether this is a free-text chat answer.
func (r Result) Conversational() bool {
	return r.ResponseType() == ResponseTypeConversational
}

// ResultCount returns the number of records the engine reported.
func (r Result) ResultCount() int {
	switch v := r["result_count"].(type) {
	case int:
		return v
	case float64: // JSON numbers decode as float64
		return int(v)
	}
	return 0
}

// Analysis returns the engine's generic analysis text.
func (r Result) Analysis() string {
	s, _ := r["analysis"].(string)
	return s
}

// EnhancedAnalysis returns the AI-enhanced analysis text and whether the
// engine produced one.
func (r Result) EnhancedAnalysis() (string, bool) {
	s, ok := r["enhanced_analysis"].(string)
	return s, ok
}

// AIInsights returns the engine's AI insight text.
func (r Result) AIInsights() string {
	s, _ := r["ai_insights"].(string)
	return s
}

// SampleData returns the raw records attached to the result.
func (r Result) SampleData() []map[string]interface{} {
	switch v := r["sample_data"].(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		rows := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				rows = append(rows, m)
			}
		}
		return rows
	}
	return nil
}

// ── Response Envelopes ───────────────────────────────────────

// FeaturesEnabled reports which optional capabilities applied to a single
// analyze call, included in every analyze response.
type FeaturesEnabled struct {
	AIInsights         bool `json:"ai_insights"`
	EmailNotification  bool `json:"email_notification"`
	AIFoundryAvailable bool `json:"ai_foundry_available"`
	GraphAPIAvailable  bool `json:"graph_api_available"`
	ChatContext        bool `json:"chat_context"`
}

// WorkflowDebugInfo reports which collaborators were configured when a
// workflow was accepted, for operator troubleshooting.
type WorkflowDebugInfo struct {
	HasAnalyticsEngine bool `json:"has_analytics_engine"`
	HasReportGenerator bool `json:"has_report_generator"`
	HasEmailService    bool `json:"has_email_service"`
	HasAIServices      bool `json:"has_ai_services"`
	HasGraphClient     bool `json:"has_graph_client"`
	EmailRecipients    int  `json:"email_recipients"`
}

// WorkflowStatusStarted is the only status the workflow endpoint returns.
// The background pipeline reports nothing further to the caller.
const WorkflowStatusStarted = "workflow_started"

// WorkflowStarted is the synchronous response of the workflow endpoint.
type WorkflowStarted struct {
	Status           string            `json:"status"`
	Message          string            `json:"message"`
	WorkflowID       string            `json:"workflow_id"`
	ExpectedFilename string            `json:"expected_filename"`
	Timestamp        time.Time         `json:"timestamp"`
	DebugInfo        WorkflowDebugInfo `json:"debug_info"`
}
