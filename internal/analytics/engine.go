// Package analytics is the client side of the external Fabric analytics
// engine. Query planning and execution live in the engine service; this
// package forwards questions, decodes the open-shaped result, and layers
// optional AI insight enrichment on top.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/insightforge/fabric-analytics/internal/ai"
	"github.com/insightforge/fabric-analytics/internal/config"
	"github.com/insightforge/fabric-analytics/pkg/models"
	"github.com/rs/zerolog/log"
)

// Engine is the consumed analytics contract. Analyze serves the
// interactive path with conversational session context; AnalyzeForReport
// serves the workflow path and always requests raw rows alongside the
// analysis text.
type Engine interface {
	Analyze(ctx context.Context, question, sessionID string, enableAIInsights bool) (models.Result, error)
	AnalyzeForReport(ctx context.Context, query string, includeAIAnalysis bool) (models.Result, error)
}

// analyzePayload is the wire request for the engine's /analyze endpoint.
type analyzePayload struct {
	Question         string `json:"question"`
	SessionID        string `json:"session_id,omitempty"`
	EnableAIInsights bool   `json:"enable_ai_insights"`
	ReturnRawData    bool   `json:"return_raw_data,omitempty"`
}

// FabricEngine talks HTTP to the Fabric analytics query service.
type FabricEngine struct {
	baseURL string
	client  *http.Client
	ai      *ai.Manager
}

// NewFabricEngine builds the engine client, or nil when no engine URL is
// configured. A nil engine surfaces as "service unavailable" at the API.
func NewFabricEngine(cfg *config.Config, aiMgr *ai.Manager) *FabricEngine {
	if cfg.Engine.URL == "" {
		return nil
	}
	return &FabricEngine{
		baseURL: cfg.Engine.URL,
		client:  &http.Client{Timeout: cfg.Engine.Timeout},
		ai:      aiMgr,
	}
}

// Analyze forwards the question with its session context and enriches the
// result with AI insights when requested and available.
func (e *FabricEngine) Analyze(ctx context.Context, question, sessionID string, enableAIInsights bool) (models.Result, error) {
	result, err := e.call(ctx, analyzePayload{
		Question:         question,
		SessionID:        sessionID,
		EnableAIInsights: enableAIInsights,
	})
	if err != nil {
		return nil, err
	}

	if enableAIInsights && e.enrichable(result) && result.AIInsights() == "" {
		if insights, err := e.ai.GenerateInsights(ctx, question, result.SampleData()); err != nil {
			log.Warn().Err(err).Msg("AI insight enrichment failed, returning engine result as-is")
		} else {
			result["ai_insights"] = insights
		}
	}
	return result, nil
}

// AnalyzeForReport requests raw rows for report generation. When AI
// analysis is requested, the enriched text lands in enhanced_analysis for
// the report pipeline to prefer.
func (e *FabricEngine) AnalyzeForReport(ctx context.Context, query string, includeAIAnalysis bool) (models.Result, error) {
	result, err := e.call(ctx, analyzePayload{
		Question:         query,
		EnableAIInsights: includeAIAnalysis,
		ReturnRawData:    true,
	})
	if err != nil {
		return nil, err
	}

	if _, ok := result.EnhancedAnalysis(); includeAIAnalysis && !ok && e.enrichable(result) {
		if insights, err := e.ai.GenerateInsights(ctx, query, result.SampleData()); err != nil {
			log.Warn().Err(err).Msg("AI analysis enrichment failed, report will use engine analysis")
		} else {
			result["enhanced_analysis"] = insights
		}
	}
	return result, nil
}

// enrichable reports whether a result is worth sending to the LLM:
// a successful, non-conversational result with the foundry configured.
func (e *FabricEngine) enrichable(result models.Result) bool {
	if !e.ai.FoundryAvailable() || result.Conversational() {
		return false
	}
	_, failed := result.Err()
	return !failed
}

func (e *FabricEngine) call(ctx context.Context, payload analyzePayload) (models.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal engine request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("engine returned HTTP %d", resp.StatusCode)
	}

	var result models.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode engine result: %w", err)
	}
	// A JSON null body decodes to a nil map; callers augment the result
	// in place and need a real one.
	if result == nil {
		result = models.Result{}
	}
	return result, nil
}
