// Package ai manages the optional AI service capabilities: the Azure
// OpenAI insights client ("AI foundry") and the Microsoft Graph
// availability flag that gates email features.
//
// Both capabilities are optional. The manager is always constructed; each
// capability exposes an availability query that handlers check before
// taking the conditional feature path.
package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/insightforge/fabric-analytics/internal/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

const insightSystemPrompt = "You are a helpful, friendly AI assistant with expertise in data analysis."

// maxInsightRows bounds how much raw data is inlined into the prompt.
const maxInsightRows = 20

// Manager holds the optional AI collaborator handles.
type Manager struct {
	client     *openai.Client
	deployment string
	graphReady bool
}

// NewManager builds the manager from config. A missing OpenAI endpoint or
// Graph credential set disables the respective capability rather than
// failing construction.
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		graphReady: cfg.GraphConfigured(),
	}

	if !cfg.FoundryConfigured() {
		log.Info().Msg("AI foundry endpoint not set, insight features disabled")
		return m
	}

	oc := cfg.OpenAI
	switch oc.Provider {
	case "azure":
		m.client = openai.NewClient(
			azure.WithEndpoint(oc.Endpoint, oc.APIVersion),
			azure.WithAPIKey(oc.APIKey),
		)
	default: // "openai"
		m.client = openai.NewClient(
			option.WithAPIKey(oc.APIKey),
			option.WithBaseURL(oc.Endpoint),
		)
	}
	m.deployment = oc.Deployment

	log.Info().Str("provider", oc.Provider).Str("deployment", oc.Deployment).Msg("AI insights client initialized")
	return m
}

// FoundryAvailable reports whether the AI-insights client is configured.
func (m *Manager) FoundryAvailable() bool {
	return m != nil && m.client != nil
}

// GraphAvailable reports whether Graph email credentials are configured.
func (m *Manager) GraphAvailable() bool {
	return m != nil && m.graphReady
}

// GenerateInsights asks the LLM for business insights over the question
// and a bounded sample of the result rows.
func (m *Manager) GenerateInsights(ctx context.Context, question string, rows []map[string]interface{}) (string, error) {
	if !m.FoundryAvailable() {
		return "", fmt.Errorf("AI insights client not configured")
	}

	if len(rows) > maxInsightRows {
		rows = rows[:maxInsightRows]
	}
	sample, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal sample rows: %w", err)
	}

	prompt := fmt.Sprintf(
		"Question: %s\n\nResult sample (%d rows shown):\n%s\n\nProvide concise business insights about these results.",
		question, len(rows), sample,
	)

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.F(m.deployment),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(insightSystemPrompt),
			openai.UserMessage(prompt),
		}),
		Temperature: openai.F(0.1),
		MaxTokens:   openai.F(int64(1000)),
	})
	if err != nil {
		return "", fmt.Errorf("insight completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("insight completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
