package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Fabric Insights service.
type Config struct {
	Port      int
	Version   string
	Engine    EngineConfig
	OpenAI    OpenAIConfig
	Graph     GraphConfig
	Storage   StorageConfig
	Report    ReportConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

// EngineConfig points at the external Fabric analytics query service.
type EngineConfig struct {
	URL     string
	Timeout time.Duration
}

// OpenAIConfig configures the AI-insights client. Provider is "azure" or
// "openai". Foundry features are disabled when Endpoint is empty.
type OpenAIConfig struct {
	Provider   string
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
}

// GraphConfig holds Microsoft Graph credentials for email delivery.
// Email features are disabled unless all three credentials are set.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string
}

// StorageConfig selects and configures the report upload target.
// Target is "sharepoint" or "azure".
type StorageConfig struct {
	Target string

	// SharePoint (Graph drive upload)
	SPTenantID     string
	SPClientID     string
	SPClientSecret string
	SPSiteID       string
	SPDriveID      string

	// Azure Blob
	BlobAccount   string
	BlobKey       string
	BlobContainer string
	BlobPrefix    string
}

// ReportConfig points at the external PDF renderer service.
type ReportConfig struct {
	URL     string
	Timeout time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// RateLimitConfig bounds the workflow endpoint per client address.
type RateLimitConfig struct {
	WorkflowPerMinute int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("FABRIC_INSIGHTS_PORT", 8080),
		Version: envStr("FABRIC_INSIGHTS_VERSION", "0.4.0"),
		Engine: EngineConfig{
			URL:     envStr("FABRIC_ENGINE_URL", ""),
			Timeout: envDuration("FABRIC_ENGINE_TIMEOUT", 60*time.Second),
		},
		OpenAI: OpenAIConfig{
			Provider:   envStr("OPENAI_PROVIDER", "azure"),
			Endpoint:   envStr("AZURE_OPENAI_ENDPOINT", ""),
			APIKey:     envStr("AZURE_OPENAI_API_KEY", ""),
			APIVersion: envStr("AZURE_OPENAI_API_VERSION", "2024-06-01"),
			Deployment: envStr("AZURE_OPENAI_DEPLOYMENT", ""),
		},
		Graph: GraphConfig{
			TenantID:     envStr("GRAPH_TENANT_ID", ""),
			ClientID:     envStr("GRAPH_CLIENT_ID", ""),
			ClientSecret: envStr("GRAPH_CLIENT_SECRET", ""),
			Sender:       envStr("GRAPH_SENDER", ""),
		},
		Storage: StorageConfig{
			Target:         envStr("STORAGE_TARGET", "sharepoint"),
			SPTenantID:     envStr("SHAREPOINT_TENANT_ID", ""),
			SPClientID:     envStr("SHAREPOINT_CLIENT_ID", ""),
			SPClientSecret: envStr("SHAREPOINT_CLIENT_SECRET", ""),
			SPSiteID:       envStr("SHAREPOINT_SITE_ID", ""),
			SPDriveID:      envStr("SHAREPOINT_DOCUMENT_LIBRARY_ID", ""),
			BlobAccount:    envStr("AZURE_STORAGE_ACCOUNT", ""),
			BlobKey:        envStr("AZURE_STORAGE_KEY", ""),
			BlobContainer:  envStr("AZURE_BLOB_CONTAINER", ""),
			BlobPrefix:     envStr("AZURE_BLOB_PREFIX", "reports"),
		},
		Report: ReportConfig{
			URL:     envStr("REPORT_RENDERER_URL", ""),
			Timeout: envDuration("REPORT_RENDERER_TIMEOUT", 120*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "fabric-insights"),
		},
		RateLimit: RateLimitConfig{
			WorkflowPerMinute: envInt("WORKFLOW_RATE_LIMIT", 5),
		},
	}
}

// GraphConfigured reports whether all Graph email credentials are present.
func (c *Config) GraphConfigured() bool {
	g := c.Graph
	return g.TenantID != "" && g.ClientID != "" && g.ClientSecret != ""
}

// FoundryConfigured reports whether the AI-insights client can be built.
func (c *Config) FoundryConfigured() bool {
	return c.OpenAI.Endpoint != "" && c.OpenAI.APIKey != "" && c.OpenAI.Deployment != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
