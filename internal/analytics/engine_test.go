package analytics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/insightforge/fabric-analytics/internal/analytics"
	"github.com/insightforge/fabric-analytics/internal/config"
)

func engineFor(t *testing.T, srv *httptest.Server) *analytics.FabricEngine {
	t.Helper()
	eng := analytics.NewFabricEngine(&config.Config{
		Engine: config.EngineConfig{URL: srv.URL, Timeout: 5 * time.Second},
	}, nil)
	if eng == nil {
		t.Fatal("engine should be constructed when URL is set")
	}
	return eng
}

func TestNewFabricEngine_NilWithoutURL(t *testing.T) {
	eng := analytics.NewFabricEngine(&config.Config{}, nil)
	if eng != nil {
		t.Error("engine should be nil when no URL is configured")
	}
}

func TestAnalyze_ForwardsQuestionAndSession(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("path = %q, want /analyze", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"analysis":     "12 devices",
			"result_count": 12,
		})
	}))
	defer srv.Close()

	eng := engineFor(t, srv)
	result, err := eng.Analyze(context.Background(), "count devices", "powerbi_20250101_7", true)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if got["question"] != "count devices" {
		t.Errorf("question = %v", got["question"])
	}
	if got["session_id"] != "powerbi_20250101_7" {
		t.Errorf("session_id = %v", got["session_id"])
	}
	if got["enable_ai_insights"] != true {
		t.Errorf("enable_ai_insights = %v, want true", got["enable_ai_insights"])
	}
	if _, present := got["return_raw_data"]; present {
		t.Errorf("return_raw_data sent on the interactive path")
	}
	if result.Analysis() != "12 devices" {
		t.Errorf("analysis = %q", result.Analysis())
	}
	if result.ResultCount() != 12 {
		t.Errorf("result_count = %d, want 12", result.ResultCount())
	}
}

func TestAnalyzeForReport_RequestsRawData(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sample_data": []map[string]interface{}{{"id": 1}},
		})
	}))
	defer srv.Close()

	eng := engineFor(t, srv)
	result, err := eng.AnalyzeForReport(context.Background(), "top threats", false)
	if err != nil {
		t.Fatalf("AnalyzeForReport: %v", err)
	}

	if got["return_raw_data"] != true {
		t.Errorf("return_raw_data = %v, want true", got["return_raw_data"])
	}
	if len(result.SampleData()) != 1 {
		t.Errorf("sample rows = %d, want 1", len(result.SampleData()))
	}
}

func TestAnalyze_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	eng := engineFor(t, srv)
	if _, err := eng.Analyze(context.Background(), "count devices", "s", false); err == nil {
		t.Error("expected error for HTTP 500 from the engine")
	}
}

func TestAnalyze_NullBodyYieldsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	eng := engineFor(t, srv)
	result, err := eng.Analyze(context.Background(), "count devices", "s", false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result == nil {
		t.Fatal("result is nil, want an empty map callers can augment")
	}
	result["session_id"] = "s"
}

func TestAnalyze_EmbeddedErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "column not found"})
	}))
	defer srv.Close()

	eng := engineFor(t, srv)
	result, err := eng.Analyze(context.Background(), "count devices", "s", false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	msg, failed := result.Err()
	if !failed || msg != "column not found" {
		t.Errorf("embedded error = (%q, %v), want engine's error text", msg, failed)
	}
}
