package session_test

import (
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/insightforge/fabric-analytics/internal/session"
)

var idPattern = regexp.MustCompile(`^powerbi_\d{8}_\d+$`)

func TestNewID(t *testing.T) {
	id := session.NewID()
	if !idPattern.MatchString(id) {
		t.Errorf("NewID() = %q, want powerbi_<date>_<millis>", id)
	}
	if !strings.Contains(id, time.Now().Format("20060102")) {
		t.Errorf("NewID() = %q, want today's date stamp", id)
	}
}

func TestFromToken_ReusesPrefixedToken(t *testing.T) {
	token := "powerbi_20250101_1735689600000"
	if got := session.FromToken(token); got != token {
		t.Errorf("FromToken(%q) = %q, want token reused", token, got)
	}
}

func TestFromToken_NewMintsFresh(t *testing.T) {
	got := session.FromToken("new")
	if !idPattern.MatchString(got) {
		t.Errorf("FromToken(new) = %q, want freshly minted ID", got)
	}
}

func TestFromToken_FallsBackToDailyDefault(t *testing.T) {
	want := "powerbi_" + time.Now().Format("20060102") + "_default"
	for _, token := range []string{"", "garbage", "session-123"} {
		if got := session.FromToken(token); got != want {
			t.Errorf("FromToken(%q) = %q, want %q", token, got, want)
		}
	}
}

func TestFromRequest_QueryBeatsHeader(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/fabric/intelligent?session=powerbi_20250101_1", nil)
	r.Header.Set("X-Session-Id", "powerbi_20250101_2")
	if got := session.FromRequest(r); got != "powerbi_20250101_1" {
		t.Errorf("FromRequest() = %q, want query value", got)
	}
}

func TestFromRequest_HeaderFallback(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/fabric/intelligent", nil)
	r.Header.Set("X-Session-Id", "powerbi_20250101_2")
	if got := session.FromRequest(r); got != "powerbi_20250101_2" {
		t.Errorf("FromRequest() = %q, want header value", got)
	}
}
