// Package notify sends email notifications through the Microsoft Graph
// API using client-credential auth.
//
// Delivery is best-effort: callers that schedule a notification in the
// background never see a failure, they only see log output. The client
// retries transient HTTP failures a fixed number of times and gives up.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/insightforge/fabric-analytics/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	loginBase = "https://login.microsoftonline.com"
	graphBase = "https://graph.microsoft.com/v1.0"

	maxAttempts = 3
)

// EmailClient sends notification and report emails via Graph sendMail.
type EmailClient struct {
	cfg    config.GraphConfig
	client *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewEmailClient builds the Graph email client, or nil when the Graph
// credentials are incomplete. A nil client disables email features.
func NewEmailClient(cfg *config.Config) *EmailClient {
	if !cfg.GraphConfigured() {
		log.Info().Msg("Graph credentials not complete, email features disabled")
		return nil
	}
	return &EmailClient{
		cfg: cfg.Graph,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Available reports whether the client can send email.
func (c *EmailClient) Available() bool {
	return c != nil
}

// SendNotification sends a simple HTML notification email without
// attachments.
func (c *EmailClient) SendNotification(ctx context.Context, recipients []string, subject, htmlBody string) error {
	return c.sendMail(ctx, graphMessage{
		Subject:      subject,
		Body:         graphBody{ContentType: "HTML", Content: htmlBody},
		ToRecipients: toRecipients(recipients),
	})
}

// SendReport sends an HTML email with the report attached.
func (c *EmailClient) SendReport(ctx context.Context, recipients []string, subject, htmlBody string, report []byte, filename string) error {
	return c.sendMail(ctx, graphMessage{
		Subject:      subject,
		Body:         graphBody{ContentType: "HTML", Content: htmlBody},
		ToRecipients: toRecipients(recipients),
		Attachments: []graphAttachment{{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         filename,
			ContentBytes: base64.StdEncoding.EncodeToString(report),
		}},
	})
}

// ── Graph wire types ─────────────────────────────────────────

type graphMessage struct {
	Subject      string            `json:"subject"`
	Body         graphBody         `json:"body"`
	ToRecipients []graphRecipient  `json:"toRecipients"`
	Attachments  []graphAttachment `json:"attachments,omitempty"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress graphAddress `json:"emailAddress"`
}

type graphAddress struct {
	Address string `json:"address"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentBytes string `json:"contentBytes"`
}

func toRecipients(recipients []string) []graphRecipient {
	out := make([]graphRecipient, 0, len(recipients))
	for _, addr := range recipients {
		if addr == "" {
			continue
		}
		out = append(out, graphRecipient{EmailAddress: graphAddress{Address: addr}})
	}
	return out
}

// ── Transport ────────────────────────────────────────────────

func (c *EmailClient) sendMail(ctx context.Context, msg graphMessage) error {
	if !c.Available() {
		return fmt.Errorf("graph email client not configured")
	}

	body, err := json.Marshal(map[string]interface{}{"message": msg})
	if err != nil {
		return fmt.Errorf("marshal sendMail payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", graphBase, url.PathEscape(c.cfg.Sender))

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}

		token, err := c.token(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build sendMail request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			log.Info().Int("recipients", len(msg.ToRecipients)).Str("subject", msg.Subject).Msg("Email dispatched via Graph")
			return nil
		}
		lastErr = fmt.Errorf("graph sendMail HTTP %d", resp.StatusCode)
	}
	return fmt.Errorf("sendMail failed after %d attempts: %w", maxAttempts, lastErr)
}

// token returns a cached client-credentials access token, refreshing it
// shortly before expiry.
func (c *EmailClient) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {"https://graph.microsoft.com/.default"},
	}

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", loginBase, url.PathEscape(c.cfg.TenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint HTTP %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
