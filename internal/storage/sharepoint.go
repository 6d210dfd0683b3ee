package storage

import (
	"bytes"
	"context"
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
	spLoginBase = "https://login.microsoftonline.com"
	spGraphBase = "https://graph.microsoft.com/v1.0"

	uploadAttempts   = 3
	uploadRetryDelay = 5 * time.Second
)

// SharePointUploader puts report files into a SharePoint document library
// through the Graph drive API.
type SharePointUploader struct {
	cfg    config.StorageConfig
	client *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewSharePointUploader builds the uploader from config, failing when any
// SharePoint credential or target identifier is missing.
func NewSharePointUploader(cfg config.StorageConfig) (*SharePointUploader, error) {
	if cfg.SPTenantID == "" || cfg.SPClientID == "" || cfg.SPClientSecret == "" || cfg.SPSiteID == "" || cfg.SPDriveID == "" {
		return nil, fmt.Errorf("SHAREPOINT_TENANT_ID/CLIENT_ID/CLIENT_SECRET/SITE_ID/DOCUMENT_LIBRARY_ID required for sharepoint target")
	}
	return &SharePointUploader{
		cfg: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (u *SharePointUploader) Name() string {
	return "sharepoint"
}

// Upload puts the document into the configured drive, retrying transient
// failures a fixed number of times.
func (u *SharePointUploader) Upload(ctx context.Context, data []byte, filename string) error {
	clean := cleanFilename(filename)
	uploadURL := fmt.Sprintf("%s/sites/%s/drives/%s/root:/%s:/content",
		spGraphBase, url.PathEscape(u.cfg.SPSiteID), url.PathEscape(u.cfg.SPDriveID), url.PathEscape(clean))

	var lastErr error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		if attempt > 1 {
			log.Warn().Err(lastErr).Int("attempt", attempt-1).Str("filename", clean).Msg("SharePoint upload retrying")
			time.Sleep(uploadRetryDelay)
		}

		token, err := u.token(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("build upload request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := u.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			log.Info().Str("filename", clean).Msg("Report uploaded to SharePoint")
			return nil
		}
		lastErr = fmt.Errorf("sharepoint upload HTTP %d", resp.StatusCode)
	}
	return fmt.Errorf("sharepoint upload failed after %d attempts: %w", uploadAttempts, lastErr)
}

// cleanFilename normalizes a filename for the Graph drive path and makes
// sure the pdf extension is present.
func cleanFilename(name string) string {
	clean := strings.ReplaceAll(name, " ", "_")
	clean = strings.ReplaceAll(clean, ":", "-")
	if !strings.Contains(clean, ".") {
		clean += ".pdf"
	}
	return clean
}

func (u *SharePointUploader) token(ctx context.Context) (string, error) {
	u.tokenMu.Lock()
	defer u.tokenMu.Unlock()

	if u.accessToken != "" && time.Now().Before(u.tokenExpiry.Add(-time.Minute)) {
		return u.accessToken, nil
	}

	form := url.Values{
		"client_id":     {u.cfg.SPClientID},
		"client_secret": {u.cfg.SPClientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {"https://graph.microsoft.com/.default"},
	}

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", spLoginBase, url.PathEscape(u.cfg.SPTenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
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

	u.accessToken = tok.AccessToken
	u.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return u.accessToken, nil
}
