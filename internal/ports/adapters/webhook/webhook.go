// Package webhook posts job lifecycle notifications to an external
// automation endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const signatureHeader = "X-Reelstitch-Signature"

type Adapter struct {
	url    string
	secret string
	client *http.Client
	now    func() time.Time
}

func New(url, secret string) *Adapter {
	return &Adapter{
		url:    strings.TrimSpace(url),
		secret: secret,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// Notify posts {event, timestamp, data} as JSON. When a secret is
// configured the body is signed with HMAC-SHA256. A non-2xx response is
// an error; callers decide whether delivery failure is fatal.
func (a *Adapter) Notify(ctx context.Context, event string, data map[string]any) error {
	if a.url == "" {
		return nil
	}
	payload := map[string]any{
		"event":     event,
		"timestamp": a.now().UTC().Format(time.RFC3339),
		"data":      data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.secret != "" {
		req.Header.Set(signatureHeader, sign(a.secret, body))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
