// Package voicesynth is the HTTP client for the external voice-cloning
// TTS service that narrates assembled videos.
package voicesynth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const synthesizePath = "/synthesize/clone_voice"

type Adapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(baseURL, apiKey string) *Adapter {
	return &Adapter{
		baseURL: normalizeBaseURL(baseURL),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 8 * time.Minute},
	}
}

// Synthesize posts the script text and streams the returned audio bytes
// to outPath. A non-audio response or an empty result is an error.
func (a *Adapter) Synthesize(ctx context.Context, text, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("voice synthesis text is empty")
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal synthesis request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+synthesizePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("voiceover request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("voiceover service status %d: %s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}
	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(ctype, "audio/") && ctype != "application/octet-stream" {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("voiceover service returned non-audio response (content-type %q): %s", ctype, strings.TrimSpace(string(rb)))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(outPath)
		return fmt.Errorf("write voiceover audio: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(outPath)
		return closeErr
	}
	if n == 0 {
		os.Remove(outPath)
		return errors.New("voiceover audio generated is empty")
	}
	return nil
}

func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}
