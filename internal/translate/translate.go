// Package translate talks to the Microsoft Translator text API.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultEndpoint = "https://api.cognitive.microsofttranslator.com"
	DefaultRegion   = "westus2"
)

// ErrNotConfigured is returned by a Microsoft translator built without a key.
var ErrNotConfigured = errors.New("translate: the translation service is not configured")

// Translator turns text in one language into another.
type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage, destLanguage string) (string, error)
}

type Microsoft struct {
	Key      string
	Region   string
	Endpoint string
	Client   *http.Client
}

func NewMicrosoft(key, region, endpoint string) *Microsoft {
	if region == "" {
		region = DefaultRegion
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Microsoft{
		Key:      key,
		Region:   region,
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type requestItem struct {
	Text string `json:"Text"`
}

type responseItem struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

// Translate posts text to the v3 /translate endpoint and returns the first
// translation. Non-200 answers are returned as errors.
func (m *Microsoft) Translate(ctx context.Context, text, sourceLanguage, destLanguage string) (string, error) {
	if m.Key == "" {
		return "", ErrNotConfigured
	}

	q := url.Values{}
	q.Set("api-version", "3.0")
	q.Set("from", sourceLanguage)
	q.Set("to", destLanguage)
	u := m.Endpoint + "/translate?" + q.Encode()

	body, err := json.Marshal([]requestItem{{Text: text}})
	if err != nil {
		return "", fmt.Errorf("encode translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", m.Key)
	req.Header.Set("Ocp-Apim-Subscription-Region", m.Region)

	resp, err := m.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translate: service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out []responseItem
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if len(out) == 0 || len(out[0].Translations) == 0 {
		return "", errors.New("translate: empty response")
	}
	return out[0].Translations[0].Text, nil
}
