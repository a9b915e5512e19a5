package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	xerrors "github.com/reelforge/reelforge-api/errors"
)

const visionCallTimeout = 60 * time.Second

// VisionClient calls the image captioning capability. The image may be either
// a base64 data URL or a plain HTTP image URL; the endpoint accepts both
// forms indistinguishably.
type VisionClient struct {
	Endpoint   *url.URL
	APIKey     string
	Model      string
	httpClient *http.Client
}

func NewVisionClient(endpoint *url.URL, apiKey, model string) *VisionClient {
	return &VisionClient{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		Model:      model,
		httpClient: &http.Client{Timeout: visionCallTimeout},
	}
}

func (c *VisionClient) IsConfigured() bool {
	return c != nil && c.Endpoint != nil
}

type CaptionResult struct {
	Text  string     `json:"text"`
	Model string     `json:"model"`
	Usage TokenUsage `json:"usage"`
}

func (c *VisionClient) CaptionImage(requestID, image, prompt string) (CaptionResult, error) {
	if !c.IsConfigured() {
		return CaptionResult{}, xerrors.Wrap(xerrors.KindDependencyUnavailable, fmt.Errorf("vision endpoint is not configured"))
	}

	body, err := json.Marshal(map[string]string{
		"model":  c.Model,
		"image":  image,
		"prompt": prompt,
	})
	if err != nil {
		return CaptionResult{}, fmt.Errorf("error marshalling caption request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.Endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return CaptionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CaptionResult{}, xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error calling vision endpoint: %w", err))
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CaptionResult{}, xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error reading vision response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return CaptionResult{}, xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("vision endpoint returned status %d: %s", resp.StatusCode, respBody))
	}

	var result CaptionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return CaptionResult{}, xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error parsing vision response: %w", err))
	}
	return result, nil
}
