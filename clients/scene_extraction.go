package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
)

const sceneExtractionMaxWait = 5 * time.Minute

// SceneExtractionClient drives the external scene detection capability, which
// runs asynchronously: start an extraction, then poll until it completes.
type SceneExtractionClient struct {
	Endpoint   *url.URL
	APIKey     string
	httpClient *http.Client
}

func NewSceneExtractionClient(endpoint *url.URL, apiKey string) *SceneExtractionClient {
	return &SceneExtractionClient{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *SceneExtractionClient) IsConfigured() bool {
	return c != nil && c.Endpoint != nil
}

type SceneExtractionRequest struct {
	VideoURL         string         `json:"video_url"`
	ExtractionType   string         `json:"extraction_type"`
	ExtractionConfig map[string]any `json:"extraction_config,omitempty"`
	Prompt           string         `json:"prompt,omitempty"`
}

type ExtractedScene struct {
	Start       float64        `json:"start"`
	End         float64        `json:"end"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type sceneExtractionStatus struct {
	JobID  string           `json:"job_id"`
	Status string           `json:"status"`
	Error  string           `json:"error,omitempty"`
	Scenes []ExtractedScene `json:"scenes,omitempty"`
}

// StartExtraction submits an extraction and returns the capability's job ID.
func (c *SceneExtractionClient) StartExtraction(requestID string, req SceneExtractionRequest) (string, error) {
	if !c.IsConfigured() {
		return "", xerrors.Wrap(xerrors.KindDependencyUnavailable, fmt.Errorf("scene extraction endpoint is not configured"))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequest(http.MethodPost, c.Endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error starting scene extraction: %w", err))
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", xerrors.Wrap(xerrors.KindDependencyFailure, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("scene extraction returned status %d: %s", resp.StatusCode, respBody))
	}

	var status sceneExtractionStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return "", xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error parsing scene extraction response: %w", err))
	}
	if status.JobID == "" {
		return "", xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("scene extraction returned no job id"))
	}
	return status.JobID, nil
}

// AwaitExtraction polls the extraction job with exponential backoff until it
// completes, fails, or the 5 minute deadline runs out.
func (c *SceneExtractionClient) AwaitExtraction(requestID, extractionJobID string) ([]ExtractedScene, error) {
	var scenes []ExtractedScene
	operation := func() error {
		statusURL := fmt.Sprintf("%s/%s", c.Endpoint.String(), extractionJobID)
		httpReq, err := http.NewRequest(http.MethodGet, statusURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("error polling scene extraction: %w", err)
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("scene extraction status returned %d", resp.StatusCode)
		}

		var status sceneExtractionStatus
		if err := json.Unmarshal(respBody, &status); err != nil {
			return backoff.Permanent(fmt.Errorf("error parsing scene extraction status: %w", err))
		}
		switch status.Status {
		case "completed":
			scenes = status.Scenes
			return nil
		case "failed":
			return backoff.Permanent(fmt.Errorf("scene extraction failed: %s", status.Error))
		default:
			log.Log(requestID, "scene extraction still running", "extraction_job_id", extractionJobID, "status", status.Status)
			return fmt.Errorf("scene extraction not finished: %s", status.Status)
		}
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = 2 * time.Second
	backOff.MaxInterval = 30 * time.Second
	backOff.MaxElapsedTime = sceneExtractionMaxWait
	if err := backoff.Retry(operation, backOff); err != nil {
		return nil, xerrors.Wrap(xerrors.KindDependencyFailure, err)
	}
	return scenes, nil
}
