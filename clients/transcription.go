package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	xerrors "github.com/reelforge/reelforge-api/errors"
)

const transcriptionCallTimeout = 10 * time.Minute

type TranscriptWord struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

type TranscriptSegment struct {
	Start      float64          `json:"start"`
	End        float64          `json:"end"`
	Text       string           `json:"text"`
	Speaker    string           `json:"speaker,omitempty"`
	Words      []TranscriptWord `json:"words,omitempty"`
	AvgLogprob float64          `json:"avg_logprob,omitempty"`
}

type TranscriptionResult struct {
	Language string              `json:"language"`
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
}

// TranscriptionClient uploads an audio file to the transcription capability
// and returns timed segments.
type TranscriptionClient struct {
	Endpoint   *url.URL
	APIKey     string
	httpClient *http.Client
}

func NewTranscriptionClient(endpoint *url.URL, apiKey string) *TranscriptionClient {
	return &TranscriptionClient{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		httpClient: &http.Client{Timeout: transcriptionCallTimeout},
	}
}

func (c *TranscriptionClient) IsConfigured() bool {
	return c != nil && c.Endpoint != nil
}

// Transcribe sends the audio at audioPath. language may be empty to let the
// endpoint auto-detect; it defaults to "en" in the caller.
func (c *TranscriptionClient) Transcribe(requestID, audioPath, language string) (TranscriptionResult, error) {
	if !c.IsConfigured() {
		return TranscriptionResult{}, xerrors.Wrap(xerrors.KindDependencyUnavailable, fmt.Errorf("transcription endpoint is not configured"))
	}

	audio, err := os.Open(audioPath)
	if err != nil {
		return TranscriptionResult{}, fmt.Errorf("error opening audio file %s: %w", audioPath, err)
	}
	defer audio.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return TranscriptionResult{}, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return TranscriptionResult{}, fmt.Errorf("error reading audio file %s: %w", audioPath, err)
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return TranscriptionResult{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return TranscriptionResult{}, err
	}

	req, err := http.NewRequest(http.MethodPost, c.Endpoint.String(), &body)
	if err != nil {
		return TranscriptionResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TranscriptionResult{}, xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error calling transcription endpoint: %w", err))
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return TranscriptionResult{}, xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error reading transcription response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return TranscriptionResult{}, xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("transcription endpoint returned status %d: %s", resp.StatusCode, respBody))
	}

	var result TranscriptionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return TranscriptionResult{}, xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error parsing transcription response: %w", err))
	}
	return result, nil
}
