package clients

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/reelforge/reelforge-api/config"
)

const webhookTimeout = 30 * time.Second

// CallbackClient fires the caller-supplied webhook once a pipeline job has
// published its renders. Webhook failures are the caller's to log; they never
// fail the pipeline.
type CallbackClient struct {
	httpClient *retryablehttp.Client
}

func NewCallbackClient() CallbackClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 2                          // Retry a maximum of this+1 times
	client.RetryWaitMin = 200 * time.Millisecond // Wait at least this long between retries
	client.RetryWaitMax = 1 * time.Second        // Wait at most this long between retries (exponential backoff)
	client.HTTPClient = &http.Client{
		Timeout: webhookTimeout,
	}
	client.Logger = nil

	return CallbackClient{
		httpClient: client,
	}
}

// WebhookPayload is the stable outbound envelope.
type WebhookPayload struct {
	StorageURL   string          `json:"storage_url"`
	CallbackData json.RawMessage `json:"callback_data,omitempty"`
	Timestamp    int64           `json:"timestamp"`
}

func (c CallbackClient) SendWebhook(callbackURL string, payload WebhookPayload) error {
	payload.Timestamp = config.Clock().Unix()
	j, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	r, err := retryablehttp.NewRequest(http.MethodPost, callbackURL, j)
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(r)
	if err != nil {
		return fmt.Errorf("failed to send webhook to %q: %w", callbackURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("failed to send webhook to %q. HTTP Code: %d", callbackURL, resp.StatusCode)
	}

	return nil
}
