package clients

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
)

const uploadTimeout = 10 * time.Minute

// ObjectStoreClient uploads rendered files to the object storage HTTP API.
// Objects are written with overwrite enabled and addressed as
// <base>/object/<bucket>/<path>; their public URL is
// <base>/object/public/<bucket>/<path>.
type ObjectStoreClient struct {
	BaseURL       *url.URL
	APIKey        string
	DefaultBucket string
	httpClient    *retryablehttp.Client
}

func NewObjectStoreClient(baseURL *url.URL, apiKey, defaultBucket string) *ObjectStoreClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient = &http.Client{Timeout: uploadTimeout}
	client.Logger = nil

	return &ObjectStoreClient{
		BaseURL:       baseURL,
		APIKey:        apiKey,
		DefaultBucket: defaultBucket,
		httpClient:    client,
	}
}

func (c *ObjectStoreClient) IsConfigured() bool {
	return c != nil && c.BaseURL != nil
}

// Upload pushes the local file and returns its public URL.
func (c *ObjectStoreClient) Upload(requestID, localPath, bucket, folder, filename string) (string, error) {
	if !c.IsConfigured() {
		return "", xerrors.Wrap(xerrors.KindDependencyUnavailable, fmt.Errorf("object storage is not configured"))
	}
	if bucket == "" {
		bucket = c.DefaultBucket
	}

	contents, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("error reading %s for upload: %w", localPath, err)
	}

	objectPath := strings.TrimLeft(fmt.Sprintf("%s/%s", folder, filename), "/")
	uploadURL := fmt.Sprintf("%s/object/%s/%s", strings.TrimRight(c.BaseURL.String(), "/"), bucket, objectPath)

	req, err := retryablehttp.NewRequest(http.MethodPost, uploadURL, contents)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("x-upsert", "true")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("error uploading to %s: %w", uploadURL, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("upload to %s returned status %d", uploadURL, resp.StatusCode))
	}

	publicURL := fmt.Sprintf("%s/object/public/%s/%s", strings.TrimRight(c.BaseURL.String(), "/"), bucket, objectPath)
	log.Log(requestID, "uploaded render to object storage", "bytes", len(contents), "url", publicURL)
	return publicURL, nil
}
