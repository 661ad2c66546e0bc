package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient resolves display names against the user service over HTTP
// (GET {baseURL}/users/{id}).
type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *HTTPClient) DisplayName(ctx context.Context, userID int64) (string, error) {
	url := fmt.Sprintf("%s/users/%d", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("directory lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("directory lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("directory lookup: decode: %w", err)
	}
	return body.Name, nil
}
