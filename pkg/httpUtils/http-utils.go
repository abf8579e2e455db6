package http_utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxJSONBody bounds the size of a decoded response body.
const maxJSONBody = 1 << 20

// GetJSON issues a GET request to url and decodes the JSON response into v.
func GetJSON(ctx context.Context, client *http.Client, url string, v any) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %v", url, err)
	}
	req.Header.Set("Accept", "application/json")

	// Make a GET request to the URL
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	// Check if the response status is OK
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s, received status code: %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %v", url, err)
	}
	return nil
}
