package playlist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asherpoirier/streamvault/internal/models"
)

// Fetch downloads the M3U8 playlist at url and parses it.
// userAgent is optional. A non-200 upstream status is an error; parse
// problems are not (Parse just yields fewer channels).
func Fetch(ctx context.Context, url, userAgent string, timeout time.Duration) ([]models.Channel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}
	return Parse(string(body)), nil
}
