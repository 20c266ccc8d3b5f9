package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSource long-polls a feed endpoint for the next stream event. The
// server holds the request until an event newer than the cursor exists.
type HTTPSource struct {
	url    string
	client *http.Client
	cursor uint64
}

// NewHTTPSource returns a source polling the given feed URL.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Next fetches the next event after the cursor.
func (s *HTTPSource) Next(ctx context.Context) (json.RawMessage, error) {
	url := fmt.Sprintf("%s?after=%d", s.url, s.cursor)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed endpoint returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Track the cursor so reconnects resume after the last delivered event.
	var probe struct {
		Payload struct {
			Chain struct {
				Seqno uint64 `json:"seqno"`
			} `json:"chain"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Payload.Chain.Seqno > 0 {
		s.cursor = probe.Payload.Chain.Seqno
	}
	return body, nil
}
