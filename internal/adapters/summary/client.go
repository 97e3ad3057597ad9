package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tastevin/tastevin/internal/domain"
)

// Client calls the external summarization service. The service turns
// a finished session's message log into prose; the room only learns
// the resulting summary id.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) Summarize(ctx context.Context, id domain.SessionID) (string, error) {
	body, err := json.Marshal(map[string]string{"sessionId": string(id)})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/summaries", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("summarize status %d", resp.StatusCode)
	}

	var out struct {
		SummaryID string `json:"summaryId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summarize decode: %w", err)
	}
	if out.SummaryID == "" {
		return "", fmt.Errorf("summarize: empty summary id")
	}
	return out.SummaryID, nil
}
