package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPComparer scores texts through an external similarity service. The
// service owns the semantic model; this client only moves text and enforces
// the comparison deadline.
type HTTPComparer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPComparer(baseURL string, timeout time.Duration) *HTTPComparer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPComparer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (h *HTTPComparer) Compare(ctx context.Context, req Request) ([]float64, ProviderInfo, error) {
	info := ProviderInfo{Name: "http", Model: h.baseURL}
	if len(req.Candidates) == 0 {
		return []float64{}, info, nil
	}
	payload, _ := json.Marshal(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/compare", bytes.NewReader(payload))
	if err != nil {
		return nil, info, fmt.Errorf("build compare request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, info, fmt.Errorf("compare request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, info, fmt.Errorf("compare service error %d: %s", resp.StatusCode, string(body))
	}
	var parsed struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, info, fmt.Errorf("decode compare response: %w", err)
	}
	if len(parsed.Scores) != len(req.Candidates) {
		return nil, info, fmt.Errorf("compare service returned %d scores for %d candidates", len(parsed.Scores), len(req.Candidates))
	}
	return parsed.Scores, info, nil
}
