package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Attributes requested from the comment analyzer; the final score is the
// maximum of their summary scores.
var requestedAttributes = []string{
	"TOXICITY",
	"SEVERE_TOXICITY",
	"IDENTITY_ATTACK",
	"INSULT",
	"THREAT",
}

// ScoreProvider backed by the Perspective comment-analyzer API. Transient HTTP
// failures are retried by the underlying client; final failures are returned
// as-is for the caller's fail-open handling.
type PerspectiveClient struct {
	Host    string
	APIKey  string
	Client  *http.Client
	Limiter *rate.Limiter
}

var _ ScoreProvider = (*PerspectiveClient)(nil)

func NewPerspectiveClient(host, apiKey string, qps int) *PerspectiveClient {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	return &PerspectiveClient{
		Host:    host,
		APIKey:  apiKey,
		Client:  rc.StandardClient(),
		Limiter: rate.NewLimiter(rate.Limit(qps), 1),
	}
}

type analyzeRequest struct {
	Comment analyzeComment `json:"comment"`
	// map of attribute name to empty configuration object, the shape the API expects
	RequestedAttributes map[string]map[string]any `json:"requestedAttributes"`
}

type analyzeComment struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

func (p *PerspectiveClient) AnalyzeText(ctx context.Context, text string) (float64, error) {
	if err := p.Limiter.Wait(ctx); err != nil {
		return 0, err
	}

	attrs := make(map[string]map[string]any, len(requestedAttributes))
	for _, a := range requestedAttributes {
		attrs[a] = map[string]any{}
	}
	// fold to ASCII first, to blunt adversarial unicode variants
	body, err := json.Marshal(analyzeRequest{
		Comment:             analyzeComment{Text: FoldASCII(text)},
		RequestedAttributes: attrs,
	})
	if err != nil {
		return 0, err
	}

	u := fmt.Sprintf("%s/v1alpha1/comments:analyze?key=%s", p.Host, url.QueryEscape(p.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBuffer(body))
	if err != nil {
		return 0, err
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("comment analyzer request failed, status=%d: %s", resp.StatusCode, raw)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("parsing comment analyzer response: %w", err)
	}
	return maxSummaryScore(parsed), nil
}

func maxSummaryScore(resp analyzeResponse) float64 {
	probability := 0.0
	for _, attr := range requestedAttributes {
		if s, ok := resp.AttributeScores[attr]; ok && s.SummaryScore.Value > probability {
			probability = s.SummaryScore.Value
		}
	}
	return probability
}
