package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/proofvote/internal/util"
)

// HTTPConfig configures an HTTPScorer
type HTTPConfig struct {
	// Endpoint is the full URL that classifies one text pair
	Endpoint        string
	Token           string
	EntailmentLabel string
	Timeout         time.Duration
	HTTPProxy       string
	HTTPSProxy      string
	NoProxy         string
}

// HTTPScorer calls a text-pair classification endpoint (Hugging Face
// inference API or a text-embeddings-inference server)
type HTTPScorer struct {
	endpoint   string
	token      string
	label      string
	httpClient *http.Client
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("NLI endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying may help (rate limiting, server errors,
// models still loading)
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type pairInput struct {
	Text     string `json:"text"`
	TextPair string `json:"text_pair"`
}

type classifyRequest struct {
	Inputs     pairInput      `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewHTTPScorer creates a scorer for one classifier endpoint
func NewHTTPScorer(cfg HTTPConfig) (*HTTPScorer, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("NLI endpoint is required")
	}

	label := cfg.EntailmentLabel
	if label == "" {
		label = "entailment"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPScorer{
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		label:      strings.ToLower(label),
		httpClient: util.NewHTTPClient(timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}, nil
}

// Entailment classifies (premise, hypothesis) and returns the entailment score
func (s *HTTPScorer) Entailment(ctx context.Context, premise, hypothesis string) (float64, error) {
	body, err := json.Marshal(classifyRequest{
		Inputs:     pairInput{Text: premise, TextPair: hypothesis},
		Parameters: map[string]any{"top_k": nil},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	scores, err := decodeScores(respBody)
	if err != nil {
		return 0, err
	}

	for _, ls := range scores {
		if strings.ToLower(ls.Label) != s.label {
			continue
		}
		if ls.Score < 0 || ls.Score > 1 {
			return 0, fmt.Errorf("entailment score out of range: %v", ls.Score)
		}
		return ls.Score, nil
	}

	return 0, fmt.Errorf("label %q not in response", s.label)
}

// decodeScores accepts both [{label,score}] and [[{label,score}]]
func decodeScores(data []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(data, &nested); err == nil {
		if len(nested) == 0 {
			return nil, fmt.Errorf("empty classification response")
		}
		return nested[0], nil
	}

	var flat []labelScore
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("empty classification response")
	}
	return flat, nil
}
