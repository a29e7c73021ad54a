package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// Config holds the scoring agent endpoint
type Config struct {
	BaseURL     string
	APIKey      string
	CallbackURL string
	Timeout     time.Duration
}

// AgentClient implements domain.AIAgent over HTTP
type AgentClient struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewAgentClient creates the scoring agent client. With no BaseURL submissions are only logged.
func NewAgentClient(cfg Config, logger *zap.Logger) domain.AIAgent {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &AgentClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type scoringPayload struct {
	domain.VideoScoringRequest
	CallbackURL string `json:"callback_url,omitempty"`
}

// SubmitVideo implements domain.AIAgent
func (a *AgentClient) SubmitVideo(ctx context.Context, req domain.VideoScoringRequest) error {
	if a.cfg.BaseURL == "" {
		a.logger.Info("ai agent not configured, video left pending",
			zap.String("response_id", req.ResponseID),
			zap.String("test_id", req.TestID))
		return nil
	}

	body, err := json.Marshal(scoringPayload{VideoScoringRequest: req, CallbackURL: a.cfg.CallbackURL})
	if err != nil {
		return fmt.Errorf("failed to encode scoring request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/evaluations", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("scoring agent request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("scoring agent returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
