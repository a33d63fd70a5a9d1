package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
)

// RemoteConfig configures the text correction service client.
type RemoteConfig struct {
	BaseURL     string
	HTTPTimeout time.Duration
}

// RemoteCleaner calls the AI-assisted text correction service. Any failure is
// reported so the caller can fall back to the offline cleaner.
type RemoteCleaner struct {
	cfg    RemoteConfig
	client *http.Client
	logger *slog.Logger
}

type cleanRequest struct {
	Text string `json:"text"`
}

type cleanResponse struct {
	Success      bool           `json:"success"`
	OriginalText string         `json:"original_text"`
	CleanedText  string         `json:"cleaned_text"`
	Improvements []string       `json:"improvements"`
	Statistics   map[string]any `json:"statistics"`
}

func NewRemoteCleaner(cfg RemoteConfig, client *http.Client, logger *slog.Logger) *RemoteCleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &RemoteCleaner{cfg: cfg, client: client, logger: logger}
}

// Clean posts the raw text to the service's clean endpoint and returns the
// corrected text plus the service-reported improvement list.
func (c *RemoteCleaner) Clean(ctx context.Context, text string) (string, []string, error) {
	start := time.Now()
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}

	payload, err := json.Marshal(cleanRequest{Text: text})
	if err != nil {
		return "", nil, common.EngineUnavailableError("text-correction", fmt.Errorf("encode request: %w", err))
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/text/clean"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", nil, common.EngineUnavailableError("text-correction", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("text_correction.request", "req_id", reqID, "url", url, "chars", len(text))

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("text_correction.send_error", "req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", nil, common.EngineUnavailableError("text-correction", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("text_correction.body_close_error", "req_id", reqID, "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	c.logger.Debug("text_correction.response", "req_id", reqID, "status", resp.StatusCode,
		"bytes", len(raw), "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return "", nil, common.EngineUnavailableError("text-correction",
			fmt.Errorf("non-2xx status: %d", resp.StatusCode))
	}

	var decoded cleanResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", nil, common.EngineUnavailableError("text-correction", fmt.Errorf("decode response: %w", err))
	}
	if !decoded.Success {
		return "", nil, common.EngineUnavailableError("text-correction",
			fmt.Errorf("service reported failure"))
	}

	return decoded.CleanedText, decoded.Improvements, nil
}
