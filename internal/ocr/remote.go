package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
)

// RemoteConfig configures the remote OCR microservice adapter.
type RemoteConfig struct {
	BaseURL             string
	ConfidenceThreshold float64 // forwarded to the service; 0-100 scale
	HTTPTimeout         time.Duration
}

// RemoteEngine calls the specialized OCR microservice over HTTP. It is the
// most accurate engine but also the most fragile: any transport error, non-2xx
// status or success=false response is reported as an unavailable engine so the
// chain can fall back.
type RemoteEngine struct {
	cfg    RemoteConfig
	client *http.Client
	logger *slog.Logger
}

type remoteOCRResponse struct {
	Success        bool           `json:"success"`
	FileID         string         `json:"file_id"`
	Text           string         `json:"text"`
	Confidence     float64        `json:"confidence"`
	ProcessingTime float64        `json:"processing_time"`
	Method         string         `json:"processing_method"`
	Metadata       map[string]any `json:"metadata"`
	Error          string         `json:"error"`
}

func NewRemoteEngine(cfg RemoteConfig, client *http.Client, logger *slog.Logger) *RemoteEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 60
	}
	return &RemoteEngine{cfg: cfg, client: client, logger: logger}
}

func (e *RemoteEngine) ID() string { return "remote-ocr" }

// Recognize posts the page image as multipart form data to the service's
// process endpoint and decodes the structured response.
func (e *RemoteEngine) Recognize(ctx context.Context, image []byte, lang string) (Result, error) {
	start := time.Now()
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "page.png")
	if err != nil {
		return Result{}, common.EngineUnavailableError(e.ID(), fmt.Errorf("build form: %w", err))
	}
	if _, err := fw.Write(image); err != nil {
		return Result{}, common.EngineUnavailableError(e.ID(), fmt.Errorf("write form file: %w", err))
	}
	if err := mw.WriteField("language", lang); err != nil {
		return Result{}, common.EngineUnavailableError(e.ID(), fmt.Errorf("write form field: %w", err))
	}
	if err := mw.WriteField("confidence_threshold",
		strconv.FormatFloat(e.cfg.ConfidenceThreshold, 'f', 1, 64)); err != nil {
		return Result{}, common.EngineUnavailableError(e.ID(), fmt.Errorf("write form field: %w", err))
	}
	if err := mw.Close(); err != nil {
		return Result{}, common.EngineUnavailableError(e.ID(), fmt.Errorf("close form: %w", err))
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/ocr/process"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return Result{}, common.EngineUnavailableError(e.ID(), fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	e.logger.Debug("remote_ocr.request", "req_id", reqID, "url", url, "bytes", body.Len(), "lang", lang)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("remote_ocr.send_error", "req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Result{}, common.EngineUnavailableError(e.ID(), err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			e.logger.Warn("remote_ocr.body_close_error", "req_id", reqID, "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	e.logger.Debug("remote_ocr.response", "req_id", reqID, "status", resp.StatusCode,
		"bytes", len(raw), "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return Result{}, common.EngineUnavailableError(e.ID(),
			fmt.Errorf("non-2xx status: %d", resp.StatusCode))
	}

	var decoded remoteOCRResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, common.EngineUnavailableError(e.ID(), fmt.Errorf("decode response: %w", err))
	}
	if !decoded.Success {
		return Result{}, common.EngineUnavailableError(e.ID(),
			fmt.Errorf("service reported failure: %s", decoded.Error))
	}

	return Result{
		Text:       strings.TrimSpace(decoded.Text),
		Confidence: decoded.Confidence,
		EngineID:   e.ID(),
		Duration:   time.Since(start),
	}, nil
}
