// Package inference implements the HTTP client for the external scoring
// service that hosts the classifier, OCR and quality models.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/errors"
	"github.com/aerolabel/aerolabel-go/internal/logging"
)

// Package-level logger for the inference service client. The first client
// upgrades it to a dedicated rotated file log; until then, and whenever the
// file cannot be opened, it stays on the shared structured logger.
var (
	log     = logging.ForService("inference")
	logOnce sync.Once
)

func initFileLogger() {
	logOnce.Do(func() {
		fileLogger, _, err := logging.NewFileLogger("logs/inference.log", "inference", slog.LevelInfo)
		if err != nil {
			log.Warn("Failed to create inference log file, keeping standard output", "error", err)
			return
		}
		log = fileLogger
	})
}

// DefaultTimeout is used when the configuration does not set one.
const DefaultTimeout = 30 * time.Second

// ClassResult is one classifier verdict on a single axis.
type ClassResult struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// OCRResult carries the registration text recognized in an image.
type OCRResult struct {
	Registration string  `json:"registration"`
	Confidence   float64 `json:"confidence"`
	Area         string  `json:"area"`
}

// QualityResult carries the quality assessment of an image.
type QualityResult struct {
	Clarity    float64 `json:"clarity"`
	Occlusion  float64 `json:"occlusion"`
	Confidence float64 `json:"confidence"`
}

// Client talks to the inference service over HTTP. All request payloads
// carry the image as base64 so the service never needs filesystem access.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client from the inference settings.
func New(settings *conf.Settings) *Client {
	initFileLogger()

	timeout := settings.Inference.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    settings.Inference.URL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	ImageBase64 string `json:"image_base64"`
	Axis        string `json:"axis"`
}

type imageRequest struct {
	ImageBase64 string `json:"image_base64"`
}

// Classify scores the image on one classification axis.
func (c *Client) Classify(ctx context.Context, image []byte, axis string) (ClassResult, error) {
	var result ClassResult
	if axis == "" {
		return result, errors.Newf("classification axis is required").
			Component("inference").
			Category(errors.CategoryValidation).
			Build()
	}
	payload := predictRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		Axis:        axis,
	}
	if err := c.post(ctx, "/api/v1/predict", &payload, &result); err != nil {
		return ClassResult{}, err
	}
	return result, nil
}

// Recognize extracts the registration text from the image.
func (c *Client) Recognize(ctx context.Context, image []byte) (OCRResult, error) {
	var result OCRResult
	payload := imageRequest{ImageBase64: base64.StdEncoding.EncodeToString(image)}
	if err := c.post(ctx, "/api/v1/ocr", &payload, &result); err != nil {
		return OCRResult{}, err
	}
	return result, nil
}

// Assess scores the image for clarity and occlusion.
func (c *Client) Assess(ctx context.Context, image []byte) (QualityResult, error) {
	var result QualityResult
	payload := imageRequest{ImageBase64: base64.StdEncoding.EncodeToString(image)}
	if err := c.post(ctx, "/api/v1/quality", &payload, &result); err != nil {
		return QualityResult{}, err
	}
	return result, nil
}

// post sends a JSON request and decodes the JSON response. Non-200 responses
// and transport failures come back as collaborator errors so callers can
// tell a scoring outage apart from their own bugs.
func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request for %s: %w", path, err)
	}

	url := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Error("Inference request failed", "path", path, "error", err)
		return errors.New(fmt.Errorf("calling inference service: %w", err)).
			Component("inference").
			Category(errors.CategoryCollaborator).
			Context("path", path).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a short prefix of the body for the log, error details from
		// the service are not part of the contract.
		prefix, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error("Inference request rejected",
			"path", path, "status", resp.StatusCode, "body", string(prefix))
		return errors.Newf("inference service returned status %d", resp.StatusCode).
			Component("inference").
			Category(errors.CategoryCollaborator).
			Context("path", path).
			Context("status", resp.StatusCode).
			Build()
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.New(fmt.Errorf("decoding inference response: %w", err)).
			Component("inference").
			Category(errors.CategoryCollaborator).
			Context("path", path).
			Build()
	}

	log.Debug("Inference request completed",
		"path", path, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
