package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// OCRClient is an HTTP client for a recognition sidecar that wraps an OCR
// engine behind POST /recognize.
type OCRClient struct {
	baseURL     string
	httpClient  *http.Client
	RetryConfig RetryConfig
}

// NewOCRClient creates a new OCR service client.
func NewOCRClient(baseURL string) *OCRClient {
	return &OCRClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // large scans take a while
		},
		RetryConfig: DefaultOCRRetryConfig,
	}
}

// OCRHealthResponse represents the health check response.
type OCRHealthResponse struct {
	Status    string   `json:"status"`
	Engine    string   `json:"engine"`
	Languages []string `json:"languages"`
	Version   string   `json:"version"`
}

// OCRRequest carries the per-pass engine settings.
type OCRRequest struct {
	Image                   []byte
	Whitelist               string
	PreserveInterwordSpaces bool
}

// OCRResponse represents the response from the OCR service.
type OCRResponse struct {
	Text             string  `json:"text"`
	Confidence       float64 `json:"confidence"`
	ProcessingTimeMS int     `json:"processing_time_ms"`
}

// HealthCheck checks if the OCR service is healthy.
func (c *OCRClient) HealthCheck(ctx context.Context) (*OCRHealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("health check failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var health OCRHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &health, nil
}

// Recognize sends an image to the OCR service, retrying transient failures.
func (c *OCRClient) Recognize(ctx context.Context, r OCRRequest) (*OCRResponse, error) {
	return WithRetry(ctx, c.RetryConfig, func(ctx context.Context) (*OCRResponse, error) {
		return c.recognize(ctx, r)
	})
}

func (c *OCRClient) recognize(ctx context.Context, r OCRRequest) (*OCRResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "page.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(r.Image); err != nil {
		return nil, fmt.Errorf("write file data: %w", err)
	}
	if err := writer.WriteField("whitelist", r.Whitelist); err != nil {
		return nil, fmt.Errorf("write whitelist: %w", err)
	}
	if err := writer.WriteField("preserve_interword_spaces", strconv.FormatBool(r.PreserveInterwordSpaces)); err != nil {
		return nil, fmt.Errorf("write preserve_interword_spaces: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ExtractionError{
			Code:      ErrNetwork,
			Message:   "OCR service request failed",
			Method:    MethodOCR,
			Retryable: true,
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExtractionError{
			Code:       ErrNetwork,
			Message:    fmt.Sprintf("OCR service error (HTTP %d): %s", resp.StatusCode, string(body)),
			Method:     MethodOCR,
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	var result OCRResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// EngineFactory returns a factory whose engines delegate to the service.
// Starting an engine checks the service is healthy.
func (c *OCRClient) EngineFactory() EngineFactory {
	return func(ctx context.Context) (Engine, error) {
		if _, err := c.HealthCheck(ctx); err != nil {
			return nil, err
		}
		return &remoteEngine{client: c}, nil
	}
}

// remoteEngine holds the pass settings; the service itself is stateless.
type remoteEngine struct {
	client    *OCRClient
	whitelist string
	preserve  bool
}

func (e *remoteEngine) SetWhitelist(chars string) error {
	e.whitelist = chars
	return nil
}

func (e *remoteEngine) SetPreserveInterwordSpaces(preserve bool) error {
	e.preserve = preserve
	return nil
}

func (e *remoteEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	resp, err := e.client.Recognize(ctx, OCRRequest{
		Image:                   image,
		Whitelist:               e.whitelist,
		PreserveInterwordSpaces: e.preserve,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (e *remoteEngine) Close() error {
	return nil
}
