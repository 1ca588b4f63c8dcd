package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiModel is the vision model used when none is configured.
	DefaultGeminiModel = "gemini-2.5-flash"

	// placeholderAPIKey is the value shipped in example env files.
	placeholderAPIKey = "your_gemini_api_key_here"
)

const timetablePrompt = `You are an expert at extracting prayer timetables from images. Your job is to:
1. Identify the prayer times table in the image
2. Extract BOTH the Adhan (beginning/start) times AND Iqama (congregation/jamat/jama at) times for each prayer
3. Extract data for ALL days shown in the timetable
4. Return the data in a structured JSON format

CRITICAL INSTRUCTIONS:
- Extract Fajr, Dhuhr, Asr, Maghrib, and Isha times
- For each prayer, there are TWO columns: START/ADHAN and JAMA AT/IQAMA
- Look for column headers like "START" and "JAMA AT" or "JAMAAT" or "IQAMA"
- Some rows may have different background colors (yellow, green, orange) - IGNORE the colors and extract ALL rows equally
- Highlighted/colored rows are just as important as normal rows - don't skip them!
- If a cell shows quotation marks (") it means "same as above" - use the value from the previous row
- Dates should be in YYYY-MM-DD format
- Times should be in 24-hour HH:MM format
- Include ALL days visible in the timetable
- Pay special attention to Friday (Jumu'ah) rows which are often highlighted

Please extract ALL prayer times from this timetable image. Return ONLY a JSON object with this exact structure (no markdown, no code blocks, just raw JSON):

{
  "days": [
    {
      "date": "YYYY-MM-DD",
      "fajr": "HH:MM",
      "fajrIqama": "HH:MM",
      "dhuhr": "HH:MM",
      "dhuhrIqama": "HH:MM",
      "asr": "HH:MM",
      "asrIqama": "HH:MM",
      "maghrib": "HH:MM",
      "maghribIqama": "HH:MM",
      "isha": "HH:MM",
      "ishaIqama": "HH:MM"
    }
  ]
}

Notes:
- NEVER use the same time for both adhan and iqama unless they are truly identical in the table
- Convert all times to 24-hour format
- Extract data for EVERY day shown in the table
- Ensure dates are continuous and match what's shown
- Handle quotation marks (") by copying the time from the cell above
- Return ONLY the JSON object, no other text`

var codeFencePattern = regexp.MustCompile("```json\\n?|```\\n?")

// VisionExtractor reads timetables straight from images and PDFs with a
// Gemini vision model.
type VisionExtractor struct {
	apiKey      string
	model       string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	RetryConfig RetryConfig
}

// VisionOption configures a VisionExtractor.
type VisionOption func(*VisionExtractor)

// WithGeminiModel overrides the model name.
func WithGeminiModel(name string) VisionOption {
	return func(v *VisionExtractor) {
		if name != "" {
			v.model = name
		}
	}
}

// WithGeminiBaseURL overrides the API endpoint.
func WithGeminiBaseURL(url string) VisionOption {
	return func(v *VisionExtractor) {
		if url != "" {
			v.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithRateLimit caps outgoing requests per second. A non-positive rps
// disables the limit.
func WithRateLimit(rps float64, burst int) VisionOption {
	return func(v *VisionExtractor) {
		if rps <= 0 {
			v.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		v.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewVisionExtractor creates a new vision extractor.
func NewVisionExtractor(apiKey string, opts ...VisionOption) *VisionExtractor {
	v := &VisionExtractor{
		apiKey:  apiKey,
		model:   DefaultGeminiModel,
		baseURL: defaultGeminiBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		RetryConfig: DefaultGeminiRetryConfig,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsAIExtractionAvailable reports whether apiKey looks like a real
// credential.
func IsAIExtractionAvailable(apiKey string) bool {
	return apiKey != "" && apiKey != placeholderAPIKey
}

// IsAvailable reports whether the extractor has a usable credential.
func (v *VisionExtractor) IsAvailable() bool {
	return v != nil && IsAIExtractionAvailable(v.apiKey)
}

// Model returns the configured model name.
func (v *VisionExtractor) Model() string {
	return v.model
}

// visionDay is one element of the model's "days" array.
type visionDay struct {
	Date         string `json:"date"`
	Fajr         string `json:"fajr"`
	FajrIqama    string `json:"fajrIqama"`
	Dhuhr        string `json:"dhuhr"`
	DhuhrIqama   string `json:"dhuhrIqama"`
	Asr          string `json:"asr"`
	AsrIqama     string `json:"asrIqama"`
	Maghrib      string `json:"maghrib"`
	MaghribIqama string `json:"maghribIqama"`
	Isha         string `json:"isha"`
	IshaIqama    string `json:"ishaIqama"`
}

type visionReply struct {
	Days *[]visionDay `json:"days"`
}

// Extract sends the document to the model and returns the days it read,
// fields copied through as given.
func (v *VisionExtractor) Extract(ctx context.Context, data []byte, mimeType string, onProgress ProgressFunc) ([]model.DailyPrayerTime, error) {
	if !v.IsAvailable() {
		return nil, &ExtractionError{
			Code:    ErrConfiguration,
			Message: "Gemini API key not configured",
			Method:  MethodAI,
		}
	}

	onProgress.report("Preparing image for AI analysis...", 0.1)

	maxTokens := 0
	if mimeType == mimePDF {
		analysis := AnalyzePDF(data)
		maxTokens = analysis.MaxOutputTokens
		log.Debug().
			Str("component", "vision").
			Int("pages", analysis.PageCount).
			Bool("scanned", analysis.IsScanned).
			Int("max_output_tokens", maxTokens).
			Msg("inspected PDF")
	}

	body, err := buildGeminiRequest(data, mimeType, maxTokens)
	if err != nil {
		return nil, err
	}

	onProgress.report("Sending to Gemini vision model...", 0.3)

	retry := v.RetryConfig
	retry.Limiter = v.limiter
	text, err := WithRetry(ctx, retry, func(ctx context.Context) (string, error) {
		return v.generate(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	onProgress.report("Processing AI response...", 0.8)

	days, err := parseVisionReply(text)
	if err != nil {
		return nil, err
	}

	onProgress.report("Extraction complete!", 1.0)
	return days, nil
}

func buildGeminiRequest(data []byte, mimeType string, maxOutputTokens int) ([]byte, error) {
	generationConfig := map[string]interface{}{
		"temperature":      0.1,
		"responseMimeType": "application/json",
	}
	if maxOutputTokens > 0 {
		generationConfig["maxOutputTokens"] = maxOutputTokens
	}

	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": timetablePrompt},
					{
						"inline_data": map[string]string{
							"mime_type": mimeType,
							"data":      base64.StdEncoding.EncodeToString(data),
						},
					},
				},
			},
		},
		"generationConfig": generationConfig,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return jsonBody, nil
}

// generate performs one generateContent call and returns the reply text.
func (v *VisionExtractor) generate(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", v.baseURL, v.model, v.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", classifyGeminiHTTPError(resp.StatusCode, string(respBody))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", &ExtractionError{
			Code:    ErrMalformedResponse,
			Message: "decode Gemini response",
			Method:  MethodAI,
			Cause:   err,
		}
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 ||
		geminiResp.Candidates[0].Content.Parts[0].Text == "" {
		return "", &ExtractionError{
			Code:    ErrMalformedResponse,
			Message: "No response from Gemini model",
			Method:  MethodAI,
		}
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// parseVisionReply strips Markdown code fences and reads the days array.
// Values are not validated here.
func parseVisionReply(text string) ([]model.DailyPrayerTime, error) {
	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(strings.TrimSpace(text), ""))

	var reply visionReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		// some replies wrap the object in prose
		if jerr := extractJSON(cleaned, &reply); jerr != nil {
			return nil, &ExtractionError{
				Code:    ErrMalformedResponse,
				Message: "Invalid response format from AI",
				Method:  MethodAI,
				Cause:   err,
			}
		}
	}
	if reply.Days == nil {
		return nil, &ExtractionError{
			Code:    ErrMalformedResponse,
			Message: "Invalid response format from AI",
			Method:  MethodAI,
		}
	}

	days := make([]model.DailyPrayerTime, 0, len(*reply.Days))
	for _, d := range *reply.Days {
		days = append(days, model.DailyPrayerTime{
			Date: d.Date,
			PrayerTimeSet: model.PrayerTimeSet{
				Fajr:         d.Fajr,
				FajrIqama:    d.FajrIqama,
				Dhuhr:        d.Dhuhr,
				DhuhrIqama:   d.DhuhrIqama,
				Asr:          d.Asr,
				AsrIqama:     d.AsrIqama,
				Maghrib:      d.Maghrib,
				MaghribIqama: d.MaghribIqama,
				Isha:         d.Isha,
				IshaIqama:    d.IshaIqama,
			},
		})
	}
	return days, nil
}

// classifyGeminiError converts Gemini network errors to ExtractionErrors.
func classifyGeminiError(err error) *ExtractionError {
	return &ExtractionError{
		Code:      ErrNetwork,
		Message:   "Gemini API request failed",
		Method:    MethodAI,
		Retryable: true,
		Cause:     err,
	}
}

// classifyGeminiHTTPError converts Gemini HTTP errors to ExtractionErrors.
func classifyGeminiHTTPError(statusCode int, body string) *ExtractionError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &ExtractionError{
			Code:       ErrRateLimited,
			Message:    "Gemini API rate limited",
			Method:     MethodAI,
			Retryable:  true,
			RetryAfter: geminiRetryDelay(body),
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &ExtractionError{
			Code:    ErrConfiguration,
			Message: fmt.Sprintf("Gemini API rejected credentials (HTTP %d)", statusCode),
			Method:  MethodAI,
		}
	}
	return &ExtractionError{
		Code:      ErrNetwork,
		Message:   fmt.Sprintf("Gemini API error (HTTP %d): %s", statusCode, body),
		Method:    MethodAI,
		Retryable: statusCode >= 500,
	}
}

// retryDelayRe matches the RetryInfo detail of a Gemini quota error,
// e.g. "retryDelay": "7s" or "retryDelay": "0.5s".
var retryDelayRe = regexp.MustCompile(`"retryDelay"\s*:\s*"(\d+(?:\.\d+)?)s"`)

// geminiRetryDelay reads the suggested wait out of a 429 body, or 0.
func geminiRetryDelay(body string) time.Duration {
	m := retryDelayRe.FindStringSubmatch(body)
	if m == nil {
		return 0
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// extractJSON extracts a JSON object from a text response.
func extractJSON(text string, v interface{}) error {
	start := -1
	end := -1
	braceCount := 0

	for i, c := range text {
		if c == '{' {
			if start == -1 {
				start = i
			}
			braceCount++
		} else if c == '}' {
			braceCount--
			if braceCount == 0 && start != -1 {
				end = i + 1
				break
			}
		}
	}

	if start == -1 || end == -1 {
		return fmt.Errorf("no JSON object found in response")
	}

	return json.Unmarshal([]byte(text[start:end]), v)
}
