package extraction

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

const (
	maxTextBytes     = 100 * 1024 // 100KB cap for extracted text
	defaultMaxTokens = 8192
	minMaxTokens     = 2048
	maxMaxTokens     = 32768
	tokenRoundTo     = 1024
	tokensPerDay     = 90 // one JSON day object with Iqama fields
	daysPerPage      = 31
	scannedThreshold = 50 // chars per page below which PDF is considered scanned
	timesPerTableRow = 5
)

// AsyncPageThreshold is the page count above which an uploaded PDF is
// extracted as a background job instead of within the request.
const AsyncPageThreshold = 2

// ShouldProcessAsync reports whether data is a PDF long enough to extract in
// the background.
func ShouldProcessAsync(data []byte) bool {
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		return false
	}
	return AnalyzePDF(data).PageCount > AsyncPageThreshold
}

// PDFAnalysis contains the results of inspecting a PDF timetable.
type PDFAnalysis struct {
	PageCount       int
	ExtractedText   string
	TextLines       []string
	EstimatedDays   int
	IsScanned       bool
	MaxOutputTokens int
	Error           error
}

// AnalyzePDF extracts text and metadata from a PDF before it is sent to the
// vision model. It is wrapped in recover() and never panics or blocks
// extraction. On any error, it returns sensible defaults.
func AnalyzePDF(data []byte) (result *PDFAnalysis) {
	result = &PDFAnalysis{
		PageCount:       1,
		IsScanned:       true,
		MaxOutputTokens: defaultMaxTokens,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("component", "pdf").Interface("panic", r).Msg("recovered from panic")
			result.Error = fmt.Errorf("panic during PDF analysis: %v", r)
			result.IsScanned = true
			result.MaxOutputTokens = defaultMaxTokens
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result.Error = fmt.Errorf("open PDF reader: %w", err)
		return result
	}

	result.PageCount = reader.NumPage()
	if result.PageCount < 1 {
		result.PageCount = 1
	}
	result.MaxOutputTokens = estimateOutputTokens(result.PageCount * daysPerPage)

	plainText, err := reader.GetPlainText()
	if err != nil {
		result.Error = fmt.Errorf("extract plain text: %w", err)
		return result
	}

	textBytes, err := io.ReadAll(io.LimitReader(plainText, int64(maxTextBytes)))
	if err != nil {
		result.Error = fmt.Errorf("read plain text: %w", err)
		return result
	}

	result.ExtractedText = string(textBytes)
	result.IsScanned = isLikelyScanned(result.ExtractedText, result.PageCount)

	for _, line := range strings.Split(result.ExtractedText, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			result.TextLines = append(result.TextLines, trimmed)
		}
	}

	result.EstimatedDays = countTableRows(result.TextLines)
	if result.EstimatedDays > 0 {
		result.MaxOutputTokens = estimateOutputTokens(result.EstimatedDays)
	}

	return result
}

// countTableRows counts lines that carry at least one full day of prayer
// times.
func countTableRows(lines []string) int {
	count := 0
	for _, line := range lines {
		if len(timePattern.FindAllString(line, -1)) >= timesPerTableRow {
			count++
		}
	}
	return count
}

// estimateOutputTokens calculates a recommended maxOutputTokens for the
// vision model based on the number of days expected in the reply.
// Formula: (150 + days * 90) * 1.5, clamped to [2048, 32768], rounded up to 1024.
func estimateOutputTokens(days int) int {
	if days <= 0 {
		return defaultMaxTokens
	}

	tokens := int(float64(150+days*tokensPerDay) * 1.5)

	if tokens < minMaxTokens {
		tokens = minMaxTokens
	}
	if tokens > maxMaxTokens {
		tokens = maxMaxTokens
	}

	if tokens%tokenRoundTo != 0 {
		tokens = ((tokens / tokenRoundTo) + 1) * tokenRoundTo
	}

	return tokens
}

// isLikelyScanned returns true if the PDF appears to be a scanned image
// (very little extractable text per page).
func isLikelyScanned(text string, pages int) bool {
	if pages <= 0 {
		pages = 1
	}
	return len(text)/pages < scannedThreshold
}
