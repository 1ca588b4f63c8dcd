// Benchmarks for the CPU-bound parts of extraction (image normalization,
// transcript parsing, PDF inspection, reply decoding) using synthetic data so
// they run without tesseract, an OCR service or an API key.
//
// Usage:
//
//	# Run all benchmarks
//	go test ./internal/extraction/... -bench=. -benchtime=5s
//
//	# Run a single benchmark with memory profiling
//	go test ./internal/extraction/... -bench=BenchmarkTableParser -benchmem
//
//	# Compare two commits (requires benchstat):
//	go test ./internal/extraction/... -bench=. -count=6 -benchtime=3s | tee before.txt
//	# (make your change)
//	go test ./internal/extraction/... -bench=. -count=6 -benchtime=3s | tee after.txt
//	benchstat before.txt after.txt
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// ─── Synthetic test data ─────────────────────────────────────────────────────

// syntheticTranscript builds a header-anchored month transcript with n rows.
func syntheticTranscript(n int) string {
	var sb strings.Builder
	sb.WriteString("Masjid Prayer Timetable March 2025\n")
	sb.WriteString("Date Fajr Dhuhr Asr Maghrib Isha\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%d 05:%02d 12:30 15:%02d 18:%02d 19:50\n",
			i%31+1, 40-i%30, 10+i%40, 10+i%40)
	}
	return sb.String()
}

// syntheticCSV builds a CSV upload with n data rows.
func syntheticCSV(n int) string {
	var sb strings.Builder
	sb.WriteString("Date,Fajr,Dhuhr,Asr,Maghrib,Isha\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "2025-03-%02d,05:%02d,12:30,15:45,18:20,19:50\n", i%31+1, 10+i%40)
	}
	return sb.String()
}

// syntheticScan renders a w×h gray page with dark horizontal rules, PNG-encoded.
func syntheticScan(w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(200 + (x*y)%40)
			if y%24 < 2 {
				v = 30
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// syntheticVisionReply builds a model reply with n days inside a code fence.
func syntheticVisionReply(n int) string {
	days := make([]map[string]string, n)
	for i := range days {
		days[i] = map[string]string{
			"date":    fmt.Sprintf("2025-03-%02d", i%31+1),
			"fajr":    "05:10",
			"dhuhr":   "12:30",
			"asr":     "15:45",
			"maghrib": "18:20",
			"isha":    "19:50",
		}
	}
	body, _ := json.Marshal(map[string]any{"days": days})
	return "```json\n" + string(body) + "\n```"
}

// ─── Parsing benchmarks ──────────────────────────────────────────────────────

// BenchmarkTableParser measures the strategy chain on month-sized transcripts.
func BenchmarkTableParser(b *testing.B) {
	parser := NewTableParser(func() time.Time { return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC) })
	for _, n := range []int{7, 31, 93} {
		text := syntheticTranscript(n)
		b.Run(fmt.Sprintf("rows=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if days := parser.Parse(text); len(days) == 0 {
					b.Fatal("no days parsed")
				}
			}
		})
	}
}

func BenchmarkParseCSV(b *testing.B) {
	text := syntheticCSV(31)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ParseCSV(text)
	}
}

func BenchmarkParseVisionReply(b *testing.B) {
	reply := syntheticVisionReply(31)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := parseVisionReply(reply); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Image benchmarks ────────────────────────────────────────────────────────

// BenchmarkNormalizeBytes measures decode, upscale, binarize, median filter
// and re-encode. Small scans exercise the upscale path.
func BenchmarkNormalizeBytes(b *testing.B) {
	n := NewImageNormalizer()
	for _, size := range []image.Point{{400, 300}, {1200, 1600}} {
		data := syntheticScan(size.X, size.Y)
		b.Run(fmt.Sprintf("%dx%d", size.X, size.Y), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := n.NormalizeBytes(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// ─── PDF analysis benchmarks ─────────────────────────────────────────────────

// BenchmarkAnalyzePDF measures the inspection that sizes the model's output
// budget before every PDF extraction.
func BenchmarkAnalyzePDF(b *testing.B) {
	// Minimal syntactically valid PDF with text content
	minimalPDF := []byte(`%PDF-1.4
1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj
2 0 obj<</Type/Pages/Kids[3 0 R]/Count 1>>endobj
3 0 obj<</Type/Page/MediaBox[0 0 612 792]/Parent 2 0 R/Contents 4 0 R/Resources<</Font<</F1 5 0 R>>>>>>endobj
4 0 obj<</Length 200>>stream
BT /F1 12 Tf 72 720 Td
(Date  Fajr   Sunrise  Dhuhr  Asr    Maghrib  Isha) Tj T*
(1     05:10  06:40    12:30  15:45  18:20    19:50) Tj T*
(2     05:08  06:38    12:30  15:46  18:22    19:52) Tj T*
(3     05:06  06:36    12:29  15:47  18:23    19:53) Tj
ET
endstream endobj
5 0 obj<</Type/Font/Subtype/Type1/BaseFont/Helvetica>>endobj
xref
0 6
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
0000000115 00000 n
0000000266 00000 n
0000000517 00000 n
trailer<</Size 6/Root 1 0 R>>
startxref
581
%%EOF`)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		AnalyzePDF(minimalPDF)
	}
}

// ─── End-to-end benchmarks ───────────────────────────────────────────────────

// BenchmarkExtract_RemoteOCR runs the full OCR path against an in-process
// OCR service, so the cost measured is normalization, two recognition passes
// over HTTP and parsing.
func BenchmarkExtract_RemoteOCR(b *testing.B) {
	transcript := syntheticTranscript(31)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/health" {
			_ = json.NewEncoder(w).Encode(OCRHealthResponse{Status: "healthy"})
			return
		}
		_ = json.NewEncoder(w).Encode(OCRResponse{Text: transcript})
	}))
	defer srv.Close()

	svc := NewService(Config{
		Recognizer: NewRecognizer(NewOCRClient(srv.URL).EngineFactory(), NewImageNormalizer()),
		Now:        func() time.Time { return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC) },
	})
	defer svc.Close()

	in := Input{Data: syntheticScan(800, 600), Filename: "march.png", DryRun: true}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		result, err := svc.Extract(context.Background(), in, nil)
		if err != nil {
			b.Fatal(err)
		}
		if len(result.Days) == 0 {
			b.Fatal("no days extracted")
		}
	}
}
