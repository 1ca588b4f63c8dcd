package extraction

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mimeCSV = "text/csv"
	mimePDF = "application/pdf"
)

// FileKind is the routing class of an uploaded file.
type FileKind string

const (
	KindUnknown FileKind = "unknown"
	KindCSV     FileKind = "csv"
	KindImage   FileKind = "image"
	KindPDF     FileKind = "pdf"
)

// ClassifyFile decides how an upload is processed. The declared content type
// and file name win; the content is sniffed only when neither is decisive.
// It also returns the MIME type to hand to the vision model.
func ClassifyFile(data []byte, filename, declaredType string) (FileKind, string) {
	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(declaredType, ";", 2)[0]))
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case declared == mimeCSV || ext == ".csv":
		return KindCSV, mimeCSV
	case declared == mimePDF || ext == ".pdf":
		return KindPDF, mimePDF
	case strings.HasPrefix(declared, "image/"):
		return KindImage, declared
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is(mimePDF):
		return KindPDF, mimePDF
	case strings.HasPrefix(detected.String(), "image/"):
		return KindImage, detected.String()
	case detected.Is(mimeCSV):
		return KindCSV, mimeCSV
	}
	return KindUnknown, detected.String()
}
