package extraction

import "testing"

func TestClassifyFile(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

	tests := []struct {
		name     string
		data     []byte
		filename string
		declared string
		wantKind FileKind
		wantMIME string
	}{
		{"declared csv", []byte("a,b"), "times.txt", "text/csv", KindCSV, "text/csv"},
		{"csv extension", []byte("a,b"), "March.CSV", "application/octet-stream", KindCSV, "text/csv"},
		{"declared jpeg", []byte("whatever"), "photo", "image/jpeg", KindImage, "image/jpeg"},
		{"declared with params", []byte("whatever"), "", "image/png; charset=binary", KindImage, "image/png"},
		{"pdf extension", pdf, "timetable.pdf", "", KindPDF, "application/pdf"},
		{"sniffed png", png, "upload", "application/octet-stream", KindImage, "image/png"},
		{"sniffed pdf", pdf, "upload", "", KindPDF, "application/pdf"},
		{"plain text", []byte("hello world this is text"), "notes.txt", "text/plain", KindUnknown, "text/plain; charset=utf-8"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, mime := ClassifyFile(tc.data, tc.filename, tc.declared)
			if kind != tc.wantKind || mime != tc.wantMIME {
				t.Fatalf("ClassifyFile() = %s, %q; want %s, %q", kind, mime, tc.wantKind, tc.wantMIME)
			}
		})
	}
}
