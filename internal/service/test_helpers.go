package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"

	"github.com/castlemilk/salahtime/backend/internal/auth"
)

// testContextWithUser creates a context with authenticated user claims for testing
func testContextWithUser(userID string) context.Context {
	return auth.WithUserClaims(context.Background(), &auth.UserClaims{
		UID:   userID,
		Email: userID + "@test.local",
	})
}

// uploadRequest builds a multipart extraction request for userID. An empty
// userID leaves the request unauthenticated.
func uploadRequest(userID, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if filename != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		header.Set("Content-Type", contentType)
		part, _ := mw.CreatePart(header)
		_, _ = part.Write(data)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if userID != "" {
		req = req.WithContext(testContextWithUser(userID))
	}
	return req
}
