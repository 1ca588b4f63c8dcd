package service

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/salahtime/backend/internal/auth"
	"github.com/castlemilk/salahtime/backend/internal/extraction"
	"github.com/castlemilk/salahtime/backend/internal/model"
	"github.com/castlemilk/salahtime/backend/internal/store"
)

// TestE2E_CSVUploadLifecycle drives the real orchestrator and memory store
// through the HTTP API: upload, list, fetch latest, export and delete.
func TestE2E_CSVUploadLifecycle(t *testing.T) {
	st := store.NewMemoryStore()
	svc := extraction.NewService(extraction.Config{
		Store: st,
		Now:   func() time.Time { return time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC) },
	})
	defer svc.Close()

	srv := httptest.NewServer(auth.LocalDevMiddleware()(NewHandler(svc, st).Routes()))
	defer srv.Close()

	// Upload
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("mosqueName", "Al-Noor Masjid"))
	part, err := mw.CreateFormFile("file", "march.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(sampleCSV + "2025-03-02,05:08,12:30,15:46,18:22,19:52\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/v1/extractions", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	var result extraction.Result
	decodeBody(t, resp, http.StatusOK, &result)

	assert.Equal(t, extraction.MethodCSV, result.Method)
	require.Len(t, result.Days, 2)
	assert.Equal(t, "12:30", result.Days[0].Dhuhr)
	require.NotNil(t, result.Timetable)
	assert.Equal(t, auth.LocalUserID, result.Timetable.UserID)
	id := result.Timetable.ID

	// List
	resp, err = http.Get(srv.URL + "/v1/timetables?mosque=" + url.QueryEscape("Al-Noor Masjid"))
	require.NoError(t, err)
	var list listResponse
	decodeBody(t, resp, http.StatusOK, &list)
	require.Len(t, list.Timetables, 1)
	assert.Equal(t, id, list.Timetables[0].ID)

	// Latest for display screens
	resp, err = http.Get(srv.URL + "/v1/mosques/" + url.PathEscape("Al-Noor Masjid") + "/timetable")
	require.NoError(t, err)
	var latest model.Timetable
	decodeBody(t, resp, http.StatusOK, &latest)
	assert.Equal(t, "05:08", latest.Times[1].Fajr)

	// Screens address the mosque by its topic slug
	resp, err = http.Get(srv.URL + "/v1/mosques/al-noor-masjid/timetable")
	require.NoError(t, err)
	var bySlug model.Timetable
	decodeBody(t, resp, http.StatusOK, &bySlug)
	assert.Equal(t, latest.ID, bySlug.ID)

	// CSV export re-imports through the CSV path
	resp, err = http.Get(srv.URL + "/v1/timetables/" + id + "/csv")
	require.NoError(t, err)
	exported, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, result.Days[0].PrayerTimeSet, extraction.ParseCSV(string(exported))[0].PrayerTimeSet)

	// Delete
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/timetables/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/timetables/" + id)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestE2E_AsyncJob(t *testing.T) {
	st := store.NewMemoryStore()
	svc := extraction.NewService(extraction.Config{Store: st})
	defer svc.Close()

	srv := httptest.NewServer(auth.LocalDevMiddleware()(NewHandler(svc, st).Routes()))
	defer srv.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("mosqueName", "Central"))
	require.NoError(t, mw.WriteField("async", "true"))
	part, err := mw.CreateFormFile("file", "march.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/v1/extractions", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	var accepted asyncResponse
	decodeBody(t, resp, http.StatusAccepted, &accepted)
	require.NotEmpty(t, accepted.JobID)

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/v1/extractions/" + accepted.JobID)
		if err != nil {
			return false
		}
		var job extraction.Job
		if json.NewDecoder(resp.Body).Decode(&job) != nil {
			resp.Body.Close()
			return false
		}
		resp.Body.Close()
		return job.Status == extraction.JobSucceeded && job.Result != nil && len(job.Result.Days) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func decodeBody(t *testing.T, resp *http.Response, wantStatus int, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, string(data))
	require.NoError(t, json.Unmarshal(data, v))
}
