//go:build ignore
// +build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// seedMosques are uploaded with one generated month each.
var seedMosques = []string{
	"East London Mosque",
	"Al-Noor Masjid",
	"Central Jamia Masjid",
}

func main() {
	// Get API URL from environment or use default
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8111"
	}

	// Bearer token for AUTH_MODE=firebase; local mode needs none
	idToken := os.Getenv("ID_TOKEN")

	month := time.Now().UTC()
	month = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)

	client := &http.Client{Timeout: 30 * time.Second}

	for i, mosque := range seedMosques {
		csv := generateMonth(month, i*2)
		id, days, err := upload(client, apiURL, idToken, mosque, csv)
		if err != nil {
			log.Fatalf("Failed to seed %s: %v", mosque, err)
		}
		log.Printf("Seeded %s: timetable %s with %d days", mosque, id, days)
	}

	log.Println("Seeding complete")
}

// generateMonth builds a plausible CSV timetable for month. Fajr gets
// earlier and Maghrib later through the month; offset shifts every time so
// each mosque differs.
func generateMonth(month time.Time, offset int) []byte {
	var buf bytes.Buffer
	buf.WriteString("Date,Fajr,Dhuhr,Asr,Maghrib,Isha\n")

	for d := month; d.Month() == month.Month(); d = d.AddDate(0, 0, 1) {
		day := d.Day() - 1
		fajr := 5*60 + 20 - day + offset
		dhuhr := 12*60 + 30 + offset
		asr := 15*60 + 40 + day/3 + offset
		maghrib := 18*60 + 10 + day + offset
		isha := maghrib + 90
		fmt.Fprintf(&buf, "%s,%s,%s,%s,%s,%s\n",
			d.Format("2006-01-02"), clock(fajr), clock(dhuhr), clock(asr), clock(maghrib), clock(isha))
	}
	return buf.Bytes()
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func upload(client *http.Client, apiURL, idToken, mosque string, csv []byte) (string, int, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("mosqueName", mosque); err != nil {
		return "", 0, err
	}
	part, err := mw.CreateFormFile("file", "seed.csv")
	if err != nil {
		return "", 0, err
	}
	if _, err := part.Write(csv); err != nil {
		return "", 0, err
	}
	if err := mw.Close(); err != nil {
		return "", 0, err
	}

	req, err := http.NewRequest(http.MethodPost, apiURL+"/v1/extractions", &body)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if idToken != "" {
		req.Header.Set("Authorization", "Bearer "+idToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	var result struct {
		Timetable struct {
			ID string `json:"id"`
		} `json:"timetable"`
		Days []json.RawMessage `json:"days"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, err
	}
	return result.Timetable.ID, len(result.Days), nil
}
