package extraction

import (
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

// csvMinFields is Date plus the five prayers.
const csvMinFields = 6

// ParseCSV reads a Date,Fajr,Dhuhr,Asr,Maghrib,Isha table. The first line is
// a header and is skipped. Every later line with at least six fields becomes
// a record, values taken verbatim after trimming; extra columns are ignored.
func ParseCSV(text string) []model.DailyPrayerTime {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	days := make([]model.DailyPrayerTime, 0, len(lines))
	for _, line := range lines[1:] {
		values := strings.Split(line, ",")
		if len(values) < csvMinFields {
			continue
		}
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
		days = append(days, model.DailyPrayerTime{
			Date: values[0],
			PrayerTimeSet: model.PrayerTimeSet{
				Fajr:    values[1],
				Dhuhr:   values[2],
				Asr:     values[3],
				Maghrib: values[4],
				Isha:    values[5],
			},
		})
	}
	return days
}

// csvRow is the export layout. The first six columns match what ParseCSV
// reads back.
type csvRow struct {
	Date         string `csv:"Date"`
	Fajr         string `csv:"Fajr"`
	Dhuhr        string `csv:"Dhuhr"`
	Asr          string `csv:"Asr"`
	Maghrib      string `csv:"Maghrib"`
	Isha         string `csv:"Isha"`
	FajrIqama    string `csv:"FajrIqama"`
	DhuhrIqama   string `csv:"DhuhrIqama"`
	AsrIqama     string `csv:"AsrIqama"`
	MaghribIqama string `csv:"MaghribIqama"`
	IshaIqama    string `csv:"IshaIqama"`
	HijriDate    string `csv:"HijriDate"`
}

// MarshalCSV renders days as a CSV document with a header row.
func MarshalCSV(days []model.DailyPrayerTime) ([]byte, error) {
	rows := make([]*csvRow, 0, len(days))
	for _, d := range days {
		rows = append(rows, &csvRow{
			Date:         d.Date,
			Fajr:         d.Fajr,
			Dhuhr:        d.Dhuhr,
			Asr:          d.Asr,
			Maghrib:      d.Maghrib,
			Isha:         d.Isha,
			FajrIqama:    d.FajrIqama,
			DhuhrIqama:   d.DhuhrIqama,
			AsrIqama:     d.AsrIqama,
			MaghribIqama: d.MaghribIqama,
			IshaIqama:    d.IshaIqama,
			HijriDate:    d.HijriDate,
		})
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("marshal timetable csv: %w", err)
	}
	return out, nil
}
