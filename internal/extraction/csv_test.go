package extraction

import (
	"reflect"
	"strings"
	"testing"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

const sampleCSV = "Date,Fajr,Dhuhr,Asr,Maghrib,Isha\n2024-01-01,05:30,12:15,15:45,18:20,19:45\n2024-01-02,05:31,12:15,15:44,18:21,19:46"

func TestParseCSV(t *testing.T) {
	got := ParseCSV(sampleCSV)
	want := []model.DailyPrayerTime{
		{Date: "2024-01-01", PrayerTimeSet: times("05:30", "12:15", "15:45", "18:20", "19:45")},
		{Date: "2024-01-02", PrayerTimeSet: times("05:31", "12:15", "15:44", "18:21", "19:46")},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseCSV() = %+v\nwant %+v", got, want)
	}
}

func TestParseCSV_Idempotent(t *testing.T) {
	first := ParseCSV(sampleCSV)
	second := ParseCSV(sampleCSV)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated parse differs:\n%+v\n%+v", first, second)
	}
}

func TestParseCSV_Verbatim(t *testing.T) {
	text := "\n  Date,Fajr,Dhuhr,Asr,Maghrib,Isha\r\n" +
		"2024-02-01 , 5:30, 12:15 ,15:45,18:20,19:45,extra\r\n" +
		"2024-02-02,05:31,12:15\r\n" +
		"\r\n" +
		"notes,,,,,\n"

	got := ParseCSV(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(got), got)
	}
	// no coercion of the unpadded hour
	if got[0].Date != "2024-02-01" || got[0].Fajr != "5:30" || got[0].Dhuhr != "12:15" || got[0].Isha != "19:45" {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
	if got[1].Date != "notes" || got[1].Fajr != "" {
		t.Fatalf("unexpected second row: %+v", got[1])
	}
}

// Quotes are plain characters: a quoted comma still splits and a stray
// quote neither fails the row nor swallows the next line.
func TestParseCSV_QuotesAreNotInterpreted(t *testing.T) {
	text := "Date,Fajr,Dhuhr,Asr,Maghrib,Isha\n" +
		"2024-02-03,\"05:30\",12:15,15:45,18:20,19:45\n" +
		"\"2024-02-04,05:31\",12:15,15:44,18:21,19:46\n" +
		"2024-02-05,05:32\",12:14,15:44,18:22,19:47\n"

	got := ParseCSV(text)
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(got), got)
	}
	if got[0].Fajr != `"05:30"` {
		t.Fatalf("quoted value altered: %q", got[0].Fajr)
	}
	if got[1].Date != `"2024-02-04` || got[1].Fajr != `05:31"` || got[1].Maghrib != "18:21" {
		t.Fatalf("quoted comma not split positionally: %+v", got[1])
	}
	if got[2].Date != "2024-02-05" || got[2].Fajr != `05:32"` {
		t.Fatalf("stray quote changed the row: %+v", got[2])
	}
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	got := ParseCSV("Date,Fajr,Dhuhr,Asr,Maghrib,Isha")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestMarshalCSV_ReadsBack(t *testing.T) {
	days := []model.DailyPrayerTime{
		{Date: "2024-03-01", HijriDate: "1445-08-20", PrayerTimeSet: times("05:10", "12:30", "15:45", "18:20", "19:50")},
		{Date: "2024-03-02", PrayerTimeSet: times("05:09", "12:30", "15:46", "18:21", "19:51")},
	}
	days[0].FajrIqama = "05:40"

	out, err := MarshalCSV(days)
	if err != nil {
		t.Fatalf("MarshalCSV: %v", err)
	}
	if !strings.HasPrefix(string(out), "Date,Fajr,Dhuhr,Asr,Maghrib,Isha,FajrIqama") {
		t.Fatalf("unexpected header: %q", strings.SplitN(string(out), "\n", 2)[0])
	}

	back := ParseCSV(string(out))
	if len(back) != len(days) {
		t.Fatalf("expected %d rows back, got %d", len(days), len(back))
	}
	for i := range days {
		if back[i].Date != days[i].Date || back[i].PrayerTimeSet.Fajr != days[i].Fajr || back[i].Isha != days[i].Isha {
			t.Fatalf("row %d: got %+v, want %+v", i, back[i], days[i])
		}
	}
}
