package model

import "time"

// Prayer identifies one of the five daily prayers.
type Prayer string

const (
	Fajr    Prayer = "fajr"
	Dhuhr   Prayer = "dhuhr"
	Asr     Prayer = "asr"
	Maghrib Prayer = "maghrib"
	Isha    Prayer = "isha"
)

// Prayers lists the daily prayers in the order they fall in the day.
var Prayers = []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}

// PrayerTimeSet holds the start (Adhan) times for one day and the optional
// congregational (Iqama) times. All values are zero-padded 24-hour "HH:MM".
type PrayerTimeSet struct {
	Fajr    string `json:"fajr" firestore:"fajr"`
	Dhuhr   string `json:"dhuhr" firestore:"dhuhr"`
	Asr     string `json:"asr" firestore:"asr"`
	Maghrib string `json:"maghrib" firestore:"maghrib"`
	Isha    string `json:"isha" firestore:"isha"`

	FajrIqama    string `json:"fajrIqama,omitempty" firestore:"fajrIqama,omitempty"`
	DhuhrIqama   string `json:"dhuhrIqama,omitempty" firestore:"dhuhrIqama,omitempty"`
	AsrIqama     string `json:"asrIqama,omitempty" firestore:"asrIqama,omitempty"`
	MaghribIqama string `json:"maghribIqama,omitempty" firestore:"maghribIqama,omitempty"`
	IshaIqama    string `json:"ishaIqama,omitempty" firestore:"ishaIqama,omitempty"`
}

// Time returns the start time of p.
func (s PrayerTimeSet) Time(p Prayer) string {
	switch p {
	case Fajr:
		return s.Fajr
	case Dhuhr:
		return s.Dhuhr
	case Asr:
		return s.Asr
	case Maghrib:
		return s.Maghrib
	case Isha:
		return s.Isha
	}
	return ""
}

// Iqama returns the congregation time of p, or "" when none was given.
func (s PrayerTimeSet) Iqama(p Prayer) string {
	switch p {
	case Fajr:
		return s.FajrIqama
	case Dhuhr:
		return s.DhuhrIqama
	case Asr:
		return s.AsrIqama
	case Maghrib:
		return s.MaghribIqama
	case Isha:
		return s.IshaIqama
	}
	return ""
}

// Set assigns the start time of p.
func (s *PrayerTimeSet) Set(p Prayer, value string) {
	switch p {
	case Fajr:
		s.Fajr = value
	case Dhuhr:
		s.Dhuhr = value
	case Asr:
		s.Asr = value
	case Maghrib:
		s.Maghrib = value
	case Isha:
		s.Isha = value
	}
}

// DailyPrayerTime is one row of a timetable. Date is "YYYY-MM-DD".
type DailyPrayerTime struct {
	Date      string `json:"date" firestore:"date"`
	HijriDate string `json:"hijriDate,omitempty" firestore:"hijriDate,omitempty"`
	PrayerTimeSet
}

// Timetable is a saved set of daily prayer times for one mosque.
type Timetable struct {
	ID         string            `json:"id" firestore:"id"`
	UserID     string            `json:"userId,omitempty" firestore:"userId"`
	MosqueName string            `json:"mosqueName" firestore:"mosqueName"`
	MosqueKey  string            `json:"-" firestore:"mosqueKey"`
	CreatedAt  time.Time         `json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt" firestore:"updatedAt"`
	Times      []DailyPrayerTime `json:"times" firestore:"times"`
	FileURL    string            `json:"fileUrl,omitempty" firestore:"fileUrl,omitempty"`
}
