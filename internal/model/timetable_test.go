package model

import "testing"

func TestPrayerTimeSetAccessors(t *testing.T) {
	var s PrayerTimeSet
	for i, p := range Prayers {
		s.Set(p, []string{"05:10", "12:30", "15:45", "18:20", "19:50"}[i])
	}
	if s.Fajr != "05:10" || s.Isha != "19:50" {
		t.Fatalf("Set did not assign fields: %+v", s)
	}
	if got := s.Time(Asr); got != "15:45" {
		t.Fatalf("Time(asr) = %q", got)
	}

	s.MaghribIqama = "18:25"
	if got := s.Iqama(Maghrib); got != "18:25" {
		t.Fatalf("Iqama(maghrib) = %q", got)
	}
	if got := s.Iqama(Fajr); got != "" {
		t.Fatalf("Iqama(fajr) = %q, want empty", got)
	}
	if got := s.Time(Prayer("sunrise")); got != "" {
		t.Fatalf("Time(sunrise) = %q, want empty", got)
	}
}

func TestMosqueKey(t *testing.T) {
	if got, want := MosqueKey("East London Mosque"), MosqueKey("east-london-mosque"); got != want {
		t.Fatalf("MosqueKey mismatch: %q vs %q", got, want)
	}
	if got := MosqueKey(" مسجد "); got != "مسجد" {
		t.Fatalf("MosqueKey(arabic) = %q, want trimmed name", got)
	}
	if got := MosqueKey("  "); got != "" {
		t.Fatalf("MosqueKey(blank) = %q", got)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Al-Noor Mosque", "al-noor-mosque"},
		{"  Masjid Al-Aqsá ", "masjid-al-aqsa"},
		{"East London Mosque / Centre", "east-london-mosque-centre"},
		{"March 2025.png", "march-2025.png"},
		{"مسجد", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
