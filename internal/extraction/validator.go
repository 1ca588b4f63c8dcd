package extraction

import (
	"regexp"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

// validTimeFormat is the only accepted shape for a stored prayer time.
var validTimeFormat = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ValidatePrayerTimes reports whether all five start times are present and
// shaped "HH:MM". Iqama fields are not considered.
func ValidatePrayerTimes(set model.PrayerTimeSet) bool {
	for _, p := range model.Prayers {
		if !validTimeFormat.MatchString(set.Time(p)) {
			return false
		}
	}
	return true
}

// InvalidIqamaTimes returns the prayers whose Iqama time is present but not
// shaped "HH:MM". It never affects whether a record is accepted.
func InvalidIqamaTimes(set model.PrayerTimeSet) []model.Prayer {
	var invalid []model.Prayer
	for _, p := range model.Prayers {
		if v := set.Iqama(p); v != "" && !validTimeFormat.MatchString(v) {
			invalid = append(invalid, p)
		}
	}
	return invalid
}

// ValidateDays keeps the days whose start times pass ValidatePrayerTimes, in
// order, and reports how many were rejected.
func ValidateDays(days []model.DailyPrayerTime) ([]model.DailyPrayerTime, int) {
	valid := make([]model.DailyPrayerTime, 0, len(days))
	for _, d := range days {
		if ValidatePrayerTimes(d.PrayerTimeSet) {
			valid = append(valid, d)
		}
	}
	return valid, len(days) - len(valid)
}
