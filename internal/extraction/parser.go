package extraction

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

// Strategy names, in the order the parser tries them.
const (
	StrategyHeaderAnchored = "header-anchored"
	StrategyDateCursor     = "date-cursor"
	StrategyWholeDocument  = "whole-document"
)

const (
	minRowLength      = 10
	minHeaderAliases  = 3
	pairedColumnCount = 10
	monthLookBehind   = 10
	monthLookAhead    = 5
)

// pairedColumnOffsets picks the start time of each prayer out of a row laid
// out as Fajr, Fajr Iqama, Sunrise, Dhuhr, Dhuhr Iqama, Asr, Asr Iqama,
// Maghrib, Maghrib Iqama, Isha, ...
var pairedColumnOffsets = []int{0, 3, 5, 7, 9}

// Strategy turns the trimmed, non-empty lines of a transcript into day
// records. An empty result hands over to the next strategy.
type Strategy struct {
	Name  string
	Parse func(lines []string) []model.DailyPrayerTime
}

// TableParser converts free-form recognized text into day records by trying
// each strategy in order and returning the first non-empty result.
type TableParser struct {
	strategies []Strategy
}

// NewTableParser returns a parser using DefaultStrategies. now supplies the
// month and year for rows that only carry a day number, and the date used
// by the whole-document strategy.
func NewTableParser(now func() time.Time) *TableParser {
	return NewTableParserWithStrategies(DefaultStrategies(now)...)
}

// NewTableParserWithStrategies returns a parser that tries strategies in the
// given order.
func NewTableParserWithStrategies(strategies ...Strategy) *TableParser {
	return &TableParser{strategies: strategies}
}

// DefaultStrategies returns the header-anchored, date-cursor and
// whole-document strategies, in that order.
func DefaultStrategies(now func() time.Time) []Strategy {
	if now == nil {
		now = time.Now
	}
	return []Strategy{
		{Name: StrategyHeaderAnchored, Parse: func(lines []string) []model.DailyPrayerTime {
			return parseHeaderAnchored(lines, now())
		}},
		{Name: StrategyDateCursor, Parse: parseDateCursor},
		{Name: StrategyWholeDocument, Parse: func(lines []string) []model.DailyPrayerTime {
			return parseWholeDocument(lines, now())
		}},
	}
}

// Parse returns the day records found in text, or an empty slice when no
// strategy produced any.
func (p *TableParser) Parse(text string) []model.DailyPrayerTime {
	days, _ := p.ParseWithStrategy(text)
	return days
}

// ParseWithStrategy is Parse that also names the strategy that produced the
// result ("" when nothing was found).
func (p *TableParser) ParseWithStrategy(text string) ([]model.DailyPrayerTime, string) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return []model.DailyPrayerTime{}, ""
	}
	for _, s := range p.strategies {
		if days := s.Parse(lines); len(days) > 0 {
			return days, s.Name
		}
	}
	return []model.DailyPrayerTime{}, ""
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// timeToken is one recognized time, hour and minute as printed.
type timeToken struct {
	hour   string
	minute string
}

func (t timeToken) inRange() bool {
	h, err := strconv.Atoi(t.hour)
	if err != nil {
		return false
	}
	m, err := strconv.Atoi(t.minute)
	if err != nil {
		return false
	}
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}

func (t timeToken) String() string {
	return padTwo(t.hour) + ":" + t.minute
}

func padTwo(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}

func findTimeTokens(line string) []timeToken {
	matches := timePattern.FindAllStringSubmatch(line, -1)
	tokens := make([]timeToken, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, timeToken{hour: m[1], minute: m[2]})
	}
	return tokens
}

// findColonlessTimeTokens reads 3-digit runs as HMM and 4-digit runs as HHMM,
// keeping only runs that form a real time.
func findColonlessTimeTokens(line string) []timeToken {
	var tokens []timeToken
	for _, run := range timeNoColonPattern.FindAllString(line, -1) {
		var tok timeToken
		switch len(run) {
		case 3:
			tok = timeToken{hour: run[:1], minute: run[1:]}
		case 4:
			tok = timeToken{hour: run[:2], minute: run[2:]}
		default:
			continue
		}
		if tok.inRange() {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// matchFullDate returns the first day/month/year date on line as
// "YYYY-MM-DD". Two-digit years are taken to be in the 2000s.
func matchFullDate(line string) (string, bool) {
	m := fullDatePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	day, month, year := m[1], m[2], m[3]
	d, _ := strconv.Atoi(day)
	mo, _ := strconv.Atoi(month)
	if d < 1 || d > 31 || mo < 1 || mo > 12 {
		return "", false
	}
	if len(year) == 2 {
		year = "20" + year
	}
	return year + "-" + padTwo(month) + "-" + padTwo(day), true
}

// inferMonthYear looks for a month name in the lines around row i. The last
// mention in the window wins; the year comes from the same line when it
// carries one.
func inferMonthYear(lines []string, i int, now time.Time) (int, int) {
	month, year := int(now.Month()), now.Year()
	lo := max(0, i-monthLookBehind)
	hi := min(len(lines), i+monthLookAhead)
	for j := lo; j < hi; j++ {
		lower := strings.ToLower(lines[j])
		for m, name := range monthNames {
			if !strings.Contains(lower, name) {
				continue
			}
			month = m + 1
			if y := yearPattern.FindStringSubmatch(lower); y != nil {
				year, _ = strconv.Atoi(y[1])
			}
			break
		}
	}
	return month, year
}

func rowDate(lines []string, i int, now time.Time) (string, bool) {
	line := lines[i]
	if date, ok := matchFullDate(line); ok {
		return date, true
	}
	m := leadingDayPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	month, year := inferMonthYear(lines, i, now)
	return fmt.Sprintf("%d-%02d-%s", year, month, padTwo(m[1])), true
}

func parseHeaderAnchored(lines []string, now time.Time) []model.DailyPrayerTime {
	headerIndex := -1
	for i, line := range lines {
		if countAliasHits(line) >= minHeaderAliases {
			headerIndex = i
			break
		}
	}

	var days []model.DailyPrayerTime
	for i, line := range lines {
		if i == headerIndex || utf8.RuneCountInString(line) < minRowLength {
			continue
		}

		tokens := findTimeTokens(line)
		if len(tokens) < len(model.Prayers) {
			if recovered := findColonlessTimeTokens(line); len(recovered) >= len(model.Prayers) {
				tokens = recovered
			}
		}
		if len(tokens) < len(model.Prayers) {
			continue
		}

		date, ok := rowDate(lines, i, now)
		if !ok {
			continue
		}

		valid := make([]timeToken, 0, len(tokens))
		for _, tok := range tokens {
			if tok.inRange() {
				valid = append(valid, tok)
			}
		}
		if len(valid) < len(model.Prayers) {
			continue
		}

		picked := valid[:len(model.Prayers)]
		if len(valid) >= pairedColumnCount {
			picked = make([]timeToken, 0, len(pairedColumnOffsets))
			for _, off := range pairedColumnOffsets {
				picked = append(picked, valid[off])
			}
		}

		day := model.DailyPrayerTime{Date: date}
		for k, p := range model.Prayers {
			day.Set(p, picked[k].String())
		}
		days = append(days, day)
	}
	return days
}

// orderedDays keeps the first-seen position of each date while letting a
// later flush replace its times.
type orderedDays struct {
	order []string
	sets  map[string]model.PrayerTimeSet
}

func (o *orderedDays) put(date string, set model.PrayerTimeSet) {
	if o.sets == nil {
		o.sets = make(map[string]model.PrayerTimeSet)
	}
	if _, ok := o.sets[date]; !ok {
		o.order = append(o.order, date)
	}
	o.sets[date] = set
}

func parseDateCursor(lines []string) []model.DailyPrayerTime {
	var (
		byDate      orderedDays
		currentDate string
		current     model.PrayerTimeSet
		found       int
	)

	flush := func() {
		if currentDate != "" && found == len(model.Prayers) {
			byDate.put(currentDate, current)
		}
	}

	for _, line := range lines {
		if date, ok := matchFullDate(line); ok {
			flush()
			currentDate = date
			current = model.PrayerTimeSet{}
			found = 0
			continue
		}

		m := timePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		first := timeToken{hour: m[1], minute: m[2]}
		for _, a := range prayerAliases {
			if !a.pattern.MatchString(line) {
				continue
			}
			if current.Time(a.prayer) == "" {
				found++
			}
			current.Set(a.prayer, first.String())
		}
	}
	flush()

	var days []model.DailyPrayerTime
	for _, date := range byDate.order {
		set := byDate.sets[date]
		if ValidatePrayerTimes(set) {
			days = append(days, model.DailyPrayerTime{Date: date, PrayerTimeSet: set})
		}
	}
	return days
}

func parseWholeDocument(lines []string, now time.Time) []model.DailyPrayerTime {
	var set model.PrayerTimeSet
	for _, line := range lines {
		m := timePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		first := timeToken{hour: m[1], minute: m[2]}
		for _, a := range prayerAliases {
			if set.Time(a.prayer) == "" && a.pattern.MatchString(line) {
				set.Set(a.prayer, first.String())
			}
		}
	}
	if !ValidatePrayerTimes(set) {
		return nil
	}
	return []model.DailyPrayerTime{{
		Date:          now.UTC().Format(time.DateOnly),
		PrayerTimeSet: set,
	}}
}
