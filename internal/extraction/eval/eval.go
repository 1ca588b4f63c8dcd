// Package eval provides an evaluation framework for comparing timetable
// parsing strategies against ground-truth transcripts.
package eval

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/castlemilk/salahtime/backend/internal/extraction"
	"github.com/castlemilk/salahtime/backend/internal/model"
)

// ChainStrategy names the full parser, which tries every strategy in order.
const ChainStrategy = "chain"

// GroundTruth represents the expected days for a test fixture.
type GroundTruth struct {
	Name string                  `json:"name"`
	Days []model.DailyPrayerTime `json:"days"`
}

// EvalResult holds metrics from running one strategy on one fixture.
type EvalResult struct {
	Strategy     string
	Fixture      string
	DayCount     CountMetrics
	TimeAccuracy float64 // share of prayer times correct on matched days
	PrayerMisses map[model.Prayer]int
	OverallScore float64
	Duration     time.Duration
	Error        string // non-empty if the strategy failed
}

// CountMetrics measures day detection performance.
type CountMetrics struct {
	Expected  int
	Extracted int
	Matched   int
	Precision float64
	Recall    float64
	F1        float64
}

// dayPair represents a matched pair of extracted and ground-truth days.
type dayPair struct {
	extracted model.DailyPrayerTime
	truth     model.DailyPrayerTime
}

// StrategyFunc is the signature for a parsing strategy under evaluation.
type StrategyFunc func(ctx context.Context, text string, now time.Time) ([]model.DailyPrayerTime, error)

// ParserStrategies returns each built-in strategy on its own plus the full
// chain, keyed by strategy name.
func ParserStrategies() map[string]StrategyFunc {
	strategies := map[string]StrategyFunc{
		ChainStrategy: func(_ context.Context, text string, now time.Time) ([]model.DailyPrayerTime, error) {
			return extraction.NewTableParser(func() time.Time { return now }).Parse(text), nil
		},
	}
	for i, s := range extraction.DefaultStrategies(nil) {
		strategies[s.Name] = func(_ context.Context, text string, now time.Time) ([]model.DailyPrayerTime, error) {
			only := extraction.DefaultStrategies(func() time.Time { return now })[i]
			return extraction.NewTableParserWithStrategies(only).Parse(text), nil
		}
	}
	return strategies
}

// --- Metric Functions ---

// ComputeMetrics compares extracted days against ground truth.
func ComputeMetrics(strategy, fixture string, extracted []model.DailyPrayerTime, truth *GroundTruth, duration time.Duration) *EvalResult {
	result := &EvalResult{
		Strategy:     strategy,
		Fixture:      fixture,
		Duration:     duration,
		PrayerMisses: make(map[model.Prayer]int),
	}

	matched := matchDays(extracted, truth.Days)

	result.DayCount = CountMetrics{
		Expected:  len(truth.Days),
		Extracted: len(extracted),
		Matched:   len(matched),
	}
	if len(extracted) > 0 {
		result.DayCount.Precision = float64(len(matched)) / float64(len(extracted))
	}
	if len(truth.Days) > 0 {
		result.DayCount.Recall = float64(len(matched)) / float64(len(truth.Days))
	}
	p := result.DayCount.Precision
	r := result.DayCount.Recall
	if p+r > 0 {
		result.DayCount.F1 = 2 * p * r / (p + r)
	}

	if len(matched) > 0 {
		correct := 0
		for _, pair := range matched {
			for _, prayer := range model.Prayers {
				if timeMatch(pair.extracted.Time(prayer), pair.truth.Time(prayer)) {
					correct++
				} else {
					result.PrayerMisses[prayer]++
				}
			}
		}
		result.TimeAccuracy = float64(correct) / float64(len(matched)*len(model.Prayers))
	}

	result.OverallScore = 0.5*result.DayCount.F1 + 0.5*result.TimeAccuracy
	return result
}

// matchDays pairs extracted days to ground-truth days by date. Each
// ground-truth day is used at most once.
func matchDays(extracted, truth []model.DailyPrayerTime) []dayPair {
	byDate := make(map[string]int, len(truth))
	for i, d := range truth {
		byDate[strings.TrimSpace(d.Date)] = i
	}

	used := make([]bool, len(truth))
	var matched []dayPair
	for _, ext := range extracted {
		j, ok := byDate[strings.TrimSpace(ext.Date)]
		if !ok || used[j] {
			continue
		}
		used[j] = true
		matched = append(matched, dayPair{extracted: ext, truth: truth[j]})
	}
	return matched
}

// timeMatch compares two "H:MM" or "HH:MM" times, ignoring zero padding.
func timeMatch(a, b string) bool {
	return normalizeTime(a) == normalizeTime(b)
}

func normalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[1] == ':' {
		return "0" + s
	}
	return s
}

// --- Runner ---

// RunEval executes all strategies against all fixtures and returns results,
// ordered by fixture and then strategy name.
func RunEval(ctx context.Context, strategies map[string]StrategyFunc, fixtures []*Fixture) []*EvalResult {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*EvalResult
	for _, fixture := range fixtures {
		for _, name := range names {
			start := time.Now()
			days, err := strategies[name](ctx, fixture.Text, fixture.Now)
			elapsed := time.Since(start)

			if err != nil {
				results = append(results, &EvalResult{
					Strategy: name,
					Fixture:  fixture.Name,
					Duration: elapsed,
					Error:    err.Error(),
				})
				continue
			}

			results = append(results, ComputeMetrics(name, fixture.Name, days, fixture.GroundTruth, elapsed))
		}
	}
	return results
}

// --- Summary Printer ---

// PrintSummary outputs a formatted comparison table to an io.Writer.
func PrintSummary(w io.Writer, results []*EvalResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "Strategy\tFixture\tF1\tTimes%\tScore\tTime\tMatch\tError")
	fmt.Fprintln(tw, "--------\t-------\t--\t------\t-----\t----\t-----\t-----")

	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.0f%%\t%.2f\t%s\t%d/%d\t%s\n",
			r.Strategy,
			r.Fixture,
			r.DayCount.F1,
			r.TimeAccuracy*100,
			r.OverallScore,
			r.Duration.Round(time.Microsecond),
			r.DayCount.Matched,
			r.DayCount.Expected,
			truncate(r.Error, 30),
		)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Strategy Averages ===")

	scores := make(map[string][]float64)
	var order []string
	for _, r := range results {
		if r.Error != "" {
			continue
		}
		if _, ok := scores[r.Strategy]; !ok {
			order = append(order, r.Strategy)
		}
		scores[r.Strategy] = append(scores[r.Strategy], r.OverallScore)
	}

	tw2 := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw2, "Strategy\tAvg Score\tFixtures")
	fmt.Fprintln(tw2, "--------\t---------\t--------")
	for _, strategy := range order {
		fmt.Fprintf(tw2, "%s\t%.3f\t%d\n", strategy, avg(scores[strategy]), len(scores[strategy]))
	}
	tw2.Flush()
}

func avg(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
