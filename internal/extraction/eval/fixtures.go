package eval

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"
)

//go:embed fixtures/*.txt fixtures/*.json
var fixtureFS embed.FS

// fixtureNow is the reference date for rows that only carry a day number.
var fixtureNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// Fixture bundles a recognized transcript with its ground truth.
type Fixture struct {
	Name        string
	Text        string // raw text as it comes out of the recognizer
	GroundTruth *GroundTruth
	Now         time.Time
}

// LoadFixtures loads all embedded fixture pairs (txt + json).
func LoadFixtures() ([]*Fixture, error) {
	names := []string{"header_table", "paired_columns", "daily_notice"}

	var fixtures []*Fixture
	for _, name := range names {
		f, err := loadFixture(name)
		if err != nil {
			return nil, fmt.Errorf("load fixture %q: %w", name, err)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

func loadFixture(name string) (*Fixture, error) {
	textBytes, err := fixtureFS.ReadFile("fixtures/" + name + ".txt")
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	jsonBytes, err := fixtureFS.ReadFile("fixtures/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("read ground truth: %w", err)
	}

	var gt GroundTruth
	if err := json.Unmarshal(jsonBytes, &gt); err != nil {
		return nil, fmt.Errorf("parse ground truth: %w", err)
	}

	return &Fixture{
		Name:        name,
		Text:        string(textBytes),
		GroundTruth: &gt,
		Now:         fixtureNow,
	}, nil
}
