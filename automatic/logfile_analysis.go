package automatic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// AnalyzeLogFile rebuilds the summary of an arena from its YAML result log.
func AnalyzeLogFile(path string, confidence float64) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var results []*GameResult
	names := make([]string, NumEntrants)
	dec := yaml.NewDecoder(f)
	for {
		r := &GameResult{}
		err := dec.Decode(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode game %d: %w", len(results), err)
		}
		if len(r.Entrants) != len(r.Seats) || len(r.Rewards) != len(r.Seats) ||
			len(r.Scores) != len(r.Seats) {
			return nil, fmt.Errorf("game %s: seats, entrants, scores and rewards differ in length", r.GameID)
		}
		for seat, e := range r.Entrants {
			if e < 0 || e >= NumEntrants {
				return nil, fmt.Errorf("game %s: bad entrant %d", r.GameID, e)
			}
			names[e] = r.Seats[seat]
		}
		results = append(results, r)
	}
	// games finish out of order; replay them in the order they were dealt
	slices.SortFunc(results, func(a, b *GameResult) int { return a.GameNum - b.GameNum })

	summary := newSummary(names, confidence)
	for _, r := range results {
		summary.add(r)
	}
	summary.finish()
	return summary, nil
}
