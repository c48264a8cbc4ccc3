package scoring

import (
	"ai-salesops-be/pkg/crm"
	"encoding/json"
)

// ScoredRecord pairs a fetched record with its score. The record itself is never modified.
type ScoredRecord struct {
	Record crm.Record
	Score  int
	Kind   Kind
}

// Fields returns a copy of the record with the kind's score field set.
func (s ScoredRecord) Fields() crm.Record {
	out := s.Record.Clone()
	out[s.Kind.ScoreField] = s.Score
	return out
}

func (s ScoredRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}

func (s ScoredRecord) Name() string {
	return s.Record.Name()
}

// Ranking is sorted by descending score; equal scores keep input order.
type Ranking []ScoredRecord

func (r Ranking) Top(n int) Ranking {
	if n < 0 {
		n = 0
	}
	if n > len(r) {
		n = len(r)
	}
	return r[:n]
}

// FindByName returns the first (highest ranked) record whose name contains
// needle, case-insensitively, and its zero-based position.
func (r Ranking) FindByName(needle string) (ScoredRecord, int, bool) {
	for i, s := range r {
		if s.Record.NameContains(needle) {
			return s, i, true
		}
	}
	return ScoredRecord{}, -1, false
}

func (r Ranking) FindByID(id string) (ScoredRecord, int, bool) {
	for i, s := range r {
		if s.Record.ID() == id {
			return s, i, true
		}
	}
	return ScoredRecord{}, -1, false
}

// AverageScore is 0 for an empty ranking.
func (r Ranking) AverageScore() float64 {
	if len(r) == 0 {
		return 0
	}
	total := 0
	for _, s := range r {
		total += s.Score
	}
	return float64(total) / float64(len(r))
}

// TotalOf sums a numeric field, skipping records where it is missing.
func (r Ranking) TotalOf(field string) float64 {
	total := 0.0
	for _, s := range r {
		if v, ok := s.Record.Float(field); ok {
			total += v
		}
	}
	return total
}

func (r Ranking) Scores() []int {
	scores := make([]int, len(r))
	for i, s := range r {
		scores[i] = s.Score
	}
	return scores
}
