package recommend

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

const (
	// MinPosition and MaxPosition bound every start and result position.
	MinPosition = 1
	MaxPosition = 5

	numPositions = MaxPosition - MinPosition + 1
)

// ErrInvalidPosition is returned when a start or result position falls outside 1–5.
var ErrInvalidPosition = errors.New("position out of range")

var validate = validator.New()

// Record is one observed selection round: where the user started and which
// position turned out favorable.
type Record struct {
	Start  int `json:"start" validate:"min=1,max=5"`
	Result int `json:"result" validate:"min=1,max=5"`
}

// Validate reports whether both positions of the record are within 1–5.
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: record {start:%d result:%d}: %v", ErrInvalidPosition, r.Start, r.Result, err)
	}
	return nil
}

// PositionConfidence is the share of relevant history whose result was Position.
type PositionConfidence struct {
	Position   int `json:"position"`
	Confidence int `json:"confidence"`
	Count      int `json:"count"`
}

// Result is the ranked confidence table for one start position.
type Result struct {
	BestPosition        int                  `json:"bestPosition"`
	AllPositions        []PositionConfidence `json:"allPositions"`
	TotalMatches        int                  `json:"totalMatches"`
	IsDefaultSuggestion bool                 `json:"isDefaultSuggestion"`
}

// ValidatePosition checks a single start position.
func ValidatePosition(start int) error {
	if start < MinPosition || start > MaxPosition {
		return fmt.Errorf("%w: start %d, want %d-%d", ErrInvalidPosition, start, MinPosition, MaxPosition)
	}
	return nil
}

// DefaultPosition is the fallback suggestion when nothing is known about a
// start position: two steps ahead, wrapping within 1–5.
func DefaultPosition(start int) int {
	return (start+2-1)%numPositions + 1
}

// Recommend ranks positions 1–5 by how often they were the result of rounds
// that began at start. history is not modified.
func Recommend(history []Record, start int) (*Result, error) {
	if err := ValidatePosition(start); err != nil {
		return nil, err
	}

	var counts [numPositions + 1]int
	total := 0
	for i, rec := range history {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		if rec.Start != start {
			continue
		}
		counts[rec.Result]++
		total++
	}

	if total == 0 {
		best := DefaultPosition(start)
		all := make([]PositionConfidence, 0, numPositions)
		for p := MinPosition; p <= MaxPosition; p++ {
			pc := PositionConfidence{Position: p}
			if p == best {
				pc.Confidence = 100
			}
			all = append(all, pc)
		}
		sortByConfidence(all)
		return &Result{
			BestPosition:        best,
			AllPositions:        all,
			IsDefaultSuggestion: true,
		}, nil
	}

	// Equal counts never displace an earlier position.
	best, highest := MinPosition, 0
	for p := MinPosition; p <= MaxPosition; p++ {
		if counts[p] > highest {
			best, highest = p, counts[p]
		}
	}

	all := make([]PositionConfidence, 0, numPositions)
	for p := MinPosition; p <= MaxPosition; p++ {
		all = append(all, PositionConfidence{
			Position:   p,
			Confidence: percent(counts[p], total),
			Count:      counts[p],
		})
	}
	sortByConfidence(all)

	return &Result{
		BestPosition: best,
		AllPositions: all,
		TotalMatches: total,
	}, nil
}

// percent returns 100*n/total rounded half-up, in integer arithmetic.
func percent(n, total int) int {
	return (200*n + total) / (2 * total)
}

// sortByConfidence orders descending by confidence; stable sort keeps
// ascending position order for ties.
func sortByConfidence(all []PositionConfidence) {
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].Confidence > all[b].Confidence
	})
}
