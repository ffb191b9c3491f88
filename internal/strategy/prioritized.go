package strategy

import (
	"fmt"

	"github.com/jaminalder/ndtictactoe/internal/domain"
)

// Heuristic steps of the prioritized strategy, tried in configured order.
const (
	StepComplete = "complete" // finish one of our lines needing a single cell
	StepBlock    = "block"    // cut the opponent's most advanced lines
	StepExtend   = "extend"   // grow our most advanced lines
	StepWeight   = "weight"   // take the cell on the most lines overall
)

// DefaultOrder is the heuristic order used when none is configured.
var DefaultOrder = []string{StepComplete, StepBlock, StepExtend, StepWeight}

// PrioritizedOptions tunes PrioritizedSource.
type PrioritizedOptions struct {
	// BlockThreshold is the largest number of missing cells at which an
	// opponent line is worth blocking. Zero means max(1, size/2).
	BlockThreshold int      `mapstructure:"block_threshold"`
	Order          []string `mapstructure:"order"`
}

// PrioritizedSource weighs cells by how many initial lines pass through them
// and walks a fixed list of heuristics until one yields a cell.
type PrioritizedSource struct {
	weights   []int
	threshold int
	order     []string
}

// NewPrioritized builds the strategy for a board of the given shape. unique
// must match the game's line set so duplicated cube lines are not weighed
// twice.
func NewPrioritized(dim, size int, unique bool, o PrioritizedOptions) (*PrioritizedSource, error) {
	lines, err := domain.GenerateLines(dim, size)
	if err != nil {
		return nil, err
	}
	if unique {
		lines = domain.UniqueLines(lines)
	}
	numCells, _ := domain.CellCount(dim, size)
	order := o.Order
	if len(order) == 0 {
		order = DefaultOrder
	}
	for _, step := range order {
		switch step {
		case StepComplete, StepBlock, StepExtend, StepWeight:
		default:
			return nil, fmt.Errorf("%w: unknown step %q", ErrBadOptions, step)
		}
	}
	threshold := o.BlockThreshold
	if threshold < 0 {
		return nil, fmt.Errorf("%w: negative block_threshold", ErrBadOptions)
	}
	if threshold == 0 {
		threshold = max(1, size/2)
	}
	return &PrioritizedSource{
		weights:   domain.CellWeights(lines, numCells),
		threshold: threshold,
		order:     append([]string(nil), order...),
	}, nil
}

func newPrioritized(options map[string]interface{}, env Env) (domain.MoveSource, error) {
	var o PrioritizedOptions
	if err := decodeOptions(options, &o); err != nil {
		return nil, err
	}
	return NewPrioritized(env.Dimension, env.Size, env.UniqueLines, o)
}

func (s *PrioritizedSource) Select(v domain.TurnView) (int, error) {
	if len(v.Remaining) == 0 {
		return 0, ErrNoCells
	}
	free := make(map[int]bool, len(v.Remaining))
	for _, c := range v.Remaining {
		free[c] = true
	}
	for _, step := range s.order {
		var cell int
		var ok bool
		switch step {
		case StepComplete:
			if len(v.Own) > 1 {
				cell, ok = s.bestOnLines(v.Own[1], free)
			}
		case StepBlock:
			if k := v.Opponent.Closest(1); k > 0 && k <= s.threshold {
				cell, ok = s.bestOnLines(v.Opponent[k], free)
			}
		case StepExtend:
			if k := v.Own.Closest(1); k > 0 {
				cell, ok = s.bestOnLines(v.Own[k], free)
			}
		case StepWeight:
			cell, ok = s.best(v.Remaining, nil)
		}
		if ok {
			return cell, nil
		}
	}
	cell, _ := s.best(v.Remaining, nil)
	return cell, nil
}

// bestOnLines picks the free cell shared by most of lines, then by weight.
func (s *PrioritizedSource) bestOnLines(lines []domain.Line, free map[int]bool) (int, bool) {
	hits := make(map[int]int)
	var cells []int
	for _, l := range lines {
		for _, c := range l {
			if !free[c] {
				continue
			}
			if hits[c] == 0 {
				cells = append(cells, c)
			}
			hits[c]++
		}
	}
	return s.best(cells, hits)
}

// best returns the highest ranked cell by hits then weight, lowest index on
// ties.
func (s *PrioritizedSource) best(cells []int, hits map[int]int) (int, bool) {
	found := false
	var top int
	for _, c := range cells {
		if !found || s.better(c, top, hits) {
			top, found = c, true
		}
	}
	return top, found
}

func (s *PrioritizedSource) better(a, b int, hits map[int]int) bool {
	if hits[a] != hits[b] {
		return hits[a] > hits[b]
	}
	if s.weight(a) != s.weight(b) {
		return s.weight(a) > s.weight(b)
	}
	return a < b
}

func (s *PrioritizedSource) weight(c int) int {
	if c < 0 || c >= len(s.weights) {
		return 0
	}
	return s.weights[c]
}
