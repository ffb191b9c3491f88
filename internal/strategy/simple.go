package strategy

import (
	"errors"
	"math/rand"
	"time"

	"github.com/jaminalder/ndtictactoe/internal/domain"
)

// ErrScriptExhausted is returned once a scripted source has no cells left.
var ErrScriptExhausted = errors.New("script exhausted")

// RandomSource picks uniformly among the unclaimed cells.
type RandomSource struct {
	rng *rand.Rand
}

type randomOptions struct {
	Seed *int64 `mapstructure:"seed"`
}

// NewRandom returns a random source drawing from rng. A nil rng is seeded
// from the clock.
func NewRandom(rng *rand.Rand) *RandomSource {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomSource{rng: rng}
}

func newRandom(options map[string]interface{}, env Env) (domain.MoveSource, error) {
	var o randomOptions
	if err := decodeOptions(options, &o); err != nil {
		return nil, err
	}
	if o.Seed != nil {
		return NewRandom(rand.New(rand.NewSource(*o.Seed))), nil
	}
	return NewRandom(env.Rand), nil
}

func (s *RandomSource) Select(v domain.TurnView) (int, error) {
	if len(v.Remaining) == 0 {
		return 0, ErrNoCells
	}
	return v.Remaining[s.rng.Intn(len(v.Remaining))], nil
}

// ScriptedSource replays a fixed list of cells.
type ScriptedSource struct {
	cells []int
	next  int
}

type scriptedOptions struct {
	Cells []int `mapstructure:"cells"`
}

// NewScripted returns a source that plays cells in order.
func NewScripted(cells ...int) *ScriptedSource {
	return &ScriptedSource{cells: append([]int(nil), cells...)}
}

func newScripted(options map[string]interface{}, _ Env) (domain.MoveSource, error) {
	var o scriptedOptions
	if err := decodeOptions(options, &o); err != nil {
		return nil, err
	}
	return NewScripted(o.Cells...), nil
}

func (s *ScriptedSource) Select(domain.TurnView) (int, error) {
	if s.next >= len(s.cells) {
		return 0, ErrScriptExhausted
	}
	c := s.cells[s.next]
	s.next++
	return c, nil
}
