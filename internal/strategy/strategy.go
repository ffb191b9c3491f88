// Package strategy provides the move sources a game can be configured with.
package strategy

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"

	"github.com/jaminalder/ndtictactoe/internal/domain"
	"github.com/mitchellh/mapstructure"
)

// Strategy names accepted by New.
const (
	Random      = "random"
	Interactive = "interactive"
	Prioritized = "prioritized"
	Scripted    = "scripted"
)

// Errors returned by strategies.
var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrBadOptions      = errors.New("bad strategy options")
	ErrNoCells         = errors.New("no cells to choose from")
)

// Env carries what a strategy may need besides its own options.
type Env struct {
	Dimension int
	Size      int
	// UniqueLines mirrors domain.WithUniqueLines on the game being played.
	UniqueLines bool
	Rand        *rand.Rand
	In          io.Reader
	Out         io.Writer
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsInteractive reports whether the named strategy waits on a human.
func IsInteractive(name string) bool { return name == Interactive }

type factory func(options map[string]interface{}, env Env) (domain.MoveSource, error)

var registry = map[string]factory{
	Random:      newRandom,
	Interactive: newInteractive,
	Prioritized: newPrioritized,
	Scripted:    newScripted,
}

// New builds the named strategy. options are decoded into the strategy's
// option struct; unknown keys are rejected.
func New(name string, options map[string]interface{}, env Env) (domain.MoveSource, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return f(options, env)
}

func decodeOptions(in map[string]interface{}, out interface{}) error {
	if len(in) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("%w: %v", ErrBadOptions, err)
	}
	return nil
}
